package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CDNConfig holds the storage-zone and pull-zone settings.
type CDNConfig struct {
	// StorageHost is the storage API endpoint, e.g. "storage.bunnycdn.com".
	StorageHost string
	// StorageZone is the zone name objects are written into.
	StorageZone string
	// AccessKey authenticates storage-zone writes.
	AccessKey string
	// PullZone is the public read-through hostname, e.g. "media.example.b-cdn.net".
	PullZone string
}

// CDNBlobStore writes objects to an HTTP storage zone and serves reads
// through the pull-zone hostname.
type CDNBlobStore struct {
	cfg    CDNConfig
	client *http.Client
}

func NewCDNBlobStore(cfg CDNConfig) *CDNBlobStore {
	return &CDNBlobStore{
		cfg: cfg,
		client: &http.Client{
			Timeout: 5 * time.Minute, // large video uploads
		},
	}
}

func (s *CDNBlobStore) storageURL(key string) string {
	return fmt.Sprintf("https://%s/%s/%s", s.cfg.StorageHost, s.cfg.StorageZone, key)
}

func (s *CDNBlobStore) Upload(ctx context.Context, category, ownerID, fileName, contentType string, content io.Reader) (*BlobMetadata, error) {
	if err := validateUpload(category, fileName, contentType); err != nil {
		return nil, err
	}

	key := BuildKey(category, ownerID, fileName)

	limited := &countingReader{r: io.LimitReader(content, MaxFileSize+1)}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.storageURL(key), limited)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("AccessKey", s.cfg.AccessKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage upload: %w", err)
	}
	defer resp.Body.Close()

	if limited.n > MaxFileSize {
		// The zone may have accepted the oversized object; remove it.
		_ = s.Delete(ctx, key)
		return nil, ErrFileTooLarge
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("storage upload returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return &BlobMetadata{
		Key:         key,
		FileName:    fileName,
		ContentType: contentType,
		Size:        limited.n,
		Category:    category,
		OwnerID:     ownerID,
		PublicURL:   s.PublicURL(key),
		CreatedAt:   time.Now(),
	}, nil
}

func (s *CDNBlobStore) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.storageURL(key), nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	req.Header.Set("AccessKey", s.cfg.AccessKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("storage delete: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrBlobNotFound
	default:
		return fmt.Errorf("storage delete returned status %d", resp.StatusCode)
	}
}

func (s *CDNBlobStore) PublicURL(key string) string {
	return fmt.Sprintf("https://%s/%s", s.cfg.PullZone, key)
}

// countingReader tracks how many bytes passed through so the upload size can
// be checked after streaming.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
