// Package blobstore stores uploaded media (videos, thumbnails, avatars,
// attachments) in an object-storage zone fronted by a pull-through CDN. It
// defines the BlobStore interface, a CDN-backed implementation, an in-memory
// implementation for tests and development, and an Echo multipart upload
// handler.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound       = errors.New("blob not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrInvalidCategory    = errors.New("unknown upload category")
	ErrMissingFileName    = errors.New("file name is required")
)

// MaxFileSize is the maximum allowed upload size in bytes (500 MB, videos
// included).
const MaxFileSize = 500 * 1024 * 1024

// AllowedCategories lists valid upload category values; the category is the
// first segment of the storage key.
var AllowedCategories = map[string]bool{
	"videos":      true,
	"thumbnails":  true,
	"avatars":     true,
	"attachments": true,
}

// AllowedContentTypes lists the MIME types the platform accepts.
var AllowedContentTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"video/mp4":       true,
	"video/webm":      true,
	"application/pdf": true,
}

// BlobMetadata describes a stored object.
type BlobMetadata struct {
	Key         string    `json:"key"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Category    string    `json:"category"`
	OwnerID     string    `json:"owner_id"`
	PublicURL   string    `json:"public_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// BlobStore defines the contract for object storage backends.
type BlobStore interface {
	// Upload stores content under a key computed as
	// <category>/<ownerID>/<uuid>.<ext> and returns the resulting metadata,
	// including the public CDN URL.
	Upload(ctx context.Context, category, ownerID, fileName, contentType string, content io.Reader) (*BlobMetadata, error)
	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
	// PublicURL returns the pull-zone URL for a storage key.
	PublicURL(key string) string
}

// BuildKey computes the storage key for an upload. The extension is taken
// from the original file name; files without one get none.
func BuildKey(category, ownerID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("%s/%s/%s%s", category, ownerID, uuid.New().String(), ext)
}

func validateUpload(category, fileName, contentType string) error {
	if fileName == "" {
		return ErrMissingFileName
	}
	if !AllowedCategories[category] {
		return fmt.Errorf("%w: %s", ErrInvalidCategory, category)
	}
	if contentType != "" && !AllowedContentTypes[contentType] {
		return fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}
	return nil
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type storedBlob struct {
	metadata BlobMetadata
	content  []byte
}

// InMemoryBlobStore is a thread-safe, in-memory BlobStore for testing/dev.
type InMemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]*storedBlob
}

// NewInMemoryBlobStore returns a ready-to-use InMemoryBlobStore.
func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{
		blobs: make(map[string]*storedBlob),
	}
}

func (s *InMemoryBlobStore) Upload(_ context.Context, category, ownerID, fileName, contentType string, content io.Reader) (*BlobMetadata, error) {
	if err := validateUpload(category, fileName, contentType); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	key := BuildKey(category, ownerID, fileName)
	meta := BlobMetadata{
		Key:         key,
		FileName:    fileName,
		ContentType: contentType,
		Size:        int64(len(data)),
		Category:    category,
		OwnerID:     ownerID,
		PublicURL:   s.PublicURL(key),
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	s.blobs[key] = &storedBlob{metadata: meta, content: data}
	s.mu.Unlock()

	return &meta, nil
}

func (s *InMemoryBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, key)
	return nil
}

func (s *InMemoryBlobStore) PublicURL(key string) string {
	return "memory://" + key
}

// Get returns the stored content and metadata for a key; test helper.
func (s *InMemoryBlobStore) Get(key string) ([]byte, *BlobMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, nil, ErrBlobNotFound
	}
	meta := b.metadata
	return b.content, &meta, nil
}

// Len returns the number of stored blobs.
func (s *InMemoryBlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
