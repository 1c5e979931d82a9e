package blobstore

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestBuildKey(t *testing.T) {
	key := BuildKey("videos", "owner-1", "Lecture.MP4")
	if !strings.HasPrefix(key, "videos/owner-1/") {
		t.Errorf("key must start with category and owner: %s", key)
	}
	if !strings.HasSuffix(key, ".mp4") {
		t.Errorf("extension must be lowered and kept: %s", key)
	}

	// No extension in, none out.
	if key := BuildKey("avatars", "o", "photo"); strings.Contains(key[len("avatars/o/"):], ".") {
		t.Errorf("extensionless names must stay extensionless: %s", key)
	}

	// Keys are unique per upload.
	if BuildKey("videos", "o", "a.mp4") == BuildKey("videos", "o", "a.mp4") {
		t.Error("two uploads of the same name must get distinct keys")
	}
}

func TestInMemoryUploadAndGet(t *testing.T) {
	s := NewInMemoryBlobStore()

	meta, err := s.Upload(context.Background(), "videos", "owner-1", "clip.mp4", "video/mp4", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if meta.Size != int64(len("payload")) {
		t.Errorf("size mismatch: %d", meta.Size)
	}
	if meta.PublicURL != s.PublicURL(meta.Key) {
		t.Errorf("metadata must carry the public URL: %s", meta.PublicURL)
	}

	data, got, err := s.Get(meta.Key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("content mismatch: %q", data)
	}
	if got.ContentType != "video/mp4" {
		t.Errorf("content type mismatch: %s", got.ContentType)
	}
}

func TestUploadValidation(t *testing.T) {
	s := NewInMemoryBlobStore()
	ctx := context.Background()

	if _, err := s.Upload(ctx, "videos", "o", "", "video/mp4", strings.NewReader("x")); !errors.Is(err, ErrMissingFileName) {
		t.Errorf("missing file name: got %v", err)
	}
	if _, err := s.Upload(ctx, "backups", "o", "a.mp4", "video/mp4", strings.NewReader("x")); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("unknown category: got %v", err)
	}
	if _, err := s.Upload(ctx, "videos", "o", "a.exe", "application/x-msdownload", strings.NewReader("x")); !errors.Is(err, ErrInvalidContentType) {
		t.Errorf("forbidden content type: got %v", err)
	}
	// An empty content type skips the MIME check.
	if _, err := s.Upload(ctx, "videos", "o", "a.bin", "", strings.NewReader("x")); err != nil {
		t.Errorf("empty content type must pass: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("only the valid upload may be stored, got %d", s.Len())
	}
}

func TestDelete(t *testing.T) {
	s := NewInMemoryBlobStore()
	meta, err := s.Upload(context.Background(), "thumbnails", "o", "t.png", "image/png", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if err := s.Delete(context.Background(), meta.Key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(context.Background(), meta.Key); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("second delete: got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("store must be empty, got %d", s.Len())
	}
}
