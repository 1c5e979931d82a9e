package video

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mediclass/mediclass/internal/platform/blobstore"
)

type Service struct {
	repo   Repository
	blobs  blobstore.BlobStore
	logger zerolog.Logger
}

func NewService(repo Repository, blobs blobstore.BlobStore, logger zerolog.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, logger: logger}
}

// UploadRequest carries the metadata and streams for a new video. Thumbnail
// is optional.
type UploadRequest struct {
	Title                string
	Description          string
	FileName             string
	ContentType          string
	Content              io.Reader
	ThumbnailName        string
	ThumbnailContentType string
	Thumbnail            io.Reader
}

// Publish stores the media, then the metadata row. If the row insert fails
// the uploaded blobs are deleted again, best-effort.
func (s *Service) Publish(ctx context.Context, doctorID uuid.UUID, req UploadRequest) (*Video, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}

	meta, err := s.blobs.Upload(ctx, "videos", doctorID.String(), req.FileName, req.ContentType, req.Content)
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}

	v := &Video{
		DoctorID:    doctorID,
		Title:       req.Title,
		Description: req.Description,
		VideoKey:    meta.Key,
	}

	if req.Thumbnail != nil && req.ThumbnailName != "" {
		thumb, err := s.blobs.Upload(ctx, "thumbnails", doctorID.String(), req.ThumbnailName, req.ThumbnailContentType, req.Thumbnail)
		if err != nil {
			s.cleanupBlob(ctx, meta.Key)
			return nil, fmt.Errorf("upload thumbnail: %w", err)
		}
		v.ThumbnailKey = &thumb.Key
	}

	if err := s.repo.Create(ctx, v); err != nil {
		s.cleanupBlob(ctx, v.VideoKey)
		if v.ThumbnailKey != nil {
			s.cleanupBlob(ctx, *v.ThumbnailKey)
		}
		return nil, err
	}

	s.fillURLs(v)
	return v, nil
}

func (s *Service) cleanupBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("orphan blob cleanup failed")
	}
}

func (s *Service) fillURLs(v *Video) {
	v.VideoURL = s.blobs.PublicURL(v.VideoKey)
	if v.ThumbnailKey != nil {
		v.ThumbnailURL = s.blobs.PublicURL(*v.ThumbnailKey)
	}
}

// Watch returns a video and counts the view.
func (s *Service) Watch(ctx context.Context, viewerID, videoID uuid.UUID) (*Video, error) {
	v, err := s.repo.GetByID(ctx, videoID, viewerID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.IncrementViews(ctx, videoID); err != nil {
		s.logger.Error().Err(err).Str("video_id", videoID.String()).Msg("view count increment failed")
	} else {
		v.ViewCount++
	}
	s.fillURLs(v)
	return v, nil
}

// UpdateMeta edits title and description; owner only.
func (s *Service) UpdateMeta(ctx context.Context, actorID, videoID uuid.UUID, title, description *string) (*Video, error) {
	v, err := s.repo.GetByID(ctx, videoID, actorID)
	if err != nil {
		return nil, err
	}
	if v.DoctorID != actorID {
		return nil, ErrNotAuthorized
	}
	if err := s.repo.UpdateMeta(ctx, videoID, title, description); err != nil {
		return nil, err
	}
	v, err = s.repo.GetByID(ctx, videoID, actorID)
	if err != nil {
		return nil, err
	}
	s.fillURLs(v)
	return v, nil
}

// Remove deletes the row first, then the blobs; owner only.
func (s *Service) Remove(ctx context.Context, actorID, videoID uuid.UUID) error {
	v, err := s.repo.GetByID(ctx, videoID, actorID)
	if err != nil {
		return err
	}
	if v.DoctorID != actorID {
		return ErrNotAuthorized
	}
	if err := s.repo.Delete(ctx, videoID); err != nil {
		return err
	}
	s.cleanupBlob(ctx, v.VideoKey)
	if v.ThumbnailKey != nil {
		s.cleanupBlob(ctx, *v.ThumbnailKey)
	}
	return nil
}

// List returns videos, optionally restricted to one doctor.
func (s *Service) List(ctx context.Context, viewerID uuid.UUID, doctorID *uuid.UUID, limit, offset int) ([]*Video, int, error) {
	items, total, err := s.repo.List(ctx, viewerID, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, v := range items {
		s.fillURLs(v)
	}
	return items, total, nil
}

// ToggleLike flips the viewer's like on a video.
func (s *Service) ToggleLike(ctx context.Context, viewerID, videoID uuid.UUID) (bool, int, error) {
	if _, err := s.repo.GetByID(ctx, videoID, viewerID); err != nil {
		return false, 0, err
	}
	return s.repo.ToggleLike(ctx, videoID, viewerID)
}
