package comment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// maxBodyLength bounds a comment body in runes.
const maxBodyLength = 2000

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func validateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("comment body is required")
	}
	if len([]rune(body)) > maxBodyLength {
		return "", fmt.Errorf("comment body exceeds %d characters", maxBodyLength)
	}
	return body, nil
}

// Post adds a comment to a video.
func (s *Service) Post(ctx context.Context, authorID, videoID uuid.UUID, body string) (*Comment, error) {
	body, err := validateBody(body)
	if err != nil {
		return nil, err
	}

	cm := &Comment{VideoID: videoID, AuthorID: authorID, Body: body}
	if err := s.repo.Create(ctx, cm); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cm.ID, authorID)
}

// Edit replaces the body of the caller's own comment.
func (s *Service) Edit(ctx context.Context, actorID, commentID uuid.UUID, body string) (*Comment, error) {
	body, err := validateBody(body)
	if err != nil {
		return nil, err
	}

	cm, err := s.repo.GetByID(ctx, commentID, actorID)
	if err != nil {
		return nil, err
	}
	if cm.AuthorID != actorID {
		return nil, ErrNotAuthorized
	}
	if err := s.repo.UpdateBody(ctx, commentID, body); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, commentID, actorID)
}

// Remove deletes the caller's own comment.
func (s *Service) Remove(ctx context.Context, actorID, commentID uuid.UUID) error {
	cm, err := s.repo.GetByID(ctx, commentID, actorID)
	if err != nil {
		return err
	}
	if cm.AuthorID != actorID {
		return ErrNotAuthorized
	}
	return s.repo.Delete(ctx, commentID)
}

// ForVideo lists a video's comments, newest first.
func (s *Service) ForVideo(ctx context.Context, viewerID, videoID uuid.UUID, limit, offset int) ([]*Comment, int, error) {
	return s.repo.ListByVideo(ctx, videoID, viewerID, limit, offset)
}

// ToggleLike flips the viewer's like on a comment.
func (s *Service) ToggleLike(ctx context.Context, actorID, commentID uuid.UUID) (bool, int, error) {
	if _, err := s.repo.GetByID(ctx, commentID, actorID); err != nil {
		return false, 0, err
	}
	return s.repo.ToggleLike(ctx, commentID, actorID)
}
