package comment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, cm *Comment) error
	GetByID(ctx context.Context, id, viewerID uuid.UUID) (*Comment, error)
	UpdateBody(ctx context.Context, id uuid.UUID, body string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByVideo(ctx context.Context, videoID, viewerID uuid.UUID, limit, offset int) ([]*Comment, int, error)
	ToggleLike(ctx context.Context, id, viewerID uuid.UUID) (liked bool, likeCount int, err error)
}
