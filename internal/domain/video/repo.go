package video

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, v *Video) error
	// GetByID loads one video with its like count and whether viewerID has
	// liked it.
	GetByID(ctx context.Context, id, viewerID uuid.UUID) (*Video, error)
	UpdateMeta(ctx context.Context, id uuid.UUID, title, description *string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, viewerID uuid.UUID, doctorID *uuid.UUID, limit, offset int) ([]*Video, int, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
	// ToggleLike flips viewerID's like on a video and returns the new state
	// plus the resulting like count.
	ToggleLike(ctx context.Context, id, viewerID uuid.UUID) (liked bool, likeCount int, err error)
}
