package comment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("comment not found")
	ErrNotAuthorized = errors.New("not authorized for this comment")
)

// Comment maps to the comment table; one comment on one video. AuthorName is
// joined from app_user for display.
type Comment struct {
	ID         uuid.UUID `db:"id" json:"id"`
	VideoID    uuid.UUID `db:"video_id" json:"video_id"`
	AuthorID   uuid.UUID `db:"author_id" json:"author_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `db:"body" json:"body"`
	LikeCount  int       `json:"like_count"`
	Liked      bool      `json:"liked"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
