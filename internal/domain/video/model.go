package video

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("video not found")
	ErrNotAuthorized = errors.New("not authorized for this video")
)

// Video maps to the video table. URLs point at the CDN pull zone.
type Video struct {
	ID           uuid.UUID `db:"id" json:"id"`
	DoctorID     uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description,omitempty"`
	VideoKey     string    `db:"video_key" json:"-"`
	VideoURL     string    `json:"video_url"`
	ThumbnailKey *string   `db:"thumbnail_key" json:"-"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	ViewCount    int       `db:"view_count" json:"view_count"`
	LikeCount    int       `json:"like_count"`
	Liked        bool      `json:"liked"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
