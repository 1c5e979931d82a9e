package identity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors surfaced to the HTTP layer.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotFound           = errors.New("user not found")
)

// Doctor account approval states.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// User maps to the app_user table.
type User struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	Role          string    `db:"role" json:"role"`
	AvatarURL     *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	EmailVerified bool      `db:"email_verified" json:"email_verified"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// DoctorProfile maps to the doctor_profile table; rows exist only for users
// with the doctor role.
type DoctorProfile struct {
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	Specialty      string    `db:"specialty" json:"specialty"`
	Bio            *string   `db:"bio" json:"bio,omitempty"`
	LicenseNumber  string    `db:"license_number" json:"license_number"`
	ApprovalStatus string    `db:"approval_status" json:"approval_status"`
}

// UserWithProfile joins a user with their doctor profile when one exists.
type UserWithProfile struct {
	User
	Profile *DoctorProfile `json:"profile,omitempty"`
}

// ProfileUpdate describes a partial profile update; nil fields are left
// untouched.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}
