package identity

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	CreateDoctorProfile(ctx context.Context, p *DoctorProfile) error
	// Delete hard-removes a user row; used only to roll back a partially
	// completed signup.
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*UserWithProfile, error)
	GetByEmail(ctx context.Context, email string) (*UserWithProfile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) error
	SetEmailVerified(ctx context.Context, id uuid.UUID) error
	SetApprovalStatus(ctx context.Context, userID uuid.UUID, status string) error
	ListDoctors(ctx context.Context, approvalStatus string, limit, offset int) ([]*UserWithProfile, int, error)
}
