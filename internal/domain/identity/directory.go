package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/mediclass/mediclass/internal/domain/appointment"
)

// Directory adapts the identity repository to the lookup interface the
// appointment service depends on.
type Directory struct {
	repo Repository
}

func NewDirectory(repo Repository) *Directory { return &Directory{repo: repo} }

func (d *Directory) Lookup(ctx context.Context, id uuid.UUID) (*appointment.UserInfo, error) {
	u, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	info := &appointment.UserInfo{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
	if u.Profile != nil {
		info.Specialty = u.Profile.Specialty
	}
	return info, nil
}

// RoleOf returns the role of a user id.
func (d *Directory) RoleOf(ctx context.Context, id uuid.UUID) (string, error) {
	u, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}
