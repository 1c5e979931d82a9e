package medicalnote

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mediclass/mediclass/internal/platform/auth"
)

// RoleLookup resolves a user id to its role; used to check the note target
// really is a patient account.
type RoleLookup interface {
	RoleOf(ctx context.Context, id uuid.UUID) (string, error)
}

type Service struct {
	repo   Repository
	roles  RoleLookup
	logger zerolog.Logger
}

func NewService(repo Repository, roles RoleLookup, logger zerolog.Logger) *Service {
	return &Service{repo: repo, roles: roles, logger: logger}
}

// Create writes a new note authored by the calling doctor for the given
// patient. The target account must carry the patient role.
func (s *Service) Create(ctx context.Context, doctorID, patientID uuid.UUID, appointmentID *uuid.UUID, content Content) (*Note, error) {
	role, err := s.roles.RoleOf(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if role != auth.RolePatient {
		return nil, ErrNotPatient
	}

	n := &Note{
		DoctorID:      doctorID,
		PatientID:     patientID,
		AppointmentID: appointmentID,
		Content:       content,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Get returns a note if the caller is its author or its patient.
func (s *Service) Get(ctx context.Context, actorID, noteID uuid.UUID) (*Note, error) {
	n, err := s.repo.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if n.DoctorID != actorID && n.PatientID != actorID {
		return nil, ErrNotAuthorized
	}
	return n, nil
}

// Update replaces the note content; only the authoring doctor may do it.
func (s *Service) Update(ctx context.Context, actorID, noteID uuid.UUID, content Content) (*Note, error) {
	n, err := s.repo.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if n.DoctorID != actorID {
		return nil, ErrNotAuthorized
	}
	if err := s.repo.UpdateContent(ctx, noteID, content); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, noteID)
}

// Delete removes a note; only the authoring doctor may do it.
func (s *Service) Delete(ctx context.Context, actorID, noteID uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, noteID)
	if err != nil {
		return err
	}
	if n.DoctorID != actorID {
		return ErrNotAuthorized
	}
	return s.repo.Delete(ctx, noteID)
}

// ForPatient lists the caller's own notes as a patient.
func (s *Service) ForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Note, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// ForDoctor lists notes authored by the caller as a doctor.
func (s *Service) ForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Note, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}
