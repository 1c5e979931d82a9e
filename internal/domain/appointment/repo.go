package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Update describes a partial update. Nil fields are left untouched. NoteSet
// distinguishes "clear the note" (NoteSet with empty Note) from "leave it".
type Update struct {
	AppointmentDate *time.Time
	Status          *Status
	NoteSet         bool
	Note            string
}

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// Apply performs a partial update and stamps updated_at.
	Apply(ctx context.Context, id uuid.UUID, upd Update) error
	// ListByDoctor returns the doctor's full appointment set joined with
	// patient details; filtering happens in memory.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*WithPatient, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
}

// UserInfo is the slice of the user record appointment flows need for
// authorization checks and notification payloads.
type UserInfo struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Role      string
	Specialty string
}

// UserDirectory resolves user ids to profile details. Implemented by the
// identity service.
type UserDirectory interface {
	Lookup(ctx context.Context, id uuid.UUID) (*UserInfo, error)
}
