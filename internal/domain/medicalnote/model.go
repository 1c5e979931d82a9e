package medicalnote

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("medical note not found")
	ErrNotAuthorized = errors.New("not authorized for this medical note")
	ErrNotPatient    = errors.New("target user is not a patient")
)

// Medication is one prescribed line inside a note's content.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// Content is the structured body of a note, stored as a single jsonb column
// so the schema can grow without migrations.
type Content struct {
	Diagnosis       string       `json:"diagnosis"`
	Symptoms        []string     `json:"symptoms,omitempty"`
	Treatment       string       `json:"treatment,omitempty"`
	Medications     []Medication `json:"medications,omitempty"`
	TestsOrdered    []string     `json:"tests_ordered,omitempty"`
	FollowUp        string       `json:"follow_up,omitempty"`
	AdditionalNotes string       `json:"additional_notes,omitempty"`
}

// Note maps to the medical_note table. AppointmentID is optional; a note can
// exist outside any appointment.
type Note struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	DoctorID      uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	AppointmentID *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	Content       Content    `db:"content" json:"content"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}
