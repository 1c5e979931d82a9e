package appointment

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the appointment lifecycle state. No transition graph is
// enforced: any status may be set from any other.
type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusRejected    Status = "rejected"
	StatusRescheduled Status = "rescheduled"
	StatusCompleted   Status = "completed"
)

var validStatuses = map[Status]bool{
	StatusPending:     true,
	StatusConfirmed:   true,
	StatusRejected:    true,
	StatusRescheduled: true,
	StatusCompleted:   true,
}

// ValidStatus reports whether s is one of the five lifecycle states.
func ValidStatus(s Status) bool { return validStatuses[s] }

// Appointment maps to the appointment table.
type Appointment struct {
	ID              uuid.UUID `db:"id" json:"id"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID `db:"doctor_id" json:"doctor_id"`
	AppointmentDate time.Time `db:"appointment_date" json:"appointment_date"`
	Status          Status    `db:"status" json:"status"`
	Note            *string   `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// PatientInfo is the slice of the patient record the doctor view displays
// and searches over.
type PatientInfo struct {
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Email     string `db:"email" json:"email"`
}

// DisplayName returns "First Last" for sorting and rendering.
func (p PatientInfo) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// WithPatient joins an appointment with the booking patient's details.
type WithPatient struct {
	Appointment
	Patient PatientInfo `json:"patient"`
}

// TransitionRequest is the partial-update payload for the status transition
// handler. Omitted fields leave the stored value untouched; a Note of ""
// clears the field.
type TransitionRequest struct {
	AppointmentDate *time.Time `json:"appointment_date,omitempty"`
	Status          *Status    `json:"status,omitempty"`
	Note            *string    `json:"note,omitempty"`
}

// TransitionResult is consumed by the UI as a toast; failures never surface
// as transport errors.
type TransitionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// statusMessages maps the applied status to the localized success copy.
var statusMessages = map[Status]string{
	StatusConfirmed:   "Rendez-vous confirmé avec succès",
	StatusRejected:    "Rendez-vous refusé",
	StatusCompleted:   "Rendez-vous marqué comme terminé",
	StatusRescheduled: "Rendez-vous reporté avec succès",
	StatusPending:     "Rendez-vous remis en attente",
}

const (
	msgUpdated       = "Rendez-vous mis à jour avec succès"
	msgNotFound      = "Rendez-vous introuvable"
	msgNotAuthorized = "Vous n'êtes pas autorisé à modifier ce rendez-vous"
	msgPastDate      = "La date du rendez-vous ne peut pas être dans le passé"
	msgInvalidStatus = "Statut de rendez-vous invalide"
	msgWriteFailed   = "La mise à jour du rendez-vous a échoué"
)

// ---------------------------------------------------------------------------
// Doctor view filtering and sorting
// ---------------------------------------------------------------------------

// Date-range filters, computed against today at midnight.
const (
	RangeAll    = "all"
	RangeToday  = "today"
	RangeWeek   = "week"
	RangeFuture = "future"
	RangePast   = "past"
)

// Sort keys.
const (
	SortDateAsc     = "date_asc"
	SortDateDesc    = "date_desc"
	SortCreatedDesc = "created_desc"
	SortPatientName = "patient_name"
)

// ListFilter holds the doctor view's search, filter and sort inputs. Zero
// values mean "no restriction".
type ListFilter struct {
	Query     string
	Status    string // one of the five statuses, or "" / "all"
	DateRange string // RangeAll..RangePast, "" means all
	Sort      string // SortDateAsc.., "" means SortDateAsc
}

// midnight truncates t to the start of its calendar day.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FilterAndSort derives the doctor view from the full appointment set. It is
// recomputed from scratch on every call; the per-doctor volumes (tens to low
// hundreds of rows) make that the simplest correct choice.
func FilterAndSort(items []*WithPatient, f ListFilter, now time.Time) []*WithPatient {
	today := midnight(now)
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]*WithPatient, 0, len(items))
	for _, it := range items {
		if query != "" {
			hay := strings.ToLower(it.Patient.FirstName + " " + it.Patient.LastName + " " + it.Patient.Email)
			if !strings.Contains(hay, query) {
				continue
			}
		}

		if f.Status != "" && f.Status != "all" && string(it.Status) != f.Status {
			continue
		}

		day := midnight(it.AppointmentDate)
		switch f.DateRange {
		case "", RangeAll:
		case RangeToday:
			if !day.Equal(today) {
				continue
			}
		case RangeWeek:
			// Next 7 days, today included.
			if day.Before(today) || day.After(today.AddDate(0, 0, 6)) {
				continue
			}
		case RangeFuture:
			if day.Before(today) {
				continue
			}
		case RangePast:
			if !day.Before(today) {
				continue
			}
		default:
			// Unknown range behaves like "all".
		}

		out = append(out, it)
	}

	switch f.Sort {
	case SortDateDesc:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].AppointmentDate.After(out[j].AppointmentDate)
		})
	case SortCreatedDesc:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	case SortPatientName:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Patient.DisplayName()) < strings.ToLower(out[j].Patient.DisplayName())
		})
	default: // SortDateAsc
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].AppointmentDate.Before(out[j].AppointmentDate)
		})
	}

	return out
}
