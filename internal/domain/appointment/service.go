package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service applies validated state changes to appointments and derives the
// doctor and patient views.
type Service struct {
	repo   Repository
	users  UserDirectory
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, users UserDirectory, logger zerolog.Logger) *Service {
	return &Service{repo: repo, users: users, logger: logger, now: time.Now}
}

// Book creates a patient-initiated appointment in pending state.
func (s *Service) Book(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, note *string) (*Appointment, error) {
	if doctorID == uuid.Nil {
		return nil, fmt.Errorf("doctor_id is required")
	}
	if date.IsZero() {
		return nil, fmt.Errorf("appointment_date is required")
	}
	if midnight(date).Before(midnight(s.now())) {
		return nil, fmt.Errorf("appointment_date cannot be in the past")
	}

	doctor, err := s.users.Lookup(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("doctor not found")
	}
	if doctor.Role != "doctor" {
		return nil, fmt.Errorf("appointments can only be booked with a doctor")
	}

	a := &Appointment{
		PatientID:       patientID,
		DoctorID:        doctorID,
		AppointmentDate: date,
		Status:          StatusPending,
		Note:            note,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Transition validates actor authorization and date constraints, then applies
// a partial update to one appointment. Every failure is reported through the
// result, never as an error; the caller renders the message as-is.
//
// Re-applying an already-held status is accepted: there is no transition
// table restricting which status can follow which.
func (s *Service) Transition(ctx context.Context, actorID, apptID uuid.UUID, req TransitionRequest) TransitionResult {
	appt, err := s.repo.GetByID(ctx, apptID)
	if err != nil {
		return TransitionResult{Success: false, Message: msgNotFound}
	}

	// Ownership is checked against the freshly read row, never against
	// anything the client sent.
	if appt.DoctorID != actorID {
		return TransitionResult{Success: false, Message: msgNotAuthorized}
	}

	if req.Status != nil && !ValidStatus(*req.Status) {
		return TransitionResult{Success: false, Message: msgInvalidStatus}
	}

	if req.AppointmentDate != nil {
		// Calendar-day comparison: a same-day earlier time passes.
		if midnight(*req.AppointmentDate).Before(midnight(s.now())) {
			return TransitionResult{Success: false, Message: msgPastDate}
		}
	}

	upd := Update{
		AppointmentDate: req.AppointmentDate,
		Status:          req.Status,
	}
	if req.Note != nil {
		upd.NoteSet = true
		upd.Note = *req.Note
	}

	if err := s.repo.Apply(ctx, apptID, upd); err != nil {
		s.logger.Error().Err(err).Str("appointment_id", apptID.String()).Msg("appointment update failed")
		return TransitionResult{Success: false, Message: msgWriteFailed}
	}

	if req.Status != nil {
		if msg, ok := statusMessages[*req.Status]; ok {
			return TransitionResult{Success: true, Message: msg}
		}
	}
	return TransitionResult{Success: true, Message: msgUpdated}
}

// Get returns one appointment, restricted to its two parties.
func (s *Service) Get(ctx context.Context, actorID, apptID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, apptID)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != actorID && appt.PatientID != actorID {
		return nil, fmt.Errorf("not a party to this appointment")
	}
	return appt, nil
}

// DoctorView returns the doctor's appointment set with search, status and
// date filters and the requested sort applied.
func (s *Service) DoctorView(ctx context.Context, doctorID uuid.UUID, f ListFilter) ([]*WithPatient, error) {
	items, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return FilterAndSort(items, f, s.now()), nil
}

// PatientAppointments lists a patient's own appointments, newest first.
func (s *Service) PatientAppointments(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// ConfirmationPayload carries everything the confirmation email template
// needs.
type ConfirmationPayload struct {
	PatientID    uuid.UUID
	PatientEmail string
	Data         map[string]string
}

// ConfirmationDetails assembles the notification payload for a confirmed
// appointment. Sending stays a separate, deliberately decoupled action; this
// only gathers the data and re-checks ownership.
func (s *Service) ConfirmationDetails(ctx context.Context, actorID, apptID uuid.UUID) (*ConfirmationPayload, error) {
	appt, err := s.repo.GetByID(ctx, apptID)
	if err != nil {
		return nil, fmt.Errorf("appointment not found")
	}
	if appt.DoctorID != actorID {
		return nil, fmt.Errorf("not the owner of this appointment")
	}

	patient, err := s.users.Lookup(ctx, appt.PatientID)
	if err != nil {
		return nil, fmt.Errorf("patient not found")
	}
	doctor, err := s.users.Lookup(ctx, appt.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("doctor not found")
	}

	return &ConfirmationPayload{
		PatientID:    patient.ID,
		PatientEmail: patient.Email,
		Data: map[string]string{
			"first_name":       patient.FirstName,
			"date":             appt.AppointmentDate.Format("02/01/2006 15:04"),
			"doctor_name":      doctor.FirstName + " " + doctor.LastName,
			"doctor_specialty": doctor.Specialty,
		},
	}, nil
}
