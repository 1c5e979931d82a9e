package appointment

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const apptCols = `id, patient_id, doctor_id, appointment_date, status, note, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.AppointmentDate,
		&a.Status, &a.Note, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO appointment (id, patient_id, doctor_id, appointment_date, status, note)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.AppointmentDate, a.Status, a.Note).
		Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *repoPG) Apply(ctx context.Context, id uuid.UUID, upd Update) error {
	// COALESCE keeps omitted fields; an empty provided note becomes NULL.
	_, err := r.pool.Exec(ctx, `
		UPDATE appointment SET
			appointment_date = COALESCE($2, appointment_date),
			status           = COALESCE($3, status),
			note             = CASE WHEN $4 THEN NULLIF($5, '') ELSE note END,
			updated_at       = NOW()
		WHERE id = $1`,
		id, upd.AppointmentDate, upd.Status, upd.NoteSet, upd.Note)
	return err
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*WithPatient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.patient_id, a.doctor_id, a.appointment_date, a.status, a.note,
		       a.created_at, a.updated_at,
		       u.first_name, u.last_name, u.email
		FROM appointment a
		JOIN app_user u ON u.id = a.patient_id
		WHERE a.doctor_id = $1
		ORDER BY a.appointment_date ASC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*WithPatient
	for rows.Next() {
		var it WithPatient
		if err := rows.Scan(&it.ID, &it.PatientID, &it.DoctorID, &it.AppointmentDate,
			&it.Status, &it.Note, &it.CreatedAt, &it.UpdatedAt,
			&it.Patient.FirstName, &it.Patient.LastName, &it.Patient.Email); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+apptCols+` FROM appointment
		 WHERE patient_id = $1
		 ORDER BY appointment_date DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
