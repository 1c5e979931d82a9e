package medicalnote

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const noteCols = `id, doctor_id, patient_id, appointment_id, content, created_at, updated_at`

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.DoctorID, &n.PatientID, &n.AppointmentID,
		&n.Content, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repoPG) Create(ctx context.Context, n *Note) error {
	n.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO medical_note (id, doctor_id, patient_id, appointment_id, content)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		n.ID, n.DoctorID, n.PatientID, n.AppointmentID, n.Content).
		Scan(&n.CreatedAt, &n.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Note, error) {
	return scanNote(r.pool.QueryRow(ctx,
		`SELECT `+noteCols+` FROM medical_note WHERE id = $1`, id))
}

func (r *repoPG) UpdateContent(ctx context.Context, id uuid.UUID, content Content) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE medical_note SET content = $2, updated_at = NOW() WHERE id = $1`, id, content)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM medical_note WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) list(ctx context.Context, col string, id uuid.UUID, limit, offset int) ([]*Note, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_note WHERE `+col+` = $1`, id).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+noteCols+` FROM medical_note
		WHERE `+col+` = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, id, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Note, int, error) {
	return r.list(ctx, "patient_id", patientID, limit, offset)
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Note, int, error) {
	return r.list(ctx, "doctor_id", doctorID, limit, offset)
}
