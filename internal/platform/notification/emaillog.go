package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EmailType identifies the kind of transactional email in the email_log
// ledger. The reject value keeps its historical spelling so existing rows
// still count against the window.
type EmailType string

const (
	TypeVerification            EmailType = "verification"
	TypeAppointmentConfirmation EmailType = "appointment_confirmation"
	TypeDoctorApproval          EmailType = "doctor_approved"
	TypeDoctorRejection         EmailType = "reject_teacher"
)

// EmailLog is one row of the send ledger. Rows are append-only: one per
// successful send, never updated, never pruned.
type EmailLog struct {
	ID     uuid.UUID `db:"id" json:"id"`
	UserID uuid.UUID `db:"user_id" json:"user_id"`
	Type   EmailType `db:"type" json:"type"`
	SentAt time.Time `db:"sent_at" json:"sent_at"`
}

type EmailLogRepository interface {
	// CountSince returns how many rows exist for (userID, emailType) with
	// sent_at strictly after since.
	CountSince(ctx context.Context, userID uuid.UUID, emailType EmailType, since time.Time) (int, error)
	Append(ctx context.Context, entry *EmailLog) error
}

type emailLogRepoPG struct{ pool *pgxpool.Pool }

func NewEmailLogRepoPG(pool *pgxpool.Pool) EmailLogRepository {
	return &emailLogRepoPG{pool: pool}
}

func (r *emailLogRepoPG) CountSince(ctx context.Context, userID uuid.UUID, emailType EmailType, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM email_log WHERE user_id = $1 AND type = $2 AND sent_at > $3`,
		userID, emailType, since).Scan(&count)
	return count, err
}

func (r *emailLogRepoPG) Append(ctx context.Context, entry *EmailLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO email_log (id, user_id, type, sent_at) VALUES ($1, $2, $3, $4)`,
		entry.ID, entry.UserID, entry.Type, entry.SentAt)
	return err
}
