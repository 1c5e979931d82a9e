package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) FindOrCreateConversation(ctx context.Context, doctorID, patientID uuid.UUID) (*Conversation, error) {
	var conv Conversation
	err := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, patient_id, created_at
		FROM conversation WHERE doctor_id = $1 AND patient_id = $2`,
		doctorID, patientID).
		Scan(&conv.ID, &conv.DoctorID, &conv.PatientID, &conv.CreatedAt)
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	conv = Conversation{ID: uuid.New(), DoctorID: doctorID, PatientID: patientID}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO conversation (id, doctor_id, patient_id)
		VALUES ($1,$2,$3)
		ON CONFLICT (doctor_id, patient_id) DO UPDATE SET doctor_id = EXCLUDED.doctor_id
		RETURNING id, created_at`,
		conv.ID, doctorID, patientID).
		Scan(&conv.ID, &conv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *repoPG) GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	var conv Conversation
	err := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, patient_id, created_at
		FROM conversation WHERE id = $1`, id).
		Scan(&conv.ID, &conv.DoctorID, &conv.PatientID, &conv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *repoPG) ListConversations(ctx context.Context, userID uuid.UUID) ([]*Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.doctor_id, c.patient_id, c.created_at,
			m.id, m.sender_id, m.body, m.read_at, m.created_at,
			(SELECT COUNT(*) FROM message u
				WHERE u.conversation_id = c.id AND u.sender_id <> $1 AND u.read_at IS NULL) AS unread
		FROM conversation c
		LEFT JOIN LATERAL (
			SELECT id, sender_id, body, read_at, created_at
			FROM message WHERE conversation_id = c.id
			ORDER BY created_at DESC LIMIT 1
		) m ON TRUE
		WHERE c.doctor_id = $1 OR c.patient_id = $1
		ORDER BY COALESCE(m.created_at, c.created_at) DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Conversation
	for rows.Next() {
		var conv Conversation
		var msgID, senderID *uuid.UUID
		var body *string
		var readAt, msgCreated *time.Time
		if err := rows.Scan(&conv.ID, &conv.DoctorID, &conv.PatientID, &conv.CreatedAt,
			&msgID, &senderID, &body, &readAt, &msgCreated, &conv.UnreadCount); err != nil {
			return nil, err
		}
		if msgID != nil {
			conv.LastMessage = &Message{
				ID:             *msgID,
				ConversationID: conv.ID,
				SenderID:       *senderID,
				Body:           *body,
				ReadAt:         readAt,
				CreatedAt:      *msgCreated,
			}
		}
		items = append(items, &conv)
	}
	return items, rows.Err()
}

func (r *repoPG) CreateMessage(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO message (id, conversation_id, sender_id, body)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		m.ID, m.ConversationID, m.SenderID, m.Body).
		Scan(&m.CreatedAt)
}

func (r *repoPG) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM message WHERE conversation_id = $1`, conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id, sender_id, body, read_at, created_at
		FROM message
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &m)
	}
	return items, total, rows.Err()
}

func (r *repoPG) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE message SET read_at = NOW()
		WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL`,
		conversationID, readerID)
	return err
}
