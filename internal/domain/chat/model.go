package chat

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("conversation not found")
	ErrNotParticipant = errors.New("not a participant of this conversation")
)

// Conversation maps to the conversation table; exactly two participants, one
// doctor and one patient.
type Conversation struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	DoctorID    uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	LastMessage *Message   `json:"last_message,omitempty"`
	UnreadCount int        `json:"unread_count"`
}

// Message maps to the message table.
type Message struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ConversationID uuid.UUID  `db:"conversation_id" json:"conversation_id"`
	SenderID       uuid.UUID  `db:"sender_id" json:"sender_id"`
	Body           string     `db:"body" json:"body"`
	ReadAt         *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
