package chat

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// FindOrCreateConversation returns the conversation between a doctor and
	// a patient, creating it when missing.
	FindOrCreateConversation(ctx context.Context, doctorID, patientID uuid.UUID) (*Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error)
	// ListConversations returns userID's conversations ordered by most recent
	// activity, each with its last message and the count of messages sent by
	// the other party that userID has not read yet.
	ListConversations(ctx context.Context, userID uuid.UUID) ([]*Conversation, error)
	CreateMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error)
	// MarkRead stamps read_at on all unread messages in the conversation that
	// were sent by someone other than readerID.
	MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) error
}
