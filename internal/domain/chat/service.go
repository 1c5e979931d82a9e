package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mediclass/mediclass/internal/platform/auth"
	"github.com/mediclass/mediclass/internal/platform/websocket"
)

// maxBodyLength bounds a chat message body in runes.
const maxBodyLength = 4000

// RoleLookup resolves a user id to its role; used to enforce the
// doctor/patient pairing of a conversation.
type RoleLookup interface {
	RoleOf(ctx context.Context, id uuid.UUID) (string, error)
}

type Service struct {
	repo      Repository
	roles     RoleLookup
	publisher websocket.EventPublisher
	logger    zerolog.Logger
}

func NewService(repo Repository, roles RoleLookup, publisher websocket.EventPublisher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, roles: roles, publisher: publisher, logger: logger}
}

func (s *Service) participant(conv *Conversation, userID uuid.UUID) bool {
	return conv.DoctorID == userID || conv.PatientID == userID
}

// Start opens (or returns the existing) conversation between the caller and
// the other party. Exactly one side must be a doctor and the other a patient.
func (s *Service) Start(ctx context.Context, actorID, otherID uuid.UUID) (*Conversation, error) {
	actorRole, err := s.roles.RoleOf(ctx, actorID)
	if err != nil {
		return nil, err
	}
	otherRole, err := s.roles.RoleOf(ctx, otherID)
	if err != nil {
		return nil, err
	}

	var doctorID, patientID uuid.UUID
	switch {
	case actorRole == auth.RoleDoctor && otherRole == auth.RolePatient:
		doctorID, patientID = actorID, otherID
	case actorRole == auth.RolePatient && otherRole == auth.RoleDoctor:
		doctorID, patientID = otherID, actorID
	default:
		return nil, fmt.Errorf("a conversation pairs one doctor with one patient")
	}

	return s.repo.FindOrCreateConversation(ctx, doctorID, patientID)
}

// Conversations lists the caller's conversations, most recent first.
func (s *Service) Conversations(ctx context.Context, actorID uuid.UUID) ([]*Conversation, error) {
	return s.repo.ListConversations(ctx, actorID)
}

// Send persists a message and broadcasts it to the conversation topic.
// Broadcast failure never fails the send.
func (s *Service) Send(ctx context.Context, actorID, conversationID uuid.UUID, body string) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("message body is required")
	}
	if len([]rune(body)) > maxBodyLength {
		return nil, fmt.Errorf("message body exceeds %d characters", maxBodyLength)
	}

	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !s.participant(conv, actorID) {
		return nil, ErrNotParticipant
	}

	m := &Message{ConversationID: conversationID, SenderID: actorID, Body: body}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(m)
	if err == nil {
		err = s.publisher.Publish(ctx, websocket.Event{
			Type:      "message.created",
			Topic:     websocket.ConversationTopic(conversationID),
			Timestamp: time.Now(),
			Data:      payload,
		})
	}
	if err != nil {
		s.logger.Error().Err(err).
			Str("conversation_id", conversationID.String()).
			Msg("message broadcast failed")
	}

	return m, nil
}

// History returns a page of messages, newest first, and marks the other
// party's messages read.
func (s *Service) History(ctx context.Context, actorID, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if !s.participant(conv, actorID) {
		return nil, 0, ErrNotParticipant
	}

	items, total, err := s.repo.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if err := s.repo.MarkRead(ctx, conversationID, actorID); err != nil {
		s.logger.Error().Err(err).
			Str("conversation_id", conversationID.String()).
			Msg("mark read failed")
	}
	return items, total, nil
}
