package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mediclass/mediclass/internal/platform/auth"
	"github.com/mediclass/mediclass/internal/platform/websocket"
)

type pairKey struct {
	doctor  uuid.UUID
	patient uuid.UUID
}

type mockRepo struct {
	conversations map[uuid.UUID]*Conversation
	byPair        map[pairKey]uuid.UUID
	messages      map[uuid.UUID][]*Message
	readMarks     []uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		conversations: make(map[uuid.UUID]*Conversation),
		byPair:        make(map[pairKey]uuid.UUID),
		messages:      make(map[uuid.UUID][]*Message),
	}
}

func (m *mockRepo) FindOrCreateConversation(_ context.Context, doctorID, patientID uuid.UUID) (*Conversation, error) {
	k := pairKey{doctorID, patientID}
	if id, ok := m.byPair[k]; ok {
		return m.conversations[id], nil
	}
	c := &Conversation{ID: uuid.New(), DoctorID: doctorID, PatientID: patientID, CreatedAt: time.Now()}
	m.conversations[c.ID] = c
	m.byPair[k] = c.ID
	return c, nil
}

func (m *mockRepo) GetConversation(_ context.Context, id uuid.UUID) (*Conversation, error) {
	c, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockRepo) ListConversations(_ context.Context, userID uuid.UUID) ([]*Conversation, error) {
	var out []*Conversation
	for _, c := range m.conversations {
		if c.DoctorID == userID || c.PatientID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockRepo) CreateMessage(_ context.Context, msg *Message) error {
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], msg)
	return nil
}

func (m *mockRepo) ListMessages(_ context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	msgs := m.messages[conversationID]
	return msgs, len(msgs), nil
}

func (m *mockRepo) MarkRead(_ context.Context, conversationID, readerID uuid.UUID) error {
	m.readMarks = append(m.readMarks, conversationID)
	now := time.Now()
	for _, msg := range m.messages[conversationID] {
		if msg.SenderID != readerID && msg.ReadAt == nil {
			msg.ReadAt = &now
		}
	}
	return nil
}

type mockRoles struct {
	roles map[uuid.UUID]string
}

func (m *mockRoles) RoleOf(_ context.Context, id uuid.UUID) (string, error) {
	r, ok := m.roles[id]
	if !ok {
		return "", ErrNotFound
	}
	return r, nil
}

func (m *mockRoles) add(role string) uuid.UUID {
	id := uuid.New()
	m.roles[id] = role
	return id
}

type mockPublisher struct {
	events []websocket.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, ev websocket.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func newTestService() (*Service, *mockRepo, *mockRoles, *mockPublisher) {
	repo := newMockRepo()
	roles := &mockRoles{roles: make(map[uuid.UUID]string)}
	pub := &mockPublisher{}
	return NewService(repo, roles, pub, zerolog.Nop()), repo, roles, pub
}

func TestStartPairsDoctorAndPatient(t *testing.T) {
	svc, _, roles, _ := newTestService()
	doctor := roles.add(auth.RoleDoctor)
	patient := roles.add(auth.RolePatient)

	// Either side can open the conversation; both get the same one.
	c1, err := svc.Start(context.Background(), patient, doctor)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if c1.DoctorID != doctor || c1.PatientID != patient {
		t.Error("roles must land on the right columns")
	}

	c2, err := svc.Start(context.Background(), doctor, patient)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if c2.ID != c1.ID {
		t.Error("the pair must share a single conversation")
	}
}

func TestStartRejectsSameRolePairs(t *testing.T) {
	svc, _, roles, _ := newTestService()
	docA := roles.add(auth.RoleDoctor)
	docB := roles.add(auth.RoleDoctor)
	patA := roles.add(auth.RolePatient)
	patB := roles.add(auth.RolePatient)

	if _, err := svc.Start(context.Background(), docA, docB); err == nil {
		t.Error("two doctors cannot converse")
	}
	if _, err := svc.Start(context.Background(), patA, patB); err == nil {
		t.Error("two patients cannot converse")
	}
}

func TestSendBroadcastsMessage(t *testing.T) {
	svc, _, roles, pub := newTestService()
	doctor := roles.add(auth.RoleDoctor)
	patient := roles.add(auth.RolePatient)
	conv, err := svc.Start(context.Background(), doctor, patient)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	m, err := svc.Send(context.Background(), patient, conv.ID, "  Bonjour docteur  ")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if m.Body != "Bonjour docteur" {
		t.Errorf("body must be trimmed: %q", m.Body)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Type != "message.created" {
		t.Errorf("unexpected event type: %s", ev.Type)
	}
	if ev.Topic != websocket.ConversationTopic(conv.ID) {
		t.Errorf("unexpected topic: %s", ev.Topic)
	}
	var got Message
	if err := json.Unmarshal(ev.Data, &got); err != nil {
		t.Fatalf("event payload must be the message: %v", err)
	}
	if got.ID != m.ID {
		t.Error("payload carries the wrong message")
	}
}

func TestSendSurvivesBroadcastFailure(t *testing.T) {
	svc, repo, roles, pub := newTestService()
	pub.err = errors.New("hub down")
	doctor := roles.add(auth.RoleDoctor)
	patient := roles.add(auth.RolePatient)
	conv, err := svc.Start(context.Background(), doctor, patient)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := svc.Send(context.Background(), doctor, conv.ID, "toujours là ?"); err != nil {
		t.Fatalf("broadcast failure must not fail the send: %v", err)
	}
	if len(repo.messages[conv.ID]) != 1 {
		t.Error("message must be persisted regardless")
	}
}

func TestSendRejectsOutsiders(t *testing.T) {
	svc, _, roles, _ := newTestService()
	doctor := roles.add(auth.RoleDoctor)
	patient := roles.add(auth.RolePatient)
	stranger := roles.add(auth.RolePatient)
	conv, err := svc.Start(context.Background(), doctor, patient)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := svc.Send(context.Background(), stranger, conv.ID, "intrusion"); err != ErrNotParticipant {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}
}

func TestSendValidation(t *testing.T) {
	svc, _, roles, _ := newTestService()
	doctor := roles.add(auth.RoleDoctor)
	patient := roles.add(auth.RolePatient)
	conv, err := svc.Start(context.Background(), doctor, patient)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := svc.Send(context.Background(), doctor, conv.ID, "   "); err == nil {
		t.Error("blank body must be rejected")
	}
	if _, err := svc.Send(context.Background(), doctor, conv.ID, strings.Repeat("é", maxBodyLength+1)); err == nil {
		t.Error("over-long body must be rejected")
	}
}

func TestHistoryMarksRead(t *testing.T) {
	svc, repo, roles, _ := newTestService()
	doctor := roles.add(auth.RoleDoctor)
	patient := roles.add(auth.RolePatient)
	stranger := roles.add(auth.RolePatient)
	conv, err := svc.Start(context.Background(), doctor, patient)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := svc.Send(context.Background(), patient, conv.ID, "première question"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	msgs, total, err := svc.History(context.Background(), doctor, conv.ID, 50, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(msgs) != 1 || total != 1 {
		t.Errorf("expected 1 message, got %d (total %d)", len(msgs), total)
	}
	if msgs[0].ReadAt == nil {
		t.Error("reading the history must stamp the other party's messages read")
	}
	if len(repo.readMarks) != 1 {
		t.Errorf("expected 1 MarkRead call, got %d", len(repo.readMarks))
	}

	if _, _, err := svc.History(context.Background(), stranger, conv.ID, 50, 0); err != ErrNotParticipant {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}
}

func TestConversationsListsOwnOnly(t *testing.T) {
	svc, _, roles, _ := newTestService()
	doctor := roles.add(auth.RoleDoctor)
	patientA := roles.add(auth.RolePatient)
	patientB := roles.add(auth.RolePatient)

	if _, err := svc.Start(context.Background(), doctor, patientA); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := svc.Start(context.Background(), doctor, patientB); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	convs, err := svc.Conversations(context.Background(), patientA)
	if err != nil {
		t.Fatalf("Conversations failed: %v", err)
	}
	if len(convs) != 1 {
		t.Errorf("patient A has 1 conversation, got %d", len(convs))
	}

	convs, err = svc.Conversations(context.Background(), doctor)
	if err != nil {
		t.Fatalf("Conversations failed: %v", err)
	}
	if len(convs) != 2 {
		t.Errorf("doctor has 2 conversations, got %d", len(convs))
	}
}
