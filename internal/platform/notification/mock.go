package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MailCall records a single call to Send.
type MailCall struct {
	To      string
	Subject string
	Body    string
}

// MockMailer is a test double for Mailer.
type MockMailer struct {
	mu         sync.Mutex
	calls      []MailCall
	ShouldFail bool
	FailError  string
}

// Send records the call and optionally returns an error.
func (m *MockMailer) Send(_ context.Context, to, subject, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return "", errors.New(m.FailError)
	}
	return uuid.New().String(), nil
}

// Calls returns a copy of recorded mail calls.
func (m *MockMailer) Calls() []MailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MailCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// InMemoryEmailLog is a thread-safe EmailLogRepository for tests and
// development.
type InMemoryEmailLog struct {
	mu      sync.Mutex
	entries []EmailLog
}

func NewInMemoryEmailLog() *InMemoryEmailLog {
	return &InMemoryEmailLog{}
}

func (l *InMemoryEmailLog) CountSince(_ context.Context, userID uuid.UUID, emailType EmailType, since time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, e := range l.entries {
		if e.UserID == userID && e.Type == emailType && e.SentAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (l *InMemoryEmailLog) Append(_ context.Context, entry *EmailLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}
	l.entries = append(l.entries, *entry)
	return nil
}

// Len returns the number of ledger rows.
func (l *InMemoryEmailLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
