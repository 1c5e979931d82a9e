package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-gomail/gomail"
)

type fakeDialer struct {
	err   error
	calls int
}

func (f *fakeDialer) DialAndSend(_ ...*gomail.Message) error {
	f.calls++
	return f.err
}

func chainMailer(dialers ...*fakeDialer) *SMTPMailer {
	m := &SMTPMailer{cfg: SMTPConfig{Host: "smtp.example.com", From: "no-reply@example.com"}}
	names := []string{"starttls", "plain", "implicit-tls"}
	for i, d := range dialers {
		m.dialers = append(m.dialers, namedDialer{name: names[i], d: d})
	}
	return m
}

func TestSendFirstTransportWins(t *testing.T) {
	first := &fakeDialer{}
	second := &fakeDialer{}
	m := chainMailer(first, second)

	id, err := m.Send(context.Background(), "u@example.com", "subject", "<p>hi</p>")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if id == "" {
		t.Error("expected a message id")
	}
	if first.calls != 1 {
		t.Errorf("first dialer called %d times", first.calls)
	}
	if second.calls != 0 {
		t.Error("later transports must not be tried after a success")
	}
}

func TestSendFallsThroughChain(t *testing.T) {
	first := &fakeDialer{err: errors.New("tls handshake failure")}
	second := &fakeDialer{err: errors.New("connection reset")}
	third := &fakeDialer{}
	m := chainMailer(first, second, third)

	if _, err := m.Send(context.Background(), "u@example.com", "s", "b"); err != nil {
		t.Fatalf("third transport should deliver: %v", err)
	}
	if first.calls != 1 || second.calls != 1 || third.calls != 1 {
		t.Errorf("chain walk broken: %d %d %d", first.calls, second.calls, third.calls)
	}
}

func TestSendSurfacesLastError(t *testing.T) {
	first := &fakeDialer{err: errors.New("tls handshake failure")}
	second := &fakeDialer{err: errors.New("auth rejected")}
	m := chainMailer(first, second)

	_, err := m.Send(context.Background(), "u@example.com", "s", "b")
	if err == nil {
		t.Fatal("expected failure when every transport fails")
	}
	if !strings.Contains(err.Error(), "auth rejected") {
		t.Errorf("last error must be surfaced, got %v", err)
	}
	if !strings.Contains(err.Error(), "plain transport") {
		t.Errorf("error must name the failing transport, got %v", err)
	}
}

func TestSendHonorsContextCancellation(t *testing.T) {
	d := &fakeDialer{}
	m := chainMailer(d)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Send(ctx, "u@example.com", "s", "b"); err == nil {
		t.Fatal("cancelled context must abort the send")
	}
	if d.calls != 0 {
		t.Error("no transport may be tried after cancellation")
	}
}

func TestNewSMTPMailerChainOrder(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587})
	if len(m.dialers) != 3 {
		t.Fatalf("expected 3 transports, got %d", len(m.dialers))
	}
	want := []string{"starttls", "plain", "implicit-tls"}
	for i, nd := range m.dialers {
		if nd.name != want[i] {
			t.Errorf("transport %d is %q, want %q", i, nd.name, want[i])
		}
	}
}
