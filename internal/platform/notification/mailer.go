// Package notification sends transactional email for lifecycle events. It
// wraps an SMTP transport behind the Mailer interface, renders bodies from a
// small template engine, and enforces a per-user sliding-window send limit
// backed by the email_log table.
package notification

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/go-gomail/gomail"
	"github.com/google/uuid"
)

// Mailer is the interface for sending a single HTML email. On success it
// returns the transport message identifier.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) (string, error)
}

// SMTPConfig holds the mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// dialer abstracts gomail's DialAndSend for testability.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// namedDialer pairs a transport configuration with a label used in error
// reporting.
type namedDialer struct {
	name string
	d    dialer
}

// SMTPMailer sends mail through a chain of transport configurations tried in
// order: STARTTLS with certificate verification, then plaintext-permissive,
// then implicit TLS. The first configuration that delivers wins; if all fail
// the last error is surfaced.
type SMTPMailer struct {
	cfg     SMTPConfig
	dialers []namedDialer
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	strict := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	strict.TLSConfig = &tls.Config{ServerName: cfg.Host}

	relaxed := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	relaxed.TLSConfig = &tls.Config{InsecureSkipVerify: true}

	implicit := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	implicit.SSL = true
	implicit.TLSConfig = &tls.Config{ServerName: cfg.Host}

	return &SMTPMailer{
		cfg: cfg,
		dialers: []namedDialer{
			{name: "starttls", d: strict},
			{name: "plain", d: relaxed},
			{name: "implicit-tls", d: implicit},
		},
	}
}

// Send composes the message and walks the dialer chain.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	messageID := uuid.New().String()
	msg.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", messageID, m.cfg.Host))

	var lastErr error
	for _, nd := range m.dialers {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := nd.d.DialAndSend(msg); err != nil {
			lastErr = fmt.Errorf("%s transport: %w", nd.name, err)
			continue
		}
		return messageID, nil
	}
	return "", fmt.Errorf("all transports failed: %w", lastErr)
}
