package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// rateWindow is the trailing period the send limiter counts over.
const rateWindow = time.Hour

// Result is the outcome reported back to the caller. Failures never
// propagate as errors past the dispatcher; the UI consumes the message.
type Result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"message_id,omitempty"`
}

// Dispatcher sends one transactional email per lifecycle event, subject to a
// per-user, per-type hourly ceiling. Thresholds deliberately differ between
// notification types; they stay separate knobs.
type Dispatcher struct {
	mailer    Mailer
	templates *TemplateEngine
	logs      EmailLogRepository
	limits    map[EmailType]int
	logger    zerolog.Logger
	now       func() time.Time
}

func NewDispatcher(mailer Mailer, templates *TemplateEngine, logs EmailLogRepository, limits map[EmailType]int, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		mailer:    mailer,
		templates: templates,
		logs:      logs,
		limits:    limits,
		logger:    logger,
		now:       time.Now,
	}
}

// limitFor returns the hourly ceiling for a type; zero disables sending of
// that type entirely, a missing entry means unlimited.
func (d *Dispatcher) limitFor(t EmailType) (int, bool) {
	limit, ok := d.limits[t]
	return limit, ok
}

// Dispatch renders the template and sends it to the recipient, recording one
// ledger row on success. Calling twice sends twice; only the window limiter
// bounds repeats.
func (d *Dispatcher) Dispatch(ctx context.Context, userID uuid.UUID, recipient string, emailType EmailType, templateID string, data map[string]string) Result {
	if limit, ok := d.limitFor(emailType); ok {
		since := d.now().Add(-rateWindow)
		count, err := d.logs.CountSince(ctx, userID, emailType, since)
		if err != nil {
			d.logger.Error().Err(err).Str("type", string(emailType)).Msg("email log count failed")
			return Result{Success: false, Message: "Une erreur est survenue, veuillez réessayer plus tard"}
		}
		if count >= limit {
			d.logger.Warn().
				Str("user_id", userID.String()).
				Str("type", string(emailType)).
				Int("count", count).
				Int("limit", limit).
				Msg("email rate limit exceeded")
			return Result{Success: false, Message: "Limite d'envoi d'emails atteinte, veuillez réessayer dans une heure"}
		}
	}

	subject, body, err := d.templates.Render(templateID, data)
	if err != nil {
		d.logger.Error().Err(err).Str("template", templateID).Msg("template render failed")
		return Result{Success: false, Message: "Une erreur est survenue, veuillez réessayer plus tard"}
	}

	messageID, err := d.mailer.Send(ctx, recipient, subject, body)
	if err != nil {
		d.logger.Error().Err(err).Str("recipient", recipient).Msg("email send failed")
		// No ledger row: a failed send must not consume the window.
		return Result{Success: false, Message: "L'envoi de l'email a échoué"}
	}

	entry := &EmailLog{UserID: userID, Type: emailType, SentAt: d.now()}
	if err := d.logs.Append(ctx, entry); err != nil {
		// The mail is already gone; log and report success anyway.
		d.logger.Error().Err(err).Str("user_id", userID.String()).Msg("email log append failed")
	}

	d.logger.Info().
		Str("user_id", userID.String()).
		Str("type", string(emailType)).
		Str("message_id", messageID).
		Msg("email sent")

	return Result{Success: true, Message: "Email envoyé avec succès", MessageID: messageID}
}
