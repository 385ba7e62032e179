package dispatch

import (
	"context"
	"log/slog"

	"github.com/example/officehours/internal/application"
)

// LogSender delivers notifications by logging them. It stands in for a mail
// transport; an external worker can still drain the outbox over HTTP.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, job application.NotificationJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		"job_id", job.ID,
		"kind", job.Kind,
		"recipient", job.Recipient,
		"subject", job.Subject,
		"has_ics", job.ICS != "",
	}
	if job.RecipientEmail != "" {
		attrs = append(attrs, "email", job.RecipientEmail)
	}
	logger.InfoContext(ctx, "notification delivered", attrs...)
	return nil
}
