// Package notify delivers account emails: one-time codes and action links.
package notify

import (
	"context"

	"github.com/scsp-app/scsp-server/internal/logging"
)

// Sender delivers one HTML message to a single recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// LogSender records that a message would have been sent. Used in development
// when no SMTP host is configured. Bodies are never logged since they carry codes.
type LogSender struct {
	log logging.Logger
}

func NewLogSender(log logging.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Info(ctx, "email suppressed", "to", to, "subject", subject, "bytes", len(htmlBody))
	return nil
}
