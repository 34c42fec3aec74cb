package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes messages to the logger instead of delivering them.
// Intended for local development; the body is only emitted at debug level.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "log_sender").Logger()}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email not sent (log driver)")
	s.logger.Debug().Str("to", msg.To).Str("body", msg.Body).Msg("email body")
	return nil
}
