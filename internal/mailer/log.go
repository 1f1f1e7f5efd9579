package mailer

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/logging"
)

// LogSender writes notifications to the log instead of sending them.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender() *LogSender {
	return &LogSender{log: logging.New("mailer")}
}

func (s *LogSender) Send(ctx context.Context, n domain.Notification) error {
	s.log.Info().
		Str("to", n.To).
		Str("from", n.From).
		Str("subject", n.Subject).
		Str("html", n.HTML).
		Msg("email logged, not sent")
	return nil
}
