// Package mailer delivers composed notifications. Providers are chosen by
// configuration: "smtp" for a real relay, "resend" for the Resend HTTP API and
// "log" for local runs.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/circuitbreaker"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
)

// BreakerKey is the circuit breaker key used for the mail transport.
const BreakerKey = "mail"

// Sender sends one notification. Failures are reported synchronously and wrap
// domain.ErrMailDeliveryFailed.
type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
}

type Config struct {
	Provider string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	ResendAPIKey  string
	ResendBaseURL string

	Timeout time.Duration
}

// New returns the Sender selected by cfg.Provider.
func New(cfg Config) (Sender, error) {
	switch cfg.Provider {
	case "log":
		return NewLogSender(), nil
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("mail provider is 'smtp' but SMTP_HOST is not set")
		}
		return NewSMTPSender(cfg), nil
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("mail provider is 'resend' but RESEND_API_KEY is not set")
		}
		return NewResendSender(cfg.ResendAPIKey, cfg.ResendBaseURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown mail provider: %q", cfg.Provider)
	}
}

type guardedSender struct {
	next    Sender
	breaker *circuitbreaker.CircuitBreaker
}

// WithBreaker short-circuits sends while the transport's circuit is open.
// Rejections of a single message do not count toward opening it.
func WithBreaker(next Sender, cb *circuitbreaker.CircuitBreaker) Sender {
	if cb == nil {
		return next
	}
	return &guardedSender{next: next, breaker: cb}
}

func (s *guardedSender) Send(ctx context.Context, n domain.Notification) error {
	err := s.breaker.Do(BreakerKey, func() error {
		return s.next.Send(ctx, n)
	}, countsAgainstTransport)
	if err != nil && !isDeliveryError(err) {
		return fmt.Errorf("%w: %w", domain.ErrMailDeliveryFailed, err)
	}
	return err
}
