package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
)

// rejectedError is a failure tied to one message, such as a malformed
// recipient or a 4xx from the provider. The transport itself is healthy.
type rejectedError struct {
	err error
}

func (e *rejectedError) Error() string { return e.err.Error() }
func (e *rejectedError) Unwrap() error { return e.err }

func deliveryError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrMailDeliveryFailed, fmt.Sprintf(format, args...))
}

func wrapDelivery(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrMailDeliveryFailed, op, err)
}

func rejected(err error) error {
	return &rejectedError{err: err}
}

func isDeliveryError(err error) bool {
	return errors.Is(err, domain.ErrMailDeliveryFailed)
}

// rejectsMessage reports whether a provider status refuses this message only.
// Auth failures and throttling affect every send.
func rejectsMessage(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return false
	}
	return status >= 400 && status < 500
}

// countsAgainstTransport keeps per-message rejections out of the circuit so
// bad addresses cannot block mail for other users.
func countsAgainstTransport(err error) bool {
	var re *rejectedError
	if errors.As(err, &re) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}
