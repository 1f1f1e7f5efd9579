// Package testutil provides shared test helpers for the commute notifier.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
)

// FakeClock provides deterministic time for testing.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// TestContext returns a context with a 5-second timeout.
// The context is cancelled when the test completes.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// LoadLocation loads a timezone or fails the test.
func LoadLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %q: %v", name, err)
	}
	return loc
}

// Trigger builds a manual trigger event for evaluateAt.
func Trigger(evaluateAt time.Time) domain.TriggerEvent {
	return domain.TriggerEvent{
		InvocationID: uuid.New(),
		Source:       domain.TriggerSourceManual,
		EvaluateAt:   evaluateAt,
		FiredAt:      evaluateAt,
	}
}

// CompleteProfile returns an eligible profile departing at departure.
func CompleteProfile(id, departure string) domain.Profile {
	return domain.Profile{
		ID:            id,
		Email:         id + "@example.com",
		DisplayName:   "User " + id,
		Home:          "1 Home St, Springfield",
		Work:          "2 Work Ave, Springfield",
		DepartureTime: departure,
	}
}
