package domain

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal state of one profile within an invocation.
type Outcome string

const (
	OutcomeSkippedIncomplete Outcome = "skipped_incomplete"
	OutcomeInvalidDeparture  Outcome = "invalid_departure"
	OutcomeNotDue            Outcome = "not_due"
	OutcomeSkippedDuplicate  Outcome = "skipped_duplicate"
	OutcomeRouteFailed       Outcome = "route_failed"
	OutcomeSendFailed        Outcome = "send_failed"
	OutcomeSent              Outcome = "sent"
)

// IsFailure reports whether the outcome is a pipeline failure worth alerting on.
func (o Outcome) IsFailure() bool {
	switch o {
	case OutcomeInvalidDeparture, OutcomeRouteFailed, OutcomeSendFailed:
		return true
	default:
		return false
	}
}

// UserResult records what happened to one profile.
type UserResult struct {
	ProfileKey string
	Email      string
	Outcome    Outcome
	Err        error
	Duration   time.Duration // pipeline time; zero for users that were not due
}

// BatchResult is the settled outcome of one invocation.
type BatchResult struct {
	InvocationID uuid.UUID
	EvaluatedAt  time.Time
	StartedAt    time.Time
	FinishedAt   time.Time

	// Err is set only when the invocation could not iterate at all
	// (ErrBatchFetchFailed). Per-user failures live in Results.
	Err     error
	Results []UserResult
}

// Counts tallies results per outcome.
func (b BatchResult) Counts() map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, r := range b.Results {
		counts[r.Outcome]++
	}
	return counts
}

// Failures returns the results whose outcome is a failure.
func (b BatchResult) Failures() []UserResult {
	var out []UserResult
	for _, r := range b.Results {
		if r.Outcome.IsFailure() {
			out = append(out, r)
		}
	}
	return out
}
