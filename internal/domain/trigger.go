package domain

import (
	"time"

	"github.com/google/uuid"
)

// TriggerSource tells where an invocation came from.
type TriggerSource string

const (
	TriggerSourceSchedule TriggerSource = "schedule"
	TriggerSourceManual   TriggerSource = "manual"
)

// TriggerEvent asks the notifier to run one invocation.
type TriggerEvent struct {
	InvocationID uuid.UUID
	Source       TriggerSource

	EvaluateAt time.Time // minute the matcher compares against
	FiredAt    time.Time // actual emission time
}
