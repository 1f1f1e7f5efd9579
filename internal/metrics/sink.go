package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate errors.
type Sink interface {
	// Scheduler metrics
	TickStarted()
	TickCompleted(duration time.Duration, triggered int, err error)
	TickDrift(drift time.Duration)

	// EventBus metrics
	BufferSizeUpdate(size int)
	BufferCapacitySet(capacity int)
	EmitError()

	// Notifier metrics
	InvocationStarted(source string)
	InvocationCompleted(duration time.Duration, err error)
	PipelineCompleted(outcome string, duration time.Duration)
	PipelinesInFlightIncr()
	PipelinesInFlightDecr()
	BreakerRejected(dependency string)

	// Leader election
	LeaderStatusSet(isLeader bool)
}
