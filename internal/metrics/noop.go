package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) TickStarted()                                                   {}
func (n *NoopSink) TickCompleted(duration time.Duration, triggered int, err error) {}
func (n *NoopSink) TickDrift(drift time.Duration)                                  {}
func (n *NoopSink) BufferSizeUpdate(size int)                                      {}
func (n *NoopSink) BufferCapacitySet(capacity int)                                 {}
func (n *NoopSink) EmitError()                                                     {}
func (n *NoopSink) InvocationStarted(source string)                                {}
func (n *NoopSink) InvocationCompleted(duration time.Duration, err error)          {}
func (n *NoopSink) PipelineCompleted(outcome string, duration time.Duration)       {}
func (n *NoopSink) PipelinesInFlightIncr()                                         {}
func (n *NoopSink) PipelinesInFlightDecr()                                         {}
func (n *NoopSink) BreakerRejected(dependency string)                              {}
func (n *NoopSink) LeaderStatusSet(isLeader bool)                                  {}
