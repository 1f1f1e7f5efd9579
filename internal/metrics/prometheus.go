package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// Scheduler metrics
	ticksTotal      prometheus.Counter
	tickErrorsTotal prometheus.Counter
	triggeredTotal  prometheus.Counter
	tickDuration    prometheus.Histogram
	tickDrift       prometheus.Histogram

	// EventBus metrics
	bufferSize      prometheus.Gauge
	bufferCapacity  prometheus.Gauge
	emitErrorsTotal prometheus.Counter

	// Notifier metrics
	invocationsTotal      *prometheus.CounterVec
	invocationErrorsTotal prometheus.Counter
	invocationDuration    prometheus.Histogram
	outcomesTotal         *prometheus.CounterVec
	pipelineDuration      *prometheus.HistogramVec
	pipelinesInFlight     prometheus.Gauge
	breakerRejections     *prometheus.CounterVec

	leaderStatus prometheus.Gauge
}

// NewPrometheusSink creates a sink and registers its collectors with reg.
// Collectors that fail to register still accept observations.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initSchedulerMetrics(reg)
	s.initEventBusMetrics(reg)
	s.initNotifierMetrics(reg)
	s.leaderStatus = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "commute_leader_status",
		Help: "1 when this instance holds the scheduler leader lock, 0 otherwise.",
	})
	s.register(reg, s.leaderStatus, "commute_leader_status")
	return s
}

func (s *PrometheusSink) initSchedulerMetrics(reg prometheus.Registerer) {
	s.ticksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "commute_scheduler_ticks_total",
		Help: "Total number of scheduler ticks processed.",
	})
	s.tickErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "commute_scheduler_tick_errors_total",
		Help: "Total number of scheduler ticks that failed to emit.",
	})
	s.triggeredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "commute_scheduler_triggered_total",
		Help: "Total number of invocations emitted by the scheduler.",
	})
	s.tickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "commute_scheduler_tick_duration_seconds",
		Help:    "Duration of each scheduler tick in seconds.",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1},
	})
	s.tickDrift = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "commute_scheduler_tick_drift_seconds",
		Help:    "Difference between actual tick time and expected interval in seconds.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	s.register(reg, s.ticksTotal, "commute_scheduler_ticks_total")
	s.register(reg, s.tickErrorsTotal, "commute_scheduler_tick_errors_total")
	s.register(reg, s.triggeredTotal, "commute_scheduler_triggered_total")
	s.register(reg, s.tickDuration, "commute_scheduler_tick_duration_seconds")
	s.register(reg, s.tickDrift, "commute_scheduler_tick_drift_seconds")
}

func (s *PrometheusSink) initEventBusMetrics(reg prometheus.Registerer) {
	s.bufferSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "commute_eventbus_buffer_size",
		Help: "Current number of trigger events waiting in the bus.",
	})
	s.bufferCapacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "commute_eventbus_buffer_capacity",
		Help: "Configured capacity of the trigger event bus.",
	})
	s.emitErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "commute_eventbus_emit_errors_total",
		Help: "Total number of emit errors (buffer full).",
	})

	s.register(reg, s.bufferSize, "commute_eventbus_buffer_size")
	s.register(reg, s.bufferCapacity, "commute_eventbus_buffer_capacity")
	s.register(reg, s.emitErrorsTotal, "commute_eventbus_emit_errors_total")
}

func (s *PrometheusSink) initNotifierMetrics(reg prometheus.Registerer) {
	s.invocationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commute_notifier_invocations_total",
		Help: "Total number of invocations started, by trigger source.",
	}, []string{"source"})
	s.invocationErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "commute_notifier_invocation_errors_total",
		Help: "Total number of invocations that could not fetch profiles.",
	})
	s.invocationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "commute_notifier_invocation_duration_seconds",
		Help:    "Time from invocation start until every pipeline settled.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
	s.outcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commute_notifier_outcomes_total",
		Help: "Total number of per-user pipeline outcomes.",
	}, []string{"outcome"})
	s.pipelineDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commute_notifier_pipeline_duration_seconds",
		Help:    "Per-user resolve, compose and send latency in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"outcome"})
	s.pipelinesInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "commute_notifier_pipelines_in_flight",
		Help: "Number of per-user pipelines currently running.",
	})
	s.breakerRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "commute_circuit_breaker_rejections_total",
		Help: "Calls short-circuited by an open circuit breaker.",
	}, []string{"dependency"})

	s.register(reg, s.invocationsTotal, "commute_notifier_invocations_total")
	s.register(reg, s.invocationErrorsTotal, "commute_notifier_invocation_errors_total")
	s.register(reg, s.invocationDuration, "commute_notifier_invocation_duration_seconds")
	s.register(reg, s.outcomesTotal, "commute_notifier_outcomes_total")
	s.register(reg, s.pipelineDuration, "commute_notifier_pipeline_duration_seconds")
	s.register(reg, s.pipelinesInFlight, "commute_notifier_pipelines_in_flight")
	s.register(reg, s.breakerRejections, "commute_circuit_breaker_rejections_total")
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Warn().Str("component", "metrics").Str("metric", name).Err(err).Msg("failed to register collector")
	}
}

// Scheduler

func (s *PrometheusSink) TickStarted() {
	s.ticksTotal.Inc()
}

func (s *PrometheusSink) TickCompleted(duration time.Duration, triggered int, err error) {
	s.tickDuration.Observe(duration.Seconds())
	s.triggeredTotal.Add(float64(triggered))
	if err != nil {
		s.tickErrorsTotal.Inc()
	}
}

func (s *PrometheusSink) TickDrift(drift time.Duration) {
	d := drift.Seconds()
	if d < 0 {
		d = -d
	}
	s.tickDrift.Observe(d)
}

// EventBus

func (s *PrometheusSink) BufferSizeUpdate(size int) {
	s.bufferSize.Set(float64(size))
}

func (s *PrometheusSink) BufferCapacitySet(capacity int) {
	s.bufferCapacity.Set(float64(capacity))
}

func (s *PrometheusSink) EmitError() {
	s.emitErrorsTotal.Inc()
}

// Notifier

func (s *PrometheusSink) InvocationStarted(source string) {
	s.invocationsTotal.WithLabelValues(source).Inc()
}

func (s *PrometheusSink) InvocationCompleted(duration time.Duration, err error) {
	s.invocationDuration.Observe(duration.Seconds())
	if err != nil {
		s.invocationErrorsTotal.Inc()
	}
}

func (s *PrometheusSink) PipelineCompleted(outcome string, duration time.Duration) {
	s.outcomesTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		s.pipelineDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	}
}

func (s *PrometheusSink) PipelinesInFlightIncr() {
	s.pipelinesInFlight.Inc()
}

func (s *PrometheusSink) PipelinesInFlightDecr() {
	s.pipelinesInFlight.Dec()
}

func (s *PrometheusSink) BreakerRejected(dependency string) {
	s.breakerRejections.WithLabelValues(dependency).Inc()
}

func (s *PrometheusSink) LeaderStatusSet(isLeader bool) {
	if isLeader {
		s.leaderStatus.Set(1)
		return
	}
	s.leaderStatus.Set(0)
}
