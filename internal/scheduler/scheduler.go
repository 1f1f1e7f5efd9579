// Package scheduler turns the trigger schedule into invocation events.
//
// Each tick walks every fire time between the previous tick and now, so a
// delayed tick still produces one event per missed minute. The fire time, not
// the wall clock, becomes the event's EvaluateAt.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/logging"
)

// maxCatchUp bounds how many fire times one tick may emit after a long stall.
const maxCatchUp = 100

type Schedule interface {
	Next(after time.Time) time.Time
}

type EventEmitter interface {
	Emit(ctx context.Context, event domain.TriggerEvent) error
}

// MetricsSink defines the interface for recording scheduler metrics.
// All methods must be non-blocking and fire-and-forget.
type MetricsSink interface {
	TickStarted()
	TickCompleted(duration time.Duration, triggered int, err error)
	TickDrift(drift time.Duration)
}

type Config struct {
	TickInterval time.Duration
}

type Scheduler struct {
	config   Config
	schedule Schedule
	emitter  EventEmitter
	metrics  MetricsSink // optional, nil = disabled
	log      zerolog.Logger
	clock    func() time.Time
	lastTick time.Time
}

func New(config Config, schedule Schedule, emitter EventEmitter) *Scheduler {
	return &Scheduler{
		config:   config,
		schedule: schedule,
		emitter:  emitter,
		log:      logging.New("scheduler"),
		clock:    time.Now,
	}
}

// WithMetrics attaches a metrics sink to the scheduler.
func (s *Scheduler) WithMetrics(sink MetricsSink) *Scheduler {
	s.metrics = sink
	return s
}

// Run ticks until ctx is cancelled. Fire times before the first tick are not
// replayed.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	s.log.Info().Dur("tick", s.config.TickInterval).Msg("started")
	s.lastTick = s.clock()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.processTick(ctx); err != nil {
				s.log.Error().Err(err).Msg("tick error")
			}
		}
	}
}

func (s *Scheduler) processTick(ctx context.Context) error {
	now := s.clock()
	start := now
	if s.metrics != nil {
		s.metrics.TickStarted()
		if !s.lastTick.IsZero() {
			s.metrics.TickDrift(now.Sub(s.lastTick) - s.config.TickInterval)
		}
	}

	triggered := 0
	var firstErr error

	t := s.schedule.Next(s.lastTick)
	for i := 0; i < maxCatchUp && !t.IsZero() && !t.After(now); i++ {
		evaluateAt := t.Truncate(time.Minute)
		if err := s.emit(ctx, evaluateAt, now); err != nil {
			s.log.Error().Err(err).Time("evaluate_at", evaluateAt).Msg("emit failed")
			if firstErr == nil {
				firstErr = err
			}
		} else {
			triggered++
		}
		t = s.schedule.Next(t)
	}

	s.lastTick = now
	if s.metrics != nil {
		s.metrics.TickCompleted(s.clock().Sub(start), triggered, firstErr)
	}
	return firstErr
}

func (s *Scheduler) emit(ctx context.Context, evaluateAt, now time.Time) error {
	event := domain.TriggerEvent{
		InvocationID: uuid.New(),
		Source:       domain.TriggerSourceSchedule,
		EvaluateAt:   evaluateAt,
		FiredAt:      now,
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		return err
	}
	s.log.Debug().
		Str("invocation", event.InvocationID.String()).
		Str("evaluate_at", evaluateAt.Format(time.RFC3339)).
		Msg("emitted")
	return nil
}
