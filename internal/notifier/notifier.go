// Package notifier runs one invocation of the commute notification batch:
// fetch every profile, decide who is due at the evaluated minute, and for
// each due user resolve the route, compose the email and send it.
//
// Per-user pipelines run concurrently and are isolated from each other. An
// invocation never aborts because one user failed; it settles every pipeline
// and reports a domain.BatchResult.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/circuitbreaker"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/logging"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/matcher"
)

type ProfileStore interface {
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
}

type RouteResolver interface {
	ResolveRoute(ctx context.Context, origin, destination string) (domain.RouteSummary, error)
}

type Composer interface {
	Compose(p domain.Profile, route domain.RouteSummary) domain.Notification
}

type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
}

// Ledger records sends so overlapping invocations for the same minute do not
// notify a user twice.
type Ledger interface {
	Claim(ctx context.Context, email string, evaluateAt time.Time) (bool, error)
	Release(ctx context.Context, email string, evaluateAt time.Time) error
}

type AnalyticsSink interface {
	Write(ctx context.Context, batch domain.BatchResult) error
}

// MetricsSink defines the interface for recording notifier metrics.
// All methods must be non-blocking and fire-and-forget.
type MetricsSink interface {
	InvocationStarted(source string)
	InvocationCompleted(duration time.Duration, err error)
	PipelineCompleted(outcome string, duration time.Duration)
	PipelinesInFlightIncr()
	PipelinesInFlightDecr()
	BreakerRejected(dependency string)
}

type Config struct {
	// Location is the deployment timezone. Departure times and the evaluated
	// minute are compared in it. Nil means UTC.
	Location *time.Location

	// MaxConcurrency caps concurrent per-user pipelines. Zero or less means
	// unbounded.
	MaxConcurrency int

	// InvocationTimeout bounds one invocation. Zero means no bound.
	InvocationTimeout time.Duration
}

type Notifier struct {
	config    Config
	store     ProfileStore
	resolver  RouteResolver
	composer  Composer
	sender    Sender
	ledger    Ledger        // optional, nil = disabled
	analytics AnalyticsSink // optional, nil = disabled
	metrics   MetricsSink   // optional, nil = disabled
	log       zerolog.Logger
	clock     func() time.Time
}

func New(config Config, store ProfileStore, resolver RouteResolver, composer Composer, sender Sender) *Notifier {
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &Notifier{
		config:   config,
		store:    store,
		resolver: resolver,
		composer: composer,
		sender:   sender,
		log:      logging.New("notifier"),
		clock:    time.Now,
	}
}

func (n *Notifier) WithLedger(l Ledger) *Notifier {
	n.ledger = l
	return n
}

func (n *Notifier) WithAnalytics(sink AnalyticsSink) *Notifier {
	n.analytics = sink
	return n
}

// WithMetrics attaches a metrics sink to the notifier.
func (n *Notifier) WithMetrics(sink MetricsSink) *Notifier {
	n.metrics = sink
	return n
}

// Location returns the timezone invocations are evaluated in.
func (n *Notifier) Location() *time.Location {
	return n.config.Location
}

// Invoke runs one invocation for the minute of event.EvaluateAt and returns
// once every per-user pipeline has settled.
func (n *Notifier) Invoke(ctx context.Context, event domain.TriggerEvent) domain.BatchResult {
	if n.config.InvocationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.config.InvocationTimeout)
		defer cancel()
	}

	now := event.EvaluateAt.In(n.config.Location)
	batch := domain.BatchResult{
		InvocationID: event.InvocationID,
		EvaluatedAt:  now,
		StartedAt:    n.clock(),
	}
	log := n.log.With().
		Str("invocation_id", event.InvocationID.String()).
		Str("source", string(event.Source)).
		Str("evaluate_at", now.Format("2006-01-02 15:04 MST")).
		Logger()

	if n.metrics != nil {
		n.metrics.InvocationStarted(string(event.Source))
	}

	profiles, err := n.store.ListProfiles(ctx)
	if err != nil {
		batch.Err = fmt.Errorf("%w: %w", domain.ErrBatchFetchFailed, err)
		batch.FinishedAt = n.clock()
		log.Error().Err(err).Msg("could not fetch profiles")
		if n.metrics != nil {
			n.metrics.InvocationCompleted(batch.FinishedAt.Sub(batch.StartedAt), batch.Err)
		}
		return batch
	}

	batch.Results = make([]domain.UserResult, len(profiles))
	var g errgroup.Group
	if n.config.MaxConcurrency > 0 {
		g.SetLimit(n.config.MaxConcurrency)
	}
	for i, p := range profiles {
		i, p := i, p
		g.Go(func() error {
			batch.Results[i] = n.process(ctx, log, p, now)
			return nil
		})
	}
	_ = g.Wait()

	batch.FinishedAt = n.clock()
	n.record(ctx, log, batch)
	return batch
}

// process runs the per-user pipeline and always returns a terminal outcome.
func (n *Notifier) process(ctx context.Context, log zerolog.Logger, p domain.Profile, now time.Time) domain.UserResult {
	res := domain.UserResult{ProfileKey: p.Key(), Email: p.Email}

	if err := p.Validate(); err != nil {
		res.Outcome, res.Err = domain.OutcomeSkippedIncomplete, err
		return n.finish(log, res)
	}

	departure, err := matcher.ParseDepartureTime(p.DepartureTime, n.config.Location)
	if err != nil {
		res.Outcome, res.Err = domain.OutcomeInvalidDeparture, err
		return n.finish(log, res)
	}
	if !matcher.IsDue(now, departure) {
		res.Outcome = domain.OutcomeNotDue
		return n.finish(log, res)
	}

	start := n.clock()
	res = n.deliver(ctx, log, p, now, res)
	res.Duration = n.clock().Sub(start)
	return n.finish(log, res)
}

// deliver claims, resolves, composes and sends for a user who is due.
func (n *Notifier) deliver(ctx context.Context, log zerolog.Logger, p domain.Profile, now time.Time, res domain.UserResult) domain.UserResult {
	if n.metrics != nil {
		n.metrics.PipelinesInFlightIncr()
		defer n.metrics.PipelinesInFlightDecr()
	}

	claimed := false
	if n.ledger != nil {
		ok, err := n.ledger.Claim(ctx, p.Email, now)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("profile", res.ProfileKey).Msg("ledger unavailable, sending without dedupe")
		case !ok:
			res.Outcome = domain.OutcomeSkippedDuplicate
			return res
		default:
			claimed = true
		}
	}

	route, err := n.resolver.ResolveRoute(ctx, p.Home, p.Work)
	if err != nil {
		n.observeBreaker(err, "directions")
		n.release(ctx, log, claimed, p.Email, now)
		res.Outcome, res.Err = domain.OutcomeRouteFailed, err
		return res
	}

	msg := n.composer.Compose(p, route)
	if err := n.sender.Send(ctx, msg); err != nil {
		n.observeBreaker(err, "mail")
		n.release(ctx, log, claimed, p.Email, now)
		res.Outcome, res.Err = domain.OutcomeSendFailed, err
		return res
	}

	res.Outcome = domain.OutcomeSent
	return res
}

func (n *Notifier) finish(log zerolog.Logger, res domain.UserResult) domain.UserResult {
	var ev *zerolog.Event
	switch {
	case res.Outcome.IsFailure():
		ev = log.Warn().Err(res.Err)
	case res.Outcome == domain.OutcomeSent:
		ev = log.Info()
	default:
		ev = log.Debug().AnErr("reason", res.Err)
	}
	ev.Str("profile", res.ProfileKey).Str("outcome", string(res.Outcome)).Msg("pipeline settled")
	return res
}

func (n *Notifier) release(ctx context.Context, log zerolog.Logger, claimed bool, email string, at time.Time) {
	if !claimed {
		return
	}
	if err := n.ledger.Release(context.WithoutCancel(ctx), email, at); err != nil {
		log.Warn().Err(err).Msg("could not release ledger claim")
	}
}

func (n *Notifier) observeBreaker(err error, dependency string) {
	if n.metrics != nil && errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		n.metrics.BreakerRejected(dependency)
	}
}

// record emits the aggregate view of a settled batch.
func (n *Notifier) record(ctx context.Context, log zerolog.Logger, batch domain.BatchResult) {
	counts := batch.Counts()
	if n.metrics != nil {
		for _, r := range batch.Results {
			n.metrics.PipelineCompleted(string(r.Outcome), r.Duration)
		}
		n.metrics.InvocationCompleted(batch.FinishedAt.Sub(batch.StartedAt), nil)
	}

	if n.analytics != nil {
		if err := n.analytics.Write(context.WithoutCancel(ctx), batch); err != nil {
			log.Warn().Err(err).Msg("analytics write failed")
		}
	}

	ev := log.Info()
	if len(batch.Failures()) > 0 {
		ev = log.Warn()
	}
	dict := zerolog.Dict()
	for outcome, c := range counts {
		dict = dict.Int(string(outcome), c)
	}
	ev.Int("profiles", len(batch.Results)).
		Dict("outcomes", dict).
		Dur("elapsed", batch.FinishedAt.Sub(batch.StartedAt)).
		Msg("invocation settled")
}
