// Package leaderelection keeps a single replica in charge of the trigger
// schedule using a Postgres session-scoped advisory lock.
//
// The lock lives as long as the dedicated connection that took it. There is
// no renewal or TTL. The heartbeat ping only detects local connection death so
// the leader can stop its duties promptly.
package leaderelection

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/logging"
)

const (
	queryTryLock = "SELECT pg_try_advisory_lock($1)"
	queryUnlock  = "SELECT pg_advisory_unlock($1)"
)

// MetricsSink defines the interface for recording leader election metrics.
// All methods must be non-blocking and fire-and-forget.
type MetricsSink interface {
	LeaderStatusSet(isLeader bool)
}

type Elector struct {
	db                *sql.DB
	lockKey           int64
	retryInterval     time.Duration // follower: how often to attempt lock acquisition
	heartbeatInterval time.Duration // leader: how often to ping dedicated connection
	onElected         func(ctx context.Context)
	onDemoted         func()
	metrics           MetricsSink // optional, nil = disabled
	log               zerolog.Logger
}

// New creates an Elector.
//
// onElected runs in a new goroutine when this replica acquires the lock; its
// context is cancelled when leadership is lost. onDemoted runs synchronously
// after that and must block until leader duties have stopped. It must be
// idempotent.
func New(
	db *sql.DB,
	lockKey int64,
	retryInterval, heartbeatInterval time.Duration,
	onElected func(ctx context.Context),
	onDemoted func(),
) *Elector {
	return &Elector{
		db:                db,
		lockKey:           lockKey,
		retryInterval:     retryInterval,
		heartbeatInterval: heartbeatInterval,
		onElected:         onElected,
		onDemoted:         onDemoted,
		log:               logging.New("leader"),
	}
}

// WithMetrics attaches a metrics sink to the elector.
func (e *Elector) WithMetrics(sink MetricsSink) *Elector {
	e.metrics = sink
	return e
}

// Run blocks until ctx is cancelled, campaigning for the lock every retry interval.
func (e *Elector) Run(ctx context.Context) {
	e.log.Info().Int64("lock_key", e.lockKey).Dur("retry", e.retryInterval).
		Dur("heartbeat", e.heartbeatInterval).Msg("starting election loop")
	defer e.log.Info().Msg("election loop stopped")

	for {
		reason := e.runOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if reason != "" {
			e.log.Warn().Str("reason", reason).Dur("retry_in", e.retryInterval).Msg("lost leadership")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(e.retryInterval):
		}
	}
}

// runOnce tries the lock and holds it while leader. It returns why leadership
// ended, or "" if the lock was not acquired.
func (e *Elector) runOnce(ctx context.Context) string {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("failed to acquire dedicated connection")
		return ""
	}
	defer conn.Close()

	var acquired bool
	if err := conn.QueryRowContext(ctx, queryTryLock, e.lockKey).Scan(&acquired); err != nil {
		e.log.Error().Err(err).Msg("advisory lock query failed")
		return ""
	}
	if !acquired {
		e.log.Debug().Int64("lock_key", e.lockKey).Msg("lock held by another replica")
		return ""
	}

	e.log.Info().Int64("lock_key", e.lockKey).Msg("acquired leadership")
	if e.metrics != nil {
		e.metrics.LeaderStatusSet(true)
	}

	leaderCtx, cancelLeader := context.WithCancel(ctx)
	go e.onElected(leaderCtx)

	reason := e.holdLock(ctx, conn)

	cancelLeader()
	e.onDemoted()
	if e.metrics != nil {
		e.metrics.LeaderStatusSet(false)
	}

	// Closing a pooled sql.Conn keeps the session open, so unlock explicitly.
	if reason != "conn_lost" {
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var released bool
		if err := conn.QueryRowContext(unlockCtx, queryUnlock, e.lockKey).Scan(&released); err != nil {
			e.log.Warn().Err(err).Msg("advisory unlock failed")
		}
	}
	e.log.Info().Int64("lock_key", e.lockKey).Str("reason", reason).Msg("released leadership")
	return reason
}

// holdLock pings the dedicated connection until ctx ends or the ping fails.
func (e *Elector) holdLock(ctx context.Context, conn *sql.Conn) string {
	ticker := time.NewTicker(e.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "shutdown"
		case <-ticker.C:
			if err := conn.PingContext(ctx); err != nil {
				if ctx.Err() != nil {
					return "shutdown"
				}
				e.log.Error().Err(err).Msg("dedicated connection ping failed")
				return "conn_lost"
			}
		}
	}
}
