package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/analytics"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/circuitbreaker"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/compose"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/config"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/directions"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/ledger"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/logging"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/mailer"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/metrics"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/notifier"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/store/file"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/store/postgres"
)

type profileStore interface {
	notifier.ProfileStore
	PingContext(ctx context.Context) error
}

// app holds the collaborators shared by serve and run-once.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	loc      *time.Location
	db       *sql.DB // nil unless postgres is used
	store    profileStore
	redis    *redis.Client           // nil unless REDIS_ADDR is set
	metrics  *metrics.PrometheusSink // nil unless metrics are served
	sink     metrics.Sink
	notifier *notifier.Notifier
}

func newApp(ctx context.Context, cfg config.Config, withMetrics bool) (*app, error) {
	a := &app{cfg: cfg, log: logging.New("main")}

	loc, err := time.LoadLocation(cfg.ScheduleTimezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	a.loc = loc

	if cfg.ProfileSource == "postgres" || cfg.LeaderElectionEnabled {
		if a.db, err = openDB(ctx, cfg); err != nil {
			return nil, err
		}
		a.log.Info().Int("max_open", cfg.DBMaxOpenConns).Int("max_idle", cfg.DBMaxIdleConns).Msg("db pool configured")
	}

	switch cfg.ProfileSource {
	case "file":
		a.store = file.New(afero.NewOsFs(), cfg.ProfilesFile)
	default:
		a.store = postgres.New(a.db, cfg.DBOpTimeout)
	}

	a.sink = metrics.NewNoopSink()
	if withMetrics && cfg.MetricsEnabled {
		a.metrics = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		a.sink = a.metrics
	}

	breaker := circuitbreaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown)

	resolver, err := directions.NewClient(directions.Config{
		APIKey:       cfg.GoogleMapsAPIKey,
		StaticMapKey: cfg.StaticMapsAPIKey,
		BaseURL:      cfg.DirectionsBaseURL,
		Timeout:      cfg.DirectionsTimeout,
		MaxAttempts:  cfg.DirectionsMaxAttempts,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	resolver = resolver.WithBreaker(breaker)

	sender, err := mailer.New(mailer.Config{
		Provider:     cfg.MailProvider,
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUsername: cfg.SMTPUsername,
		SMTPPassword: cfg.SMTPPassword,
		ResendAPIKey: cfg.ResendAPIKey,
		Timeout:      cfg.MailTimeout,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	sender = mailer.WithBreaker(sender, breaker)

	a.notifier = notifier.New(
		notifier.Config{
			Location:          loc,
			MaxConcurrency:    cfg.NotifierMaxConcurrency,
			InvocationTimeout: cfg.InvocationTimeout,
		},
		a.store,
		resolver,
		compose.New(cfg.MailFrom, cfg.MailSubject),
		sender,
	).WithMetrics(a.sink)

	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.notifier = a.notifier.
			WithLedger(ledger.NewRedisLedger(a.redis, cfg.DedupeTTL)).
			WithAnalytics(analytics.NewRedisSink(a.redis, cfg.AnalyticsWindow, cfg.AnalyticsRetention))
		a.log.Info().Str("redis", cfg.RedisAddr).Msg("send dedupe and analytics enabled")
	}

	return a, nil
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DBOpTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("redis close")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn().Err(err).Msg("db close")
		}
	}
}
