package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/api"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/cron"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/leaderelection"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/scheduler"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/transport/channel"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the trigger schedule, notifier and HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return &exitError{code: exitRuntimeError, err: err}
	}
	defer a.Close()
	log := a.log
	logConfigWarnings(log, cfg)

	schedule, err := cron.NewParser().Parse(cfg.ScheduleCron, cfg.ScheduleTimezone)
	if err != nil {
		return &exitError{code: exitInvalidConfig, err: err}
	}

	var metricsServer *http.Server
	if a.metrics != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.Handler())
		metricsServer = &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metricsMux}
		go func() {
			log.Info().Str("port", cfg.MetricsPort).Str("path", cfg.MetricsPath).Msg("metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
	} else {
		log.Info().Msg("METRICS_ENABLED not set; metrics disabled")
	}

	a.sink.BufferCapacitySet(cfg.EventBusBufferSize)
	bus := channel.NewEventBus(cfg.EventBusBufferSize, channel.WithMetrics(a.sink))

	sched := scheduler.New(scheduler.Config{TickInterval: cfg.TickInterval}, schedule, bus).
		WithMetrics(a.sink)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewHandler(a.notifier).WithHealthChecker(a.store).WithTriggerToken(cfg.InvocationsToken),
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	// Separate contexts so the scheduler stops before the notifier drains.
	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	notifierCtx, cancelNotifier := context.WithCancel(context.Background())
	var schedulerWg, notifierWg sync.WaitGroup

	notifierWg.Add(1)
	go func() {
		defer notifierWg.Done()
		a.notifier.Run(notifierCtx, bus.Channel())
	}()

	schedulerWg.Add(1)
	if cfg.LeaderElectionEnabled {
		// schedMu keeps leadership terms from running the scheduler concurrently.
		var schedMu sync.Mutex
		elector := leaderelection.New(a.db, cfg.LeaderLockKey, cfg.LeaderRetryInterval, cfg.LeaderHeartbeatInterval,
			func(ctx context.Context) {
				schedMu.Lock()
				defer schedMu.Unlock()
				_ = sched.Run(ctx)
			},
			func() {
				schedMu.Lock()
				defer schedMu.Unlock()
			},
		).WithMetrics(a.sink)
		go func() {
			defer schedulerWg.Done()
			elector.Run(schedulerCtx)
		}()
		log.Info().Int64("lock_key", cfg.LeaderLockKey).Msg("leader election enabled")
	} else {
		go func() {
			defer schedulerWg.Done()
			_ = sched.Run(schedulerCtx)
		}()
	}

	log.Info().
		Str("schedule", cfg.ScheduleCron).
		Str("timezone", schedule.Location().String()).
		Time("next_fire", schedule.Next(time.Now())).
		Dur("tick", cfg.TickInterval).
		Str("http", cfg.HTTPAddr).
		Msg("started")

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	log.Info().Msg("shutdown requested")

	// Phase 1: no new triggers.
	cancelScheduler()
	schedulerWg.Wait()
	log.Info().Msg("scheduler stopped")

	// Phase 2: finish buffered invocations.
	cancelNotifier()
	notifierWg.Wait()
	log.Info().Msg("notifier stopped")

	// Phase 3: HTTP servers.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("metrics server shutdown error")
		}
	}

	log.Info().Msg("stopped")
	return nil
}
