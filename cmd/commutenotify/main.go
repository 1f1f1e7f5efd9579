// Command commutenotify emails each user their traffic-aware commute when
// their configured departure minute comes up.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/config"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/logging"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

// exitError carries a process exit code out of a cobra RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, ee.err)
		}
		return ee.code
	}
	fmt.Fprintln(stderr, err)
	return exitRuntimeError
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "commutenotify",
		Short:         "Daily commute email notifier",
		Long:          "commutenotify - emails users their best route to work at their departure time.\n" + envHelp,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return &exitError{code: exitInvalidConfig, err: fmt.Errorf("load %s: %w", envFile, err)}
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment (ignored if missing)")

	root.AddCommand(
		newServeCmd(),
		newRunOnceCmd(),
		newMigrateCmd(),
		newValidateCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads, validates and applies the logging configuration.
func loadConfig() (config.Config, error) {
	cfg := config.Load()
	if err := config.Validate(cfg); err != nil {
		return cfg, &exitError{code: exitInvalidConfig, err: fmt.Errorf("configuration error: %w", err)}
	}
	if err := logging.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return cfg, &exitError{code: exitInvalidConfig, err: err}
	}
	return cfg, nil
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration (no connections made)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Validate(config.Load()); err != nil {
				return &exitError{code: exitInvalidConfig, err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration valid")
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print effective configuration as JSON (secrets masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Load().MaskedJSON()
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "commutenotify version %s (commit: %s)\n", version, commit)
		},
	}
}

const envHelp = `
Environment Variables:
  SCHEDULE_CRON              Trigger schedule, 5-field cron (default: "*/15 8-11 * * 1-5")
  SCHEDULE_TIMEZONE          Deployment timezone (default: "America/Los_Angeles")
  TICK_INTERVAL              Scheduler tick interval (default: "15s")

  PROFILE_SOURCE             "postgres" or "file" (default: "postgres")
  DATABASE_URL               PostgreSQL connection string (required for postgres)
  PROFILES_FILE              JSON profiles file (default: "profiles.json")
  DB_OP_TIMEOUT              Database operation timeout (default: "5s")
  DB_MAX_OPEN_CONNS          Max open database connections (default: "10")
  DB_MAX_IDLE_CONNS          Max idle database connections (default: "2")

  GOOGLE_MAPS_API_KEY        Directions API key (required)
  STATIC_MAPS_API_KEY        Key in the emailed map image URL (default: GOOGLE_MAPS_API_KEY)
  DIRECTIONS_BASE_URL        Directions API base URL (default: Google)
  DIRECTIONS_TIMEOUT         Per-request timeout (default: "10s")
  DIRECTIONS_MAX_ATTEMPTS    Attempts for transient failures (default: "3")

  MAIL_PROVIDER              "smtp", "resend" or "log" (default: "log")
  MAIL_FROM                  Sender address (required)
  MAIL_SUBJECT               Subject line (default: "Your Daily Commute Information")
  MAIL_TIMEOUT               Send timeout (default: "15s")
  SMTP_HOST, SMTP_PORT       SMTP server (port default: "587")
  SMTP_USERNAME              SMTP user; enables mandatory TLS
  SMTP_PASSWORD              SMTP password
  RESEND_API_KEY             Resend API key

  NOTIFIER_MAX_CONCURRENCY   Concurrent per-user pipelines, 0 = unbounded (default: "10")
  INVOCATION_TIMEOUT         Bound on one invocation (default: "2m")
  EVENTBUS_BUFFER_SIZE       Pending trigger capacity (default: "16")
  CIRCUIT_BREAKER_THRESHOLD  Consecutive failures before opening, 0 = off (default: "5")
  CIRCUIT_BREAKER_COOLDOWN   Open duration before a probe (default: "2m")

  REDIS_ADDR                 Enables send dedupe and outcome analytics
  DEDUPE_TTL                 Dedupe key lifetime (default: "24h")
  ANALYTICS_WINDOW           Counter bucket: 1m, 5m or 1h (default: "1h")
  ANALYTICS_RETENTION        Counter lifetime (default: "168h")

  HTTP_ADDR                  HTTP server address (default: ":8080", or ":$PORT")
  HTTP_SHUTDOWN_TIMEOUT      Graceful HTTP shutdown timeout (default: "10s")
  INVOCATIONS_TOKEN          Bearer token required by POST /invocations
  METRICS_ENABLED            Enable Prometheus metrics (default: "false")
  METRICS_PATH               Metrics endpoint path (default: "/metrics")
  METRICS_PORT               Metrics server port (default: "9090")

  LEADER_ELECTION_ENABLED    Run the schedule on one replica only (default: "false")
  LEADER_LOCK_KEY            Advisory lock key (default: "482913")
  LEADER_RETRY_INTERVAL      Follower retry interval (default: "5s")
  LEADER_HEARTBEAT_INTERVAL  Leader connection ping interval (default: "2s")

  LOG_LEVEL                  debug, info, warn, error (default: "info")
  LOG_FORMAT                 "json" or "console" (default: "json")`
