package config

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/cron"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if _, err := time.LoadLocation(cfg.ScheduleTimezone); err != nil {
		add("SCHEDULE_TIMEZONE", "unknown timezone %q", cfg.ScheduleTimezone)
	} else if _, err := cron.NewParser().Parse(cfg.ScheduleCron, cfg.ScheduleTimezone); err != nil {
		add("SCHEDULE_CRON", "invalid expression: %v", err)
	}

	switch cfg.ProfileSource {
	case "postgres":
		if cfg.DatabaseURL == "" {
			add("DATABASE_URL", "required when PROFILE_SOURCE is postgres")
		}
	case "file":
		if cfg.ProfilesFile == "" {
			add("PROFILES_FILE", "required when PROFILE_SOURCE is file")
		}
	default:
		add("PROFILE_SOURCE", "must be 'postgres' or 'file', got %q", cfg.ProfileSource)
	}

	if cfg.GoogleMapsAPIKey == "" {
		add("GOOGLE_MAPS_API_KEY", "required")
	}

	if cfg.MailFrom == "" {
		add("MAIL_FROM", "required")
	} else if _, err := mail.ParseAddress(cfg.MailFrom); err != nil {
		add("MAIL_FROM", "invalid address: %v", err)
	}
	switch cfg.MailProvider {
	case "log":
	case "smtp":
		if cfg.SMTPHost == "" {
			add("SMTP_HOST", "required when MAIL_PROVIDER is smtp")
		}
	case "resend":
		if cfg.ResendAPIKey == "" {
			add("RESEND_API_KEY", "required when MAIL_PROVIDER is resend")
		}
	default:
		add("MAIL_PROVIDER", "must be 'smtp', 'resend' or 'log', got %q", cfg.MailProvider)
	}

	if cfg.LeaderElectionEnabled && cfg.DatabaseURL == "" {
		add("LEADER_ELECTION_ENABLED", "requires DATABASE_URL")
	}

	switch cfg.LogFormat {
	case "json", "console":
	default:
		add("LOG_FORMAT", "must be 'json' or 'console', got %q", cfg.LogFormat)
	}

	positive := []struct{ field, value string }{
		{"TICK_INTERVAL", cfg.TickIntervalStr},
		{"DB_OP_TIMEOUT", cfg.DBOpTimeoutStr},
		{"DIRECTIONS_TIMEOUT", cfg.DirectionsTimeoutStr},
		{"MAIL_TIMEOUT", cfg.MailTimeoutStr},
		{"INVOCATION_TIMEOUT", cfg.InvocationTimeoutStr},
		{"CIRCUIT_BREAKER_COOLDOWN", cfg.CircuitBreakerCooldownStr},
		{"DEDUPE_TTL", cfg.DedupeTTLStr},
		{"ANALYTICS_RETENTION", cfg.AnalyticsRetentionStr},
		{"HTTP_SHUTDOWN_TIMEOUT", cfg.HTTPShutdownTimeoutStr},
		{"LEADER_RETRY_INTERVAL", cfg.LeaderRetryIntervalStr},
		{"LEADER_HEARTBEAT_INTERVAL", cfg.LeaderHeartbeatIntervalStr},
	}
	for _, p := range positive {
		d, err := time.ParseDuration(p.value)
		if err != nil {
			add(p.field, "invalid duration: %v", err)
		} else if d <= 0 {
			add(p.field, "must be positive")
		}
	}

	switch cfg.AnalyticsWindowStr {
	case "1m", "5m", "1h":
	default:
		add("ANALYTICS_WINDOW", "must be 1m, 5m or 1h, got %q", cfg.AnalyticsWindowStr)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
