package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration for the commute notifier.
// Values are loaded from environment variables; see the root command help for the full list.
type Config struct {
	// ScheduleCron is a five-field cron expression evaluated in ScheduleTimezone.
	// ScheduleTimezone is also the deployment timezone departure times are compared in.
	ScheduleCron     string `json:"schedule_cron"`
	ScheduleTimezone string `json:"schedule_timezone"`

	TickInterval    time.Duration `json:"-"`
	TickIntervalStr string        `json:"tick_interval"`

	// ProfileSource: "postgres" or "file".
	ProfileSource  string        `json:"profile_source"`
	DatabaseURL    string        `json:"database_url"`
	ProfilesFile   string        `json:"profiles_file"`
	DBOpTimeout    time.Duration `json:"-"`
	DBOpTimeoutStr string        `json:"db_op_timeout"`
	DBMaxOpenConns int           `json:"db_max_open_conns"`
	DBMaxIdleConns int           `json:"db_max_idle_conns"`

	GoogleMapsAPIKey      string        `json:"google_maps_api_key"`
	StaticMapsAPIKey      string        `json:"static_maps_api_key"`
	DirectionsBaseURL     string        `json:"directions_base_url"`
	DirectionsTimeout     time.Duration `json:"-"`
	DirectionsTimeoutStr  string        `json:"directions_timeout"`
	DirectionsMaxAttempts int           `json:"directions_max_attempts"`

	// MailProvider: "smtp", "resend" or "log".
	MailProvider   string        `json:"mail_provider"`
	MailFrom       string        `json:"mail_from"`
	MailSubject    string        `json:"mail_subject"`
	MailTimeout    time.Duration `json:"-"`
	MailTimeoutStr string        `json:"mail_timeout"`
	SMTPHost       string        `json:"smtp_host"`
	SMTPPort       int           `json:"smtp_port"`
	SMTPUsername   string        `json:"smtp_username"`
	SMTPPassword   string        `json:"smtp_password"`
	ResendAPIKey   string        `json:"resend_api_key"`

	// NotifierMaxConcurrency: 0 means one goroutine per profile.
	NotifierMaxConcurrency int           `json:"notifier_max_concurrency"`
	InvocationTimeout      time.Duration `json:"-"`
	InvocationTimeoutStr   string        `json:"invocation_timeout"`
	EventBusBufferSize     int           `json:"eventbus_buffer_size"`

	// CircuitBreakerThreshold: 0 disables the circuit breaker.
	CircuitBreakerThreshold   int           `json:"circuit_breaker_threshold"`
	CircuitBreakerCooldown    time.Duration `json:"-"`
	CircuitBreakerCooldownStr string        `json:"circuit_breaker_cooldown"`

	// RedisAddr enables the dedupe ledger and outcome analytics when set.
	RedisAddr             string        `json:"redis_addr,omitempty"`
	DedupeTTL             time.Duration `json:"-"`
	DedupeTTLStr          string        `json:"dedupe_ttl"`
	AnalyticsWindow       time.Duration `json:"-"`
	AnalyticsWindowStr    string        `json:"analytics_window"`
	AnalyticsRetention    time.Duration `json:"-"`
	AnalyticsRetentionStr string        `json:"analytics_retention"`

	HTTPAddr               string        `json:"http_addr"`
	HTTPShutdownTimeout    time.Duration `json:"-"`
	HTTPShutdownTimeoutStr string        `json:"http_shutdown_timeout"`
	InvocationsToken       string        `json:"invocations_token"`

	MetricsEnabled bool   `json:"metrics_enabled"`
	MetricsPath    string `json:"metrics_path"`
	MetricsPort    string `json:"metrics_port"`

	// LeaderLockKey: all replicas sharing the same database must use the same key.
	LeaderElectionEnabled      bool          `json:"leader_election_enabled"`
	LeaderLockKey              int64         `json:"leader_lock_key"`
	LeaderRetryInterval        time.Duration `json:"-"`
	LeaderRetryIntervalStr     string        `json:"leader_retry_interval"`
	LeaderHeartbeatInterval    time.Duration `json:"-"`
	LeaderHeartbeatIntervalStr string        `json:"leader_heartbeat_interval"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

// LoadDotEnv loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Load reads configuration from environment variables with defaults.
// Malformed values are left for Validate to report.
func Load() Config {
	cfg := Config{
		ScheduleCron:               getenv("SCHEDULE_CRON", "*/15 8-11 * * 1-5"),
		ScheduleTimezone:           getenv("SCHEDULE_TIMEZONE", "America/Los_Angeles"),
		TickIntervalStr:            getenv("TICK_INTERVAL", "15s"),
		ProfileSource:              strings.ToLower(getenv("PROFILE_SOURCE", "postgres")),
		DatabaseURL:                os.Getenv("DATABASE_URL"),
		ProfilesFile:               getenv("PROFILES_FILE", "profiles.json"),
		DBOpTimeoutStr:             getenv("DB_OP_TIMEOUT", "5s"),
		GoogleMapsAPIKey:           os.Getenv("GOOGLE_MAPS_API_KEY"),
		StaticMapsAPIKey:           os.Getenv("STATIC_MAPS_API_KEY"),
		DirectionsBaseURL:          os.Getenv("DIRECTIONS_BASE_URL"),
		DirectionsTimeoutStr:       getenv("DIRECTIONS_TIMEOUT", "10s"),
		MailProvider:               strings.ToLower(getenv("MAIL_PROVIDER", "log")),
		MailFrom:                   os.Getenv("MAIL_FROM"),
		MailSubject:                os.Getenv("MAIL_SUBJECT"),
		MailTimeoutStr:             getenv("MAIL_TIMEOUT", "15s"),
		SMTPHost:                   os.Getenv("SMTP_HOST"),
		SMTPUsername:               os.Getenv("SMTP_USERNAME"),
		SMTPPassword:               os.Getenv("SMTP_PASSWORD"),
		ResendAPIKey:               os.Getenv("RESEND_API_KEY"),
		InvocationTimeoutStr:       getenv("INVOCATION_TIMEOUT", "2m"),
		CircuitBreakerCooldownStr:  getenv("CIRCUIT_BREAKER_COOLDOWN", "2m"),
		RedisAddr:                  os.Getenv("REDIS_ADDR"),
		DedupeTTLStr:               getenv("DEDUPE_TTL", "24h"),
		AnalyticsWindowStr:         getenv("ANALYTICS_WINDOW", "1h"),
		AnalyticsRetentionStr:      getenv("ANALYTICS_RETENTION", "168h"),
		HTTPAddr:                   os.Getenv("HTTP_ADDR"),
		HTTPShutdownTimeoutStr:     getenv("HTTP_SHUTDOWN_TIMEOUT", "10s"),
		InvocationsToken:           os.Getenv("INVOCATIONS_TOKEN"),
		MetricsEnabled:             getbool("METRICS_ENABLED"),
		MetricsPath:                getenv("METRICS_PATH", "/metrics"),
		MetricsPort:                getenv("METRICS_PORT", "9090"),
		LeaderElectionEnabled:      getbool("LEADER_ELECTION_ENABLED"),
		LeaderRetryIntervalStr:     getenv("LEADER_RETRY_INTERVAL", "5s"),
		LeaderHeartbeatIntervalStr: getenv("LEADER_HEARTBEAT_INTERVAL", "2s"),
		LogLevel:                   getenv("LOG_LEVEL", "info"),
		LogFormat:                  getenv("LOG_FORMAT", "json"),
	}

	cfg.DBMaxOpenConns = getint("DB_MAX_OPEN_CONNS", 10, 1)
	cfg.DBMaxIdleConns = getint("DB_MAX_IDLE_CONNS", 2, 1)
	cfg.DirectionsMaxAttempts = getint("DIRECTIONS_MAX_ATTEMPTS", 3, 1)
	cfg.SMTPPort = getint("SMTP_PORT", 587, 1)
	cfg.NotifierMaxConcurrency = getint("NOTIFIER_MAX_CONCURRENCY", 10, 0)
	cfg.EventBusBufferSize = getint("EVENTBUS_BUFFER_SIZE", 16, 1)
	cfg.CircuitBreakerThreshold = getint("CIRCUIT_BREAKER_THRESHOLD", 5, 0)
	cfg.LeaderLockKey = int64(getint("LEADER_LOCK_KEY", 482913, 1))

	// Support platforms that only inject PORT.
	if cfg.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.HTTPAddr = ":" + port
		} else {
			cfg.HTTPAddr = ":8080"
		}
	}

	cfg.TickInterval = parseDuration(cfg.TickIntervalStr)
	cfg.DBOpTimeout = parseDuration(cfg.DBOpTimeoutStr)
	cfg.DirectionsTimeout = parseDuration(cfg.DirectionsTimeoutStr)
	cfg.MailTimeout = parseDuration(cfg.MailTimeoutStr)
	cfg.InvocationTimeout = parseDuration(cfg.InvocationTimeoutStr)
	cfg.CircuitBreakerCooldown = parseDuration(cfg.CircuitBreakerCooldownStr)
	cfg.DedupeTTL = parseDuration(cfg.DedupeTTLStr)
	cfg.AnalyticsWindow = parseDuration(cfg.AnalyticsWindowStr)
	cfg.AnalyticsRetention = parseDuration(cfg.AnalyticsRetentionStr)
	cfg.HTTPShutdownTimeout = parseDuration(cfg.HTTPShutdownTimeoutStr)
	cfg.LeaderRetryInterval = parseDuration(cfg.LeaderRetryIntervalStr)
	cfg.LeaderHeartbeatInterval = parseDuration(cfg.LeaderHeartbeatIntervalStr)

	return cfg
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getbool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}

// getint returns def when key is unset, and logs and returns def when the
// value is not an integer >= min.
func getint(key string, def, min int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min {
		log.Warn().Str("component", "config").Str("key", key).Str("value", raw).Int("default", def).
			Msg("invalid integer, using default")
		return def
	}
	return n
}

// parseDuration returns zero for malformed input; Validate reports it.
func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// MaskedJSON returns the configuration as JSON with secrets masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := c
	masked.DatabaseURL = maskSecret(c.DatabaseURL)
	masked.GoogleMapsAPIKey = maskSecret(c.GoogleMapsAPIKey)
	masked.StaticMapsAPIKey = maskSecret(c.StaticMapsAPIKey)
	masked.SMTPPassword = maskSecret(c.SMTPPassword)
	masked.ResendAPIKey = maskSecret(c.ResendAPIKey)
	masked.InvocationsToken = maskSecret(c.InvocationsToken)
	return json.MarshalIndent(masked, "", "  ")
}

// maskSecret masks a secret value, preserving only the URI scheme if present.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(s, scheme) {
			return scheme + "***"
		}
	}
	return "***"
}
