package main

import (
	"github.com/rs/zerolog"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/config"
)

// logConfigWarnings flags combinations that run but are risky in production.
func logConfigWarnings(log zerolog.Logger, cfg config.Config) {
	if cfg.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR not set: sends are not deduplicated, overlapping triggers for the same minute can email a user twice")
	}
	if !cfg.LeaderElectionEnabled && cfg.ProfileSource == "postgres" {
		log.Warn().Msg("LEADER_ELECTION_ENABLED=false: every replica runs the schedule; run a single replica or enable leader election")
	}
	if cfg.StaticMapsAPIKey == "" {
		log.Warn().Msg("STATIC_MAPS_API_KEY not set: the directions key is embedded in every emailed map URL; use a key restricted to the Static Maps API")
	}
	if cfg.InvocationsToken == "" {
		log.Warn().Msg("INVOCATIONS_TOKEN not set: anyone who can reach HTTP_ADDR can trigger a send")
	}
	if cfg.MailProvider == "log" {
		log.Warn().Msg("MAIL_PROVIDER=log: notifications are logged, not delivered")
	}
	if cfg.CircuitBreakerThreshold == 0 {
		log.Warn().Msg("CIRCUIT_BREAKER_THRESHOLD=0: directions and mail failures are never short-circuited")
	}
	if !cfg.MetricsEnabled {
		log.Info().Msg("METRICS_ENABLED=false: no Prometheus endpoint")
	}
}
