// Package analytics keeps rolling per-outcome counters in Redis so recent
// invocation results can be inspected without a metrics stack.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
)

const keyPrefix = "commute:outcomes"

type RedisSink struct {
	client    *redis.Client
	window    time.Duration
	retention time.Duration
}

// NewRedisSink buckets counters by window (1m, 5m or 1h) and expires each
// bucket after retention.
func NewRedisSink(client *redis.Client, window, retention time.Duration) *RedisSink {
	return &RedisSink{client: client, window: window, retention: retention}
}

// Write adds the outcome counts of a settled batch to the bucket of its
// evaluated minute.
func (s *RedisSink) Write(ctx context.Context, batch domain.BatchResult) error {
	counts := batch.Counts()
	if len(counts) == 0 {
		return nil
	}

	bucket := truncateToBucket(batch.EvaluatedAt, s.window)
	pipe := s.client.Pipeline()
	for outcome, n := range counts {
		key := buildKey(outcome, bucket)
		pipe.IncrBy(ctx, key, int64(n))
		pipe.Expire(ctx, key, s.retention)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}

// Count reads one outcome counter for the bucket containing t.
func (s *RedisSink) Count(ctx context.Context, outcome domain.Outcome, t time.Time) (int64, error) {
	n, err := s.client.Get(ctx, buildKey(outcome, truncateToBucket(t, s.window))).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get: %w", err)
	}
	return n, nil
}

func buildKey(outcome domain.Outcome, bucket string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, outcome, bucket)
}

func truncateToBucket(t time.Time, window time.Duration) string {
	t = t.UTC()
	switch window {
	case 5 * time.Minute:
		minute := (t.Minute() / 5) * 5
		return t.Format("2006010215") + fmt.Sprintf("%02d", minute)
	case time.Hour:
		return t.Format("2006010215")
	default:
		return t.Format("200601021504")
	}
}
