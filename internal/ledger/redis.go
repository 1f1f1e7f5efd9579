// Package ledger remembers which notifications were already sent so that
// overlapping triggers for the same minute do not email a user twice.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "commute:sent"

// RedisLedger claims (recipient, minute) pairs with SET NX and a TTL.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{client: client, ttl: ttl}
}

// Claim returns true when the caller is the first to claim email for the
// minute of evaluateAt.
func (l *RedisLedger) Claim(ctx context.Context, email string, evaluateAt time.Time) (bool, error) {
	ok, err := l.client.SetNX(ctx, buildKey(email, evaluateAt), evaluateAt.UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// Release drops a claim so a later trigger for the same minute may retry.
func (l *RedisLedger) Release(ctx context.Context, email string, evaluateAt time.Time) error {
	if err := l.client.Del(ctx, buildKey(email, evaluateAt)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Keys use the wall-clock minute of evaluateAt in its own location, which is
// the minute users configure their departure against.
func buildKey(email string, evaluateAt time.Time) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, strings.ToLower(strings.TrimSpace(email)), evaluateAt.Format("20060102:1504"))
}
