package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/autoresolve/internal/domain"
)

const resolveKeyPrefix = "autoresolve:resolved:"

// RedisResolveGuard marks tickets as auto-resolved for a TTL so duplicate
// webhook deliveries do not send a second update.
type RedisResolveGuard struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisResolveGuard builds a guard. A non-positive ttl defaults to ten minutes.
func NewRedisResolveGuard(client redis.Cmdable, ttl time.Duration) *RedisResolveGuard {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisResolveGuard{client: client, ttl: ttl}
}

// Claim reports whether the caller is first to resolve the ticket within the TTL.
func (g *RedisResolveGuard) Claim(ctx context.Context, id domain.TicketID) (bool, error) {
	ok, err := g.client.SetNX(ctx, resolveKey(id), time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim resolve guard: %w", err)
	}
	return ok, nil
}

// Release drops a claim after a failed update so a later delivery may retry.
func (g *RedisResolveGuard) Release(ctx context.Context, id domain.TicketID) error {
	if err := g.client.Del(ctx, resolveKey(id)).Err(); err != nil {
		return fmt.Errorf("release resolve guard: %w", err)
	}
	return nil
}

func resolveKey(id domain.TicketID) string {
	return resolveKeyPrefix + id.String()
}
