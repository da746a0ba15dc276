package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// admitScript runs the sliding-window check atomically on one sorted set.
// Scores are unix milliseconds.
var admitScript = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// Redis shares limiter state across replicas through a Redis sorted set per
// identity.
type Redis struct {
	client redis.Scripter
	limit  Limit
	prefix string
}

// NewRedis creates a limiter storing its windows under keys "<prefix><id>".
func NewRedis(client redis.Scripter, limit Limit, prefix string) *Redis {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &Redis{client: client, limit: limit.withDefaults(), prefix: prefix}
}

// Admit implements Store.
func (r *Redis) Admit(ctx context.Context, clientID string, now time.Time) (bool, error) {
	res, err := admitScript.Run(ctx, r.client,
		[]string{r.prefix + clientID},
		now.UnixMilli(),
		r.limit.Window.Milliseconds(),
		r.limit.Calls,
		uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}
	return res == 1, nil
}
