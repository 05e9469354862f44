// Package lease serializes sync runs across processes with a Redis lease.
package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	syncer "github.com/predictedpress/backend/internal/sync"
	"github.com/redis/go-redis/v9"
)

// unlockLua deletes a lease key only if its value matches the holder's
// token, so one run cannot release a lease acquired by another.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// RedisLease implements sync.Lease using SETNX with a TTL and a Lua-based
// conditional release.
type RedisLease struct {
	rdb      *redis.Client
	unlockSc *redis.Script
}

// New connects to Redis and verifies it responds.
func New(ctx context.Context, addr string) (*RedisLease, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return &RedisLease{
		rdb:      rdb,
		unlockSc: redis.NewScript(unlockLua),
	}, nil
}

// Close releases the Redis connection.
func (l *RedisLease) Close() error {
	return l.rdb.Close()
}

func leaseKey(key string) string {
	return "lease:" + key
}

// Acquire obtains the lease for key with the given TTL. On success it
// returns a release function that is safe to call more than once. It
// returns sync.ErrRunInProgress if another holder has the lease.
func (l *RedisLease) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := leaseKey(key)

	ok, err := l.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, syncer.ErrRunInProgress
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true

		// Release with a fresh context so it succeeds even when the
		// run's context is already cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = l.unlockSc.Run(releaseCtx, l.rdb, []string{lk}, token).Err()
	}

	return release, nil
}

// Compile-time interface check.
var _ syncer.Lease = (*RedisLease)(nil)
