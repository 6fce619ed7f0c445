// internal/lock/lock.go
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Client is a short-lived, token-guarded mutex over a shared Redis key space.
// It is a best-effort pessimistic lock, not a consensus primitive: a crashed
// holder is recovered only by TTL expiry, so TTLs must exceed the worst-case
// critical section with margin.
type Client struct {
	rdb *redis.Client
}

// Lock proves ownership of a grant. The token must match the stored value for
// Release to take effect.
type Lock struct {
	Key   string
	Token string
}

// releaseScript deletes the key only if it still holds our token, so we never
// release a lock that expired and was reacquired by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func New(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Acquire attempts to take the lock without blocking. A nil Lock with a nil
// error means another holder is live; callers surface that as a retryable
// conflict.
func (c *Client) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &Lock{Key: key, Token: token}, nil
}

// Release frees the grant if the token still matches. Releasing an expired or
// already-released lock is a no-op.
func (c *Client) Release(ctx context.Context, l *Lock) error {
	if l == nil {
		return nil
	}
	return releaseScript.Run(ctx, c.rdb, []string{l.Key}, l.Token).Err()
}
