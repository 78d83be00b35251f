package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another job already owns the spreadsheet lock.
var ErrLockHeld = errors.New("lock already held")

// releaseScript deletes the lock only when the caller still owns it, so an
// expired-and-reacquired lock is never released by the previous owner.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// AcquireLock claims the per-spreadsheet write lock with the given token.
func (c *Client) AcquireLock(ctx context.Context, spreadsheetID, token string, ttl time.Duration) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	ok, err := c.store.SetNX(ctx, c.LockKey(spreadsheetID), token, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// ReleaseLock frees the lock if the token still matches.
func (c *Client) ReleaseLock(ctx context.Context, spreadsheetID, token string) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	err := c.store.Eval(ctx, releaseScript, []string{c.LockKey(spreadsheetID)}, token).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
