package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	userLockKeyPrefix = "lifecycle:lock:"
	releaseTimeout    = 2 * time.Second
)

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisUserLocker implements UserLocker with SET NX PX and a token checked on release.
type RedisUserLocker struct {
	client redis.UniversalClient
}

// NewRedisUserLocker creates a new Redis-backed user locker.
func NewRedisUserLocker(client redis.UniversalClient) *RedisUserLocker {
	return &RedisUserLocker{client: client}
}

func makeUserLockKey(userID string) string {
	return fmt.Sprintf("%s%s", userLockKeyPrefix, userID)
}

// Acquire takes the user's lock for at most ttl.
func (l *RedisUserLocker) Acquire(ctx context.Context, userID string, ttl time.Duration) (func(), error) {
	key := makeUserLockKey(userID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock for user %s: %w", userID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %s is locked by another evaluation", ErrConcurrentModification, userID)
	}

	release := func() {
		// the caller's context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			logrus.Warnf("failed to release lock for user %s: %v", userID, err)
		}
	}
	return release, nil
}
