package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"
)

const (
	userDirectoryKey  = "lifecycle:users"
	directoryScanSize = 500
)

// RedisUserDirectory implements UserDirectory with a Redis set.
type RedisUserDirectory struct {
	client redis.UniversalClient
}

// NewRedisUserDirectory creates a new Redis-backed user directory.
func NewRedisUserDirectory(client redis.UniversalClient) *RedisUserDirectory {
	return &RedisUserDirectory{client: client}
}

// Enroll adds users to the evaluated population. Enrolling twice is a no-op.
func (d *RedisUserDirectory) Enroll(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}

	members := make([]interface{}, 0, len(userIDs))
	for _, id := range userIDs {
		if id != "" {
			members = append(members, id)
		}
	}
	if len(members) == 0 {
		return nil
	}

	if err := d.client.SAdd(ctx, userDirectoryKey, members...).Err(); err != nil {
		return fmt.Errorf("failed to enroll users: %w", err)
	}
	return nil
}

// ListUsers returns every enrolled user in sorted order.
func (d *RedisUserDirectory) ListUsers(ctx context.Context) ([]string, error) {
	var (
		users  []string
		cursor uint64
	)
	for {
		keys, next, err := d.client.SScan(ctx, userDirectoryKey, cursor, "", directoryScanSize).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		users = append(users, keys...)
		if next == 0 {
			break
		}
		cursor = next
	}

	sort.Strings(users)
	return users, nil
}
