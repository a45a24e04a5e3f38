// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// HealthChecker checks the Redis instance holding lifecycle state.
type HealthChecker struct {
	client redis.UniversalClient
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(client redis.UniversalClient) *HealthChecker {
	return &HealthChecker{client: client}
}

// Check performs a Redis health check
func (h *HealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := h.client.Ping(ctx).Result()
	if err != nil {
		logrus.Errorf("Redis health check failed: %v", err)
		return err
	}

	logrus.Debugf("Redis health check passed")
	return nil
}

// IsHealthy returns true if Redis is accessible
func (h *HealthChecker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx) == nil
}

// Watch runs Check every interval and reports changes through onChange
// until ctx is cancelled. The first result is always reported.
func (h *HealthChecker) Watch(ctx context.Context, interval time.Duration, onChange func(healthy bool)) {
	last := h.IsHealthy(ctx)
	onChange(last)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			healthy := h.IsHealthy(ctx)
			if healthy != last {
				logrus.Infof("Redis health changed: healthy=%v", healthy)
				onChange(healthy)
				last = healthy
			}
		}
	}
}
