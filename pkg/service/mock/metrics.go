package mock

import (
	"context"
	"sync"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
)

// MetricsSource is a mock implementation of signal.MetricsSource for testing
type MetricsSource struct {
	// GetUserMetricsFunc allows tests to customize the behavior
	GetUserMetricsFunc func(ctx context.Context, userID string, asOf time.Time) (signal.Metrics, error)

	mu       sync.Mutex
	metrics  map[string]signal.Metrics
	errors   map[string]error
	requests map[string]int
}

// NewMetricsSource creates a new mock metrics source with no users
func NewMetricsSource() *MetricsSource {
	return &MetricsSource{
		metrics:  make(map[string]signal.Metrics),
		errors:   make(map[string]error),
		requests: make(map[string]int),
	}
}

// GetUserMetrics returns the configured metrics, or empty metrics for unknown users
func (m *MetricsSource) GetUserMetrics(ctx context.Context, userID string, asOf time.Time) (signal.Metrics, error) {
	m.mu.Lock()
	m.requests[userID]++
	metrics, err := m.metrics[userID], m.errors[userID]
	m.mu.Unlock()

	if m.GetUserMetricsFunc != nil {
		return m.GetUserMetricsFunc(ctx, userID, asOf)
	}
	if err != nil {
		return nil, err
	}

	out := make(signal.Metrics, len(metrics))
	for k, v := range metrics {
		out[k] = v
	}
	return out, nil
}

// WithUser sets the metrics returned for userID
func (m *MetricsSource) WithUser(userID string, metrics signal.Metrics) *MetricsSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics[userID] = metrics
	return m
}

// WithUserError makes reads for userID fail with err
func (m *MetricsSource) WithUserError(userID string, err error) *MetricsSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[userID] = err
	return m
}

// Requests returns how many times userID was read
func (m *MetricsSource) Requests(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[userID]
}
