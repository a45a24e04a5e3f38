package signal

import (
	"sort"
	"sync"
)

// MetricMapper maps platform statistic codes to metric names.
// It lets a statistic-backed MetricsSource translate stat items into Metrics.
type MetricMapper struct {
	byStatCode map[string]string
	mu         sync.RWMutex
}

// NewMetricMapper creates a new empty mapper.
func NewMetricMapper() *MetricMapper {
	return &MetricMapper{
		byStatCode: make(map[string]string),
	}
}

// NewMetricMapperFromConfig builds a mapper from a metric name -> stat code table.
func NewMetricMapperFromConfig(statCodes map[string]string) *MetricMapper {
	m := NewMetricMapper()
	for metric, statCode := range statCodes {
		m.Register(statCode, metric)
	}
	return m
}

// Register maps statCode to metric, replacing any previous mapping.
func (m *MetricMapper) Register(statCode, metric string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byStatCode[statCode] = metric
}

// Metric returns the metric name for statCode.
func (m *MetricMapper) Metric(statCode string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	metric, ok := m.byStatCode[statCode]
	return metric, ok
}

// StatCodes returns all mapped stat codes in sorted order.
func (m *MetricMapper) StatCodes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	codes := make([]string, 0, len(m.byStatCode))
	for code := range m.byStatCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Count returns the number of mapped stat codes.
func (m *MetricMapper) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byStatCode)
}
