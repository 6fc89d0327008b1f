package messaging

import (
	"maps"
	"sync"
	"time"

	"github.com/lifedashboard/life-dashboard/internal/domain/shared"
)

// DispatcherMetrics tracks dispatcher activity.
type DispatcherMetrics struct {
	mu sync.RWMutex

	PublishedByType map[shared.EventType]int64

	ExecutionsTotal int64
	SuccessTotal    int64
	FailuresTotal   int64

	// SkippedTotal counts registrations passed over by the compatibility matcher.
	SkippedTotal int64
	// WithheldTotal counts events dropped by a consent gate.
	WithheldTotal int64

	TotalDuration time.Duration
	LastReset     time.Time
}

// NewDispatcherMetrics creates new dispatcher metrics.
func NewDispatcherMetrics() *DispatcherMetrics {
	return &DispatcherMetrics{
		PublishedByType: make(map[shared.EventType]int64),
		LastReset:       time.Now(),
	}
}

// RecordPublish records a publish call.
func (m *DispatcherMetrics) RecordPublish(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishedByType[eventType]++
}

// RecordExecution records a handler invocation.
func (m *DispatcherMetrics) RecordExecution(duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ExecutionsTotal++
	m.TotalDuration += duration
	if success {
		m.SuccessTotal++
	} else {
		m.FailuresTotal++
	}
}

// RecordSkipped records a registration skipped as incompatible.
func (m *DispatcherMetrics) RecordSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SkippedTotal++
}

// RecordWithheld records an event dropped by the consent gate.
func (m *DispatcherMetrics) RecordWithheld() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WithheldTotal++
}

// Snapshot returns a point-in-time snapshot.
func (m *DispatcherMetrics) Snapshot() DispatcherMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	avgDuration := time.Duration(0)
	successRate := 1.0
	if m.ExecutionsTotal > 0 {
		avgDuration = m.TotalDuration / time.Duration(m.ExecutionsTotal)
		successRate = float64(m.SuccessTotal) / float64(m.ExecutionsTotal)
	}

	var published int64
	for _, v := range m.PublishedByType {
		published += v
	}

	return DispatcherMetricsSnapshot{
		TotalPublished:  published,
		PublishedByType: maps.Clone(m.PublishedByType),
		TotalExecutions: m.ExecutionsTotal,
		TotalFailures:   m.FailuresTotal,
		TotalSkipped:    m.SkippedTotal,
		TotalWithheld:   m.WithheldTotal,
		SuccessRate:     successRate,
		AverageDuration: avgDuration,
		LastReset:       m.LastReset,
	}
}

// Reset zeroes all counters.
func (m *DispatcherMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishedByType = make(map[shared.EventType]int64)
	m.ExecutionsTotal, m.SuccessTotal, m.FailuresTotal = 0, 0, 0
	m.SkippedTotal, m.WithheldTotal = 0, 0
	m.TotalDuration = 0
	m.LastReset = time.Now()
}

// DispatcherMetricsSnapshot is a point-in-time snapshot.
type DispatcherMetricsSnapshot struct {
	TotalPublished  int64
	PublishedByType map[shared.EventType]int64
	TotalExecutions int64
	TotalFailures   int64
	TotalSkipped    int64
	TotalWithheld   int64
	SuccessRate     float64
	AverageDuration time.Duration
	LastReset       time.Time
}
