package messaging

import (
	"slices"
	"sync"

	"github.com/lifedashboard/life-dashboard/internal/domain/shared"
)

// AuditLog is the in-memory, ordered record of published events.
// It is not durable and is lost with the process.
type AuditLog struct {
	mu         sync.Mutex
	enabled    bool
	events     []shared.Event
	maxEntries int
}

// NewAuditLog creates an audit log. maxEntries <= 0 means unbounded; otherwise
// the oldest entry is dropped once the limit is reached.
func NewAuditLog(enabled bool, maxEntries int) *AuditLog {
	return &AuditLog{
		enabled:    enabled,
		maxEntries: maxEntries,
	}
}

// Append records event if logging is enabled and reports whether it did.
func (l *AuditLog) Append(event shared.Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		return false
	}
	if l.maxEntries > 0 && len(l.events) >= l.maxEntries {
		l.events = slices.Delete(l.events, 0, 1)
	}
	l.events = append(l.events, event)
	return true
}

// Events returns a copy of the recorded events, oldest first.
func (l *AuditLog) Events() []shared.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.events)
}

// Len returns the number of recorded events.
func (l *AuditLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Clear removes all recorded events.
func (l *AuditLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// Enable turns recording on or off. Existing entries are kept.
func (l *AuditLog) Enable(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// Enabled reports whether recording is on.
func (l *AuditLog) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}
