package messaging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/lifedashboard/life-dashboard/internal/domain/shared"
)

// logCapture is a concurrency-safe buffer for JSON log lines.
type logCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// entries parses every captured line.
func (c *logCapture) entries(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []map[string]any
	sc := bufio.NewScanner(strings.NewReader(c.buf.String()))
	for sc.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("bad log line %q: %v", sc.Text(), err)
		}
		out = append(out, entry)
	}
	return out
}

// at returns the entries logged at the given level ("DEBUG", "INFO", "WARN", "ERROR").
func (c *logCapture) at(t *testing.T, level string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, e := range c.entries(t) {
		if e["level"] == level {
			out = append(out, e)
		}
	}
	return out
}

func newTestLogger() (*slog.Logger, *logCapture) {
	capture := &logCapture{}
	logger := slog.New(slog.NewJSONHandler(capture, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, capture
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher() (*Dispatcher, *logCapture) {
	logger, capture := newTestLogger()
	cfg := DefaultDispatcherConfig()
	cfg.Logger = logger
	return NewDispatcher(cfg), capture
}

// recorder counts invocations and remembers delivered events.
type recorder struct {
	mu     sync.Mutex
	events []shared.Event
}

func (r *recorder) handle(_ context.Context, e shared.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func questCompleted(version string) shared.QuestCompleted {
	return shared.NewQuestCompleted(7, 1, "daily", 50, shared.NewBaseEvent().Timestamp, false,
		shared.WithVersion(version))
}
