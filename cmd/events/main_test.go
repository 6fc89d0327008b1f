package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifedashboard/life-dashboard/config"
	"github.com/lifedashboard/life-dashboard/internal/domain/shared"
	"github.com/lifedashboard/life-dashboard/internal/infrastructure/messaging"
)

func testConfig(t *testing.T, vars map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(vars)
	require.NoError(t, err)
	return cfg
}

func runCommand(t *testing.T, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := runWith(context.Background(), cfg, args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRunWith_Demo(t *testing.T) {
	out, logs, err := runCommand(t, testConfig(t, nil))
	require.NoError(t, err)

	assert.Contains(t, out, "Registered handlers:")
	assert.Contains(t, out, "    - awardExperience (v1.0.0+)")
	assert.Contains(t, out, "    - questAnalytics (v2.0.0+)")
	assert.Contains(t, out, "    - indexJournal (v1.0.0 to v1.99.99)")

	assert.Contains(t, out, "8 events were published:")
	for i, want := range []string{
		"quest.completed v1.0.0",
		"progress.experience_awarded v1.0.0",
		"achievement.unlocked v1.0.0",
		"progress.experience_awarded v1.0.0",
		"quest.completed v2.0.0",
		"progress.experience_awarded v1.0.0",
		"progress.level_up v1.0.0",
		"journal.entry_created v1.0.0",
	} {
		assert.Contains(t, out, fmt.Sprintf("  %d. %s (id ", i+1, want))
	}

	assert.Contains(t, logs, "handler incompatible with event version")
	assert.Contains(t, logs, "level up")
	assert.NotContains(t, out, "Metrics:")
}

func TestRunWith_DemoWithMetrics(t *testing.T) {
	cfg := testConfig(t, map[string]string{"METRICS_ENABLED": "true", "LOG_LEVEL": "error"})

	out, logs, err := runCommand(t, cfg, "demo")
	require.NoError(t, err)
	assert.Empty(t, logs)

	assert.Contains(t, out, "Metrics:")
	assert.Contains(t, out, "events_published_total{event_type=quest.completed} = 2")
	assert.Contains(t, out, "events_published_total{event_type=progress.experience_awarded} = 3")
	assert.Contains(t, out, "event_handler_executions_total = 11")
	assert.Contains(t, out, "event_handler_skipped_total = 1")
	assert.Contains(t, out, "events_withheld_total = 0")
	assert.Contains(t, out, "event_audit_log_entries = 8")
}

func TestRunWith_DemoWithoutGate(t *testing.T) {
	cfg := testConfig(t, map[string]string{"EVENTS_PRIVACY_GATE": "false"})

	out, _, err := runCommand(t, cfg, "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "8 events were published:")
}

func TestRunWith_Verify(t *testing.T) {
	out, _, err := runCommand(t, testConfig(t, nil), "verify")
	require.NoError(t, err)

	assert.Contains(t, out, fmt.Sprintf("%d kinds registered, 0 failed", len(shared.Kinds())))
	assert.Contains(t, out, "  ok   quest.completed")
	assert.NotContains(t, out, "FAIL")
}

func TestRunWith_VerifyAgainstExpectedKinds(t *testing.T) {
	expected := make([]string, 0, len(shared.Kinds()))
	for _, kind := range shared.Kinds() {
		expected = append(expected, kind.String())
	}

	_, _, err := runCommand(t, testConfig(t, nil), append([]string{"verify"}, expected...)...)
	require.NoError(t, err)

	out, _, err := runCommand(t, testConfig(t, nil), "verify", "quest.completed", "quest.abandoned_forever")
	assert.ErrorIs(t, err, errVerifyFailed)
	assert.Contains(t, out, "  missing quest.abandoned_forever")
	assert.Contains(t, out, "  extra   user.registered")
}

func TestRunWith_Encode(t *testing.T) {
	payload := `{"event_id":"e1","timestamp":"2026-01-01T00:00:00Z","version":"1.0.0",` +
		`"user_id":7,"previous_level":1,"new_level":2,"total_experience":150}`

	out, _, err := runCommand(t, testConfig(t, nil), "encode", "progress.level_up", payload)
	require.NoError(t, err)

	want := `{"event_id":"e1","event_type":"progress.level_up","new_level":2,"previous_level":1,` +
		`"timestamp":"2026-01-01T00:00:00Z","total_experience":150,"user_id":7,"version":"1.0.0"}`
	assert.Equal(t, want+"\n", out)
}

func TestRunWith_EncodeFillsEnvelope(t *testing.T) {
	out, _, err := runCommand(t, testConfig(t, nil), "encode", "progress.level_up", `{"user_id":7}`)
	require.NoError(t, err)

	event, err := shared.DecodeText(strings.TrimSpace(out))
	require.NoError(t, err)
	up, ok := event.(shared.LevelUp)
	require.True(t, ok)
	assert.Equal(t, int64(7), up.UserID)
	assert.NotEmpty(t, up.EventID)
	assert.Equal(t, shared.DefaultEventVersion, up.Version)
	assert.False(t, up.Timestamp.IsZero())
}

func TestRunWith_EncodeErrors(t *testing.T) {
	cfg := testConfig(t, nil)

	_, _, err := runCommand(t, cfg, "encode")
	assert.ErrorIs(t, err, errUsage)

	_, _, err = runCommand(t, cfg, "encode", "quest.teleported")
	assert.ErrorIs(t, err, shared.ErrUnknownEventType)

	_, _, err = runCommand(t, cfg, "encode", "progress.level_up", `{"user_id":`)
	assert.Error(t, err)

	_, _, err = runCommand(t, cfg, "encode", "progress.level_up", `{"favourite_colour":"blue"}`)
	assert.Error(t, err)
}

func TestRunWith_UnknownCommand(t *testing.T) {
	_, logs, err := runCommand(t, testConfig(t, nil), "launch")
	assert.ErrorContains(t, err, `unknown command "launch"`)
	assert.Contains(t, logs, "usage: events")

	out, _, err := runCommand(t, testConfig(t, nil), "help")
	require.NoError(t, err)
	assert.Contains(t, out, "usage: events")
}

func TestSetupLogger_JSONInProduction(t *testing.T) {
	cfg := testConfig(t, map[string]string{"APP_ENV": "production"})
	var buf bytes.Buffer

	setupLogger(cfg, &buf).Info("hello", "event_type", "quest.completed")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), buf.String())
	assert.Contains(t, buf.String(), `"event_type":"quest.completed"`)
}

func TestProgress_LevelsUpAcrossThreshold(t *testing.T) {
	var logs bytes.Buffer
	log := setupLogger(testConfig(t, nil), &logs)

	p := newProgress(log)
	d := p.handlers().Build(messaging.DispatcherConfig{EnableEventLog: true, Logger: log})

	ctx := messaging.WithDispatcher(context.Background(), d)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	messaging.PublishEvent(ctx, shared.NewQuestCompleted(9, 1, "daily", 30, now, false))
	messaging.PublishEvent(ctx, shared.NewQuestCompleted(9, 2, "daily", 30, now, false))

	// 30 + 50 (achievement, first daily only) + 30
	assert.Equal(t, 110, p.Experience(9))

	var levelUps []shared.LevelUp
	for _, event := range d.EventLog() {
		if up, ok := event.(shared.LevelUp); ok {
			levelUps = append(levelUps, up)
		}
	}
	require.Len(t, levelUps, 1)
	assert.Equal(t, 1, levelUps[0].PreviousLevel)
	assert.Equal(t, 2, levelUps[0].NewLevel)
	assert.Equal(t, 110, levelUps[0].TotalExperience)
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, 1, levelFor(0))
	assert.Equal(t, 1, levelFor(99))
	assert.Equal(t, 2, levelFor(100))
	assert.Equal(t, 4, levelFor(365))
}
