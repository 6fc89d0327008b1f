package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifedashboard/life-dashboard/internal/domain/shared"
)

func TestPublish_CompletedScenario(t *testing.T) {
	d, logs := newTestDispatcher()
	ctx := context.Background()
	h1 := &recorder{}

	d.RegisterHandler(shared.EventQuestCompleted, h1.handle, Named("H1"), MinVersion("1.0.0"))
	d.Publish(ctx, questCompleted("1.0.0"))
	assert.Equal(t, 1, h1.calls())

	require.True(t, d.UnregisterHandler(shared.EventQuestCompleted, "H1"))
	d.RegisterHandler(shared.EventQuestCompleted, h1.handle, Named("H1"), MinVersion("2.0.0"))
	d.Publish(ctx, questCompleted("1.0.0"))

	assert.Equal(t, 1, h1.calls(), "H1 must not be called for an older event")
	warnings := logs.at(t, "WARN")
	require.Len(t, warnings, 1)
	assert.Equal(t, "H1", warnings[0]["handler"])
	assert.Equal(t, "1.0.0", warnings[0]["event_version"])
	assert.Equal(t, "2.0.0", warnings[0]["min_version"])
}

func TestPublish_VersionWindow(t *testing.T) {
	tests := []struct {
		name         string
		min, max     string
		eventVersion string
		wantCalled   bool
	}{
		{"equal to min", "1.0.0", "", "1.0.0", true},
		{"above min unbounded", "1.0.0", "", "7.3.1", true},
		{"below min", "1.2.0", "", "1.1.9", false},
		{"inside window", "1.0.0", "2.0.0", "1.5.0", true},
		{"equal to max", "1.0.0", "2.0.0", "2.0.0", true},
		{"above max", "1.0.0", "2.0.0", "2.0.1", false},
		{"unparsable event version", "1.0.0", "", "latest", false},
		{"unparsable min", "one", "", "1.0.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDispatcher()
			h := &recorder{}
			d.RegisterHandler(shared.EventQuestCompleted, h.handle, MinVersion(tt.min), MaxVersion(tt.max))

			d.Publish(context.Background(), questCompleted(tt.eventVersion))

			want := 0
			if tt.wantCalled {
				want = 1
			}
			assert.Equal(t, want, h.calls())
		})
	}
}

func TestPublish_UnparsableVersionWarnsOnce(t *testing.T) {
	d, logs := newTestDispatcher()
	h := &recorder{}
	d.RegisterHandler(shared.EventQuestCompleted, h.handle, Named("h"))

	assert.NotPanics(t, func() {
		d.Publish(context.Background(), questCompleted("not-a-version"))
	})

	assert.Zero(t, h.calls())
	warnings := logs.at(t, "WARN")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0]["error"], "invalid semantic version")
}

func TestPublish_FailureIsolation(t *testing.T) {
	d, logs := newTestDispatcher()
	second := &recorder{}
	third := &recorder{}

	d.RegisterHandler(shared.EventQuestCompleted, func(context.Context, shared.Event) error {
		return errors.New("boom")
	}, Named("failing"))
	d.RegisterHandler(shared.EventQuestCompleted, second.handle, Named("second"))
	d.RegisterHandler(shared.EventQuestCompleted, func(context.Context, shared.Event) error {
		panic("kaboom")
	}, Named("panicking"))
	d.RegisterHandler(shared.EventQuestCompleted, third.handle, Named("third"))

	ev := questCompleted("1.0.0")
	assert.NotPanics(t, func() { d.Publish(context.Background(), ev) })

	assert.Equal(t, 1, second.calls())
	assert.Equal(t, 1, third.calls())

	errs := logs.at(t, "ERROR")
	require.Len(t, errs, 2)
	assert.Equal(t, "failing", errs[0]["handler"])
	assert.Equal(t, "boom", errs[0]["error"])
	assert.Equal(t, string(shared.EventQuestCompleted), errs[0]["event_type"])
	assert.Equal(t, ev.EventID, errs[0]["event_id"])
	assert.Equal(t, "panicking", errs[1]["handler"])
	assert.Equal(t, "handler panic: kaboom", errs[1]["error"])
	assert.NotEmpty(t, errs[1]["stack"])

	snap := d.Metrics().Snapshot()
	assert.Equal(t, int64(4), snap.TotalExecutions)
	assert.Equal(t, int64(2), snap.TotalFailures)
}

func TestPublish_RegistrationOrder(t *testing.T) {
	d, _ := newTestDispatcher()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		d.RegisterHandler(shared.EventLevelUp, func(context.Context, shared.Event) error {
			order = append(order, name)
			return nil
		}, Named(name))
	}

	d.Publish(context.Background(), shared.NewLevelUp(1, 1, 2, 100))
	d.Publish(context.Background(), shared.NewLevelUp(1, 2, 3, 300))

	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, order)
}

func TestPublish_ExactTypeOnly(t *testing.T) {
	d, _ := newTestDispatcher()
	h := &recorder{}
	d.RegisterHandler(shared.EventQuestCreated, h.handle)

	d.Publish(context.Background(), questCompleted("1.0.0"))
	d.Publish(context.Background(), shared.NewQuestFailed(1, 2, "daily", "late", shared.NewBaseEvent().Timestamp))

	assert.Zero(t, h.calls())
}

func TestPublish_DeliversSameEvent(t *testing.T) {
	d, _ := newTestDispatcher()
	h := &recorder{}
	d.RegisterHandler(shared.EventQuestCompleted, h.handle)

	ev := questCompleted("1.0.0")
	d.Publish(context.Background(), ev)

	require.Len(t, h.events, 1)
	assert.Equal(t, shared.Event(ev), h.events[0])
}

func TestPublish_NilEventIgnored(t *testing.T) {
	d, logs := newTestDispatcher()
	assert.NotPanics(t, func() { d.Publish(context.Background(), nil) })
	assert.Empty(t, d.EventLog())
	assert.Len(t, logs.at(t, "WARN"), 1)
}

func TestPublish_ReentrantFollowUp(t *testing.T) {
	d, _ := newTestDispatcher()
	awarded := &recorder{}

	d.RegisterHandler(shared.EventQuestCompleted, func(ctx context.Context, e shared.Event) error {
		qc := e.(shared.QuestCompleted)
		PublishEvent(ctx, shared.NewExperienceAwarded(qc.UserID, qc.ExperienceReward, "quest", qc.QuestID, "quest completed"))
		return nil
	}, Named("award"))
	d.RegisterHandler(shared.EventExperienceAwarded, awarded.handle)

	d.Publish(context.Background(), questCompleted("1.0.0"))

	require.Equal(t, 1, awarded.calls())
	xp := awarded.events[0].(shared.ExperienceAwarded)
	assert.Equal(t, 50, xp.ExperiencePoints)

	log := d.EventLog()
	require.Len(t, log, 2)
	assert.Equal(t, shared.EventQuestCompleted, log[0].EventType())
	assert.Equal(t, shared.EventExperienceAwarded, log[1].EventType())
}

func TestRegisterHandler_NilIgnored(t *testing.T) {
	d, logs := newTestDispatcher()
	d.RegisterHandler(shared.EventLevelUp, nil)

	assert.Empty(t, d.Handlers(shared.EventLevelUp))
	assert.Len(t, logs.at(t, "WARN"), 1)
}

func awardExperience(context.Context, shared.Event) error { return nil }

func TestRegisterHandler_Defaults(t *testing.T) {
	d, _ := newTestDispatcher()
	d.RegisterHandler(shared.EventQuestCompleted, awardExperience)

	regs := d.Handlers(shared.EventQuestCompleted)
	require.Len(t, regs, 1)
	assert.Equal(t, "awardExperience", regs[0].Name)
	assert.Equal(t, DefaultMinVersion, regs[0].MinVersion)
	assert.Empty(t, regs[0].MaxVersion)
	assert.Equal(t, shared.EventQuestCompleted, regs[0].EventType)
}

func TestHandlerName_MethodValue(t *testing.T) {
	r := &recorder{}
	assert.Equal(t, "(*recorder).handle", handlerName(r.handle))
}

func TestUnregisterHandler(t *testing.T) {
	d, _ := newTestDispatcher()
	first := &recorder{}
	second := &recorder{}
	d.RegisterHandler(shared.EventQuestCompleted, first.handle, Named("dup"))
	d.RegisterHandler(shared.EventQuestCompleted, second.handle, Named("dup"))

	assert.False(t, d.UnregisterHandler(shared.EventQuestCompleted, "missing"))
	assert.Len(t, d.Handlers(shared.EventQuestCompleted), 2)

	assert.True(t, d.UnregisterHandler(shared.EventQuestCompleted, "dup"))
	d.Publish(context.Background(), questCompleted("1.0.0"))
	assert.Zero(t, first.calls(), "first match is removed")
	assert.Equal(t, 1, second.calls())

	assert.True(t, d.UnregisterHandler(shared.EventQuestCompleted, "dup"))
	assert.False(t, d.UnregisterHandler(shared.EventQuestCompleted, "dup"))
	assert.Empty(t, d.RegisteredTypes())
}

func TestClearHandlers(t *testing.T) {
	d, _ := newTestDispatcher()
	d.RegisterHandler(shared.EventQuestCompleted, awardExperience)
	d.RegisterHandler(shared.EventLevelUp, awardExperience)
	d.RegisterHandler(shared.EventBadgeEarned, awardExperience)

	d.ClearHandlers(shared.EventLevelUp)
	assert.Equal(t, []shared.EventType{shared.EventBadgeEarned, shared.EventQuestCompleted}, d.RegisteredTypes())

	d.ClearHandlers()
	assert.Empty(t, d.RegisteredTypes())
}

func TestHandlers_ReturnsCopy(t *testing.T) {
	d, _ := newTestDispatcher()
	d.RegisterHandler(shared.EventQuestCompleted, awardExperience, Named("orig"))

	regs := d.Handlers(shared.EventQuestCompleted)
	regs[0].Name = "changed"

	got := d.Handlers(shared.EventQuestCompleted)
	require.Len(t, got, 1)
	assert.Equal(t, "orig", got[0].Name)
}

func TestEventLog(t *testing.T) {
	d, _ := newTestDispatcher()
	ctx := context.Background()
	require.True(t, d.EventLoggingEnabled())

	for i := 1; i <= 3; i++ {
		d.Publish(ctx, questCompleted("1.0.0"))
		assert.Len(t, d.EventLog(), i, "logged even without handlers")
	}

	d.EnableEventLogging(false)
	d.Publish(ctx, questCompleted("1.0.0"))
	assert.Len(t, d.EventLog(), 3)

	snapshot := d.EventLog()
	snapshot[0] = nil
	assert.NotNil(t, d.EventLog()[0], "EventLog returns a copy")

	d.ClearEventLog()
	assert.Empty(t, d.EventLog())

	d.EnableEventLogging(true)
	d.Publish(ctx, questCompleted("1.0.0"))
	assert.Len(t, d.EventLog(), 1)
}

func TestEventLog_Limit(t *testing.T) {
	d := NewDispatcherBuilder().WithEventLogLimit(2).WithLogger(discardLogger()).Build()

	evs := []shared.Event{questCompleted("1.0.0"), questCompleted("1.0.0"), questCompleted("1.0.0")}
	for _, e := range evs {
		d.Publish(context.Background(), e)
	}

	assert.Equal(t, evs[1:], d.EventLog())
}

func TestEventLog_DisabledByConfig(t *testing.T) {
	d := NewDispatcherBuilder().WithEventLogging(false).WithLogger(discardLogger()).Build()
	d.Publish(context.Background(), questCompleted("1.0.0"))

	assert.False(t, d.EventLoggingEnabled())
	assert.Empty(t, d.EventLog())
}

func TestReset(t *testing.T) {
	d, _ := newTestDispatcher()
	d.RegisterHandler(shared.EventQuestCompleted, awardExperience)
	d.Publish(context.Background(), questCompleted("1.0.0"))

	require.EqualValues(t, 1, d.Metrics().Snapshot().TotalExecutions)

	d.Reset()

	assert.Empty(t, d.RegisteredTypes())
	assert.Empty(t, d.EventLog())
	snap := d.Metrics().Snapshot()
	assert.Zero(t, snap.TotalPublished)
	assert.Zero(t, snap.TotalExecutions)
}

func TestMiddleware_Order(t *testing.T) {
	var trace []string
	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, e shared.Event) error {
				trace = append(trace, name)
				return next(ctx, e)
			}
		}
	}

	d := NewDispatcherBuilder().
		WithLogger(discardLogger()).
		WithMiddleware(mw("outer")).
		WithMiddleware(mw("inner")).
		Build()
	d.RegisterHandler(shared.EventLevelUp, func(context.Context, shared.Event) error {
		trace = append(trace, "handler")
		return nil
	})

	d.Publish(context.Background(), shared.NewLevelUp(1, 1, 2, 100))

	assert.Equal(t, []string{"outer", "inner", "handler"}, trace)
}

func TestLoggingMiddleware(t *testing.T) {
	logger, logs := newTestLogger()
	d := NewDispatcherBuilder().WithLogger(logger).WithMiddleware(LoggingMiddleware(logger)).Build()
	d.RegisterHandler(shared.EventLevelUp, awardExperience)

	d.Publish(context.Background(), shared.NewLevelUp(1, 1, 2, 100))

	var finished int
	for _, e := range logs.at(t, "DEBUG") {
		if e["msg"] == "handler finished" {
			finished++
			assert.Equal(t, true, e["ok"])
		}
	}
	assert.Equal(t, 1, finished)
}

func TestMetrics(t *testing.T) {
	metrics := NewDispatcherMetrics()
	d := NewDispatcherBuilder().WithMetrics(metrics).WithLogger(discardLogger()).Build()
	d.RegisterHandler(shared.EventQuestCompleted, awardExperience)
	d.RegisterHandler(shared.EventQuestCompleted, awardExperience, MinVersion("3.0.0"))

	d.Publish(context.Background(), questCompleted("1.0.0"))
	d.Publish(context.Background(), shared.NewLevelUp(1, 1, 2, 100))

	snap := metrics.Snapshot()
	assert.Equal(t, int64(2), snap.TotalPublished)
	assert.Equal(t, int64(1), snap.PublishedByType[shared.EventQuestCompleted])
	assert.Equal(t, int64(1), snap.TotalExecutions)
	assert.Equal(t, int64(1), snap.TotalSkipped)
	assert.Equal(t, 1.0, snap.SuccessRate)

	metrics.Reset()
	assert.Zero(t, metrics.Snapshot().TotalPublished)
}

func TestDispatcher_ConcurrentUse(t *testing.T) {
	d := NewDispatcherBuilder().WithLogger(discardLogger()).Build()
	h := &recorder{}
	d.RegisterHandler(shared.EventQuestCompleted, h.handle, Named("base"))

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				d.Publish(context.Background(), questCompleted("1.0.0"))
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				d.RegisterHandler(shared.EventLevelUp, awardExperience, Named("tmp"))
				d.UnregisterHandler(shared.EventLevelUp, "tmp")
				_ = d.Handlers(shared.EventQuestCompleted)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, h.calls())
	assert.Len(t, d.EventLog(), workers*perWorker)
}

func TestUse_FirstMiddlewareIsOutermost(t *testing.T) {
	d, _ := newTestDispatcher()
	var order []string
	trace := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, event shared.Event) error {
				order = append(order, name+">")
				err := next(ctx, event)
				order = append(order, "<"+name)
				return err
			}
		}
	}
	d.Use(trace("outer"))
	d.Use(trace("inner"))
	d.RegisterHandler(shared.EventQuestCompleted, func(context.Context, shared.Event) error {
		order = append(order, "handler")
		return nil
	})

	d.Publish(context.Background(), questCompleted("1.0.0"))

	assert.Equal(t, []string{"outer>", "inner>", "handler", "<inner", "<outer"}, order)
}

func TestRecoveryMiddleware_ReturnsPanicError(t *testing.T) {
	handler := RecoveryMiddleware()(func(context.Context, shared.Event) error {
		panic("kaboom")
	})

	err := handler(context.Background(), questCompleted("1.0.0"))

	var pe *PanicError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}
