package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifedashboard/life-dashboard/internal/domain/shared"
	"github.com/lifedashboard/life-dashboard/pkg/circuitbreaker"
)

// secretNote is privacy-sensitive but carries no subject.
type secretNote struct {
	shared.BaseEvent
	Body string `json:"body"`
}

func (secretNote) EventType() shared.EventType { return "test.secret_note" }
func (secretNote) PrivacySensitive() bool      { return true }

type consentCall struct {
	subjectID int64
	purpose   string
}

type stubConsent struct {
	granted bool
	err     error
	calls   []consentCall
}

func (s *stubConsent) HasConsent(_ context.Context, subjectID int64, purpose string) (bool, error) {
	s.calls = append(s.calls, consentCall{subjectID, purpose})
	return s.granted, s.err
}

func journalEntry(userID int64) shared.JournalEntryCreated {
	return shared.NewJournalEntryCreated(userID, 11, "free", "Tuesday", 240, nil, []string{"work"})
}

func TestConsentGate_MissingSubject(t *testing.T) {
	d, logs := newTestDispatcher()
	h := &recorder{}
	d.RegisterHandler("test.secret_note", h.handle)
	checker := &stubConsent{granted: true}
	gate := NewConsentGate(d, checker, nil)

	assert.NotPanics(t, func() {
		gate.Publish(context.Background(), secretNote{BaseEvent: shared.NewBaseEvent(), Body: "x"})
	})

	assert.Zero(t, h.calls())
	assert.Empty(t, checker.calls)
	errs := logs.at(t, "ERROR")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0]["msg"], "missing subject")
	assert.Equal(t, "test.secret_note", errs[0]["event_type"])
	assert.Empty(t, d.EventLog())
	assert.EqualValues(t, 1, d.Metrics().Snapshot().TotalWithheld)
}

func TestConsentGate_ConsentDenied(t *testing.T) {
	d, logs := newTestDispatcher()
	h := &recorder{}
	d.RegisterHandler(shared.EventJournalEntryCreated, h.handle)
	checker := &stubConsent{granted: false}
	gate := NewConsentGate(d, checker, nil)

	gate.Publish(context.Background(), journalEntry(42))

	assert.Zero(t, h.calls())
	assert.Equal(t, []consentCall{{42, "journal"}}, checker.calls)
	infos := logs.at(t, "INFO")
	require.Len(t, infos, 1)
	assert.Equal(t, "consent not granted, skipping event", infos[0]["msg"])
	assert.EqualValues(t, 42, infos[0]["subject_id"])
	assert.Empty(t, d.EventLog())
	assert.EqualValues(t, 1, d.Metrics().Snapshot().TotalWithheld)
}

func TestConsentGate_ConsentGranted(t *testing.T) {
	d, _ := newTestDispatcher()
	h := &recorder{}
	d.RegisterHandler(shared.EventJournalEntryCreated, h.handle)
	gate := NewConsentGate(d, &stubConsent{granted: true}, nil)

	gate.Publish(context.Background(), journalEntry(42))

	assert.Equal(t, 1, h.calls())
	assert.Len(t, d.EventLog(), 1)
	assert.Zero(t, d.Metrics().Snapshot().TotalWithheld)
}

func TestConsentGate_NonSensitivePassesWithoutCheck(t *testing.T) {
	d, _ := newTestDispatcher()
	h := &recorder{}
	d.RegisterHandler(shared.EventQuestCompleted, h.handle)
	checker := &stubConsent{granted: false}
	gate := NewConsentGate(d, checker, nil)

	gate.Publish(context.Background(), questCompleted(""))

	assert.Equal(t, 1, h.calls())
	assert.Empty(t, checker.calls)
}

func TestConsentGate_CheckerErrorWithholds(t *testing.T) {
	d, logs := newTestDispatcher()
	h := &recorder{}
	d.RegisterHandler(shared.EventJournalEntryCreated, h.handle)
	gate := NewConsentGate(d, &stubConsent{err: errors.New("db down")}, nil)

	gate.Publish(context.Background(), journalEntry(42))

	assert.Zero(t, h.calls())
	errs := logs.at(t, "ERROR")
	require.Len(t, errs, 1)
	assert.Equal(t, "consent check failed, dropping event", errs[0]["msg"])
	assert.Equal(t, "db down", errs[0]["error"])
}

func TestConsentGate_NilCheckerAllowsAll(t *testing.T) {
	d, _ := newTestDispatcher()
	h := &recorder{}
	d.RegisterHandler(shared.EventJournalEntryCreated, h.handle)

	NewConsentGate(d, nil, nil).Publish(context.Background(), journalEntry(1))

	assert.Equal(t, 1, h.calls())
}

func TestConsentGate_NilEvent(t *testing.T) {
	d, logs := newTestDispatcher()
	gate := NewConsentGate(d, nil, nil)

	gate.Publish(context.Background(), nil)

	assert.Len(t, logs.at(t, "WARN"), 1)
	assert.Zero(t, d.Metrics().Snapshot().TotalPublished)
}

func TestConsentGate_ChainedEventsAreGated(t *testing.T) {
	d, _ := newTestDispatcher()
	followUps := &recorder{}
	d.RegisterHandler(shared.EventQuestCompleted, func(ctx context.Context, e shared.Event) error {
		qc := e.(shared.QuestCompleted)
		PublishEvent(ctx, journalEntry(qc.UserID))
		return nil
	})
	d.RegisterHandler(shared.EventJournalEntryCreated, followUps.handle)
	checker := &stubConsent{granted: false}
	gate := NewConsentGate(d, checker, nil)

	gate.Publish(context.Background(), questCompleted(""))

	assert.Zero(t, followUps.calls())
	assert.Equal(t, []consentCall{{7, "journal"}}, checker.calls)
	assert.Len(t, d.EventLog(), 1)
}

func TestBreakerChecker_OpensOnRepeatedFailures(t *testing.T) {
	store := &stubConsent{err: errors.New("timeout")}
	breaker := circuitbreaker.New("consent", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithCoolDown(time.Hour))
	checker := NewBreakerChecker(store, breaker)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := checker.HasConsent(ctx, 1, "journal")
		require.Error(t, err)
	}

	ok, err := checker.HasConsent(ctx, 1, "journal")
	assert.False(t, ok)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Len(t, store.calls, 2)
}

func TestBreakerChecker_PassesThrough(t *testing.T) {
	store := &stubConsent{granted: true}
	checker := NewBreakerChecker(store, circuitbreaker.New("consent"))

	ok, err := checker.HasConsent(context.Background(), 3, "integration")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []consentCall{{3, "integration"}}, store.calls)
}
