package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseEvent_Defaults(t *testing.T) {
	before := time.Now().UTC()
	e := NewBaseEvent()
	after := time.Now().UTC()

	_, err := uuid.Parse(e.ID())
	require.NoError(t, err)
	assert.Equal(t, DefaultEventVersion, e.SchemaVersion())
	assert.Equal(t, time.UTC, e.OccurredAt().Location())
	assert.False(t, e.OccurredAt().Before(before))
	assert.False(t, e.OccurredAt().After(after))
}

func TestNewBaseEvent_UniqueIDs(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		id := NewBaseEvent().ID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate event id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNewBaseEvent_Options(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))

	e := NewBaseEvent(WithEventID("evt-1"), WithTimestamp(ts), WithVersion("2.1.0"))

	assert.Equal(t, "evt-1", e.EventID)
	assert.True(t, ts.Equal(e.Timestamp))
	assert.Equal(t, time.UTC, e.Timestamp.Location())
	assert.Equal(t, "2.1.0", e.Version)
}

func TestNewBaseEvent_EmptyOptionsKeepDefaults(t *testing.T) {
	e := NewBaseEvent(WithEventID(""), WithTimestamp(time.Time{}), WithVersion(""))

	assert.NotEmpty(t, e.EventID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, DefaultEventVersion, e.Version)
}

func TestEnvelope_IsCopy(t *testing.T) {
	ev := NewLevelUp(1, 2, 3, 500, WithVersion("1.2.0"))

	env := ev.Envelope()
	env.Version = "9.9.9"

	assert.Equal(t, "1.2.0", ev.Envelope().Version)
}

func TestEventType_Category(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventQuestCompleted, "quest"},
		{EventJournalEntryCreated, "journal"},
		{EventBalanceScoreCalculated, "analytics"},
		{EventType("nodot"), "nodot"},
	}
	for _, tt := range tests {
		t.Run(tt.eventType.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.eventType.Category())
		})
	}
}

func TestIsPrivacySensitive(t *testing.T) {
	sensitive := map[EventType]bool{
		EventUserProfileUpdated:     true,
		EventJournalEntryCreated:    true,
		EventJournalEntryUpdated:    true,
		EventInsightGenerated:       true,
		EventPatternDetected:        true,
		EventExternalDataReceived:   true,
		EventUserEngagementAnalyzed: true,
	}

	for _, ev := range sampleEvents() {
		assert.Equal(t, sensitive[ev.EventType()], IsPrivacySensitive(ev), ev.EventType().String())
	}
}

func TestSubjectOf(t *testing.T) {
	id, ok := SubjectOf(NewQuestCreated(42, 1, "daily", "Run", "easy", 10))
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = SubjectOf(NewQuestCreated(0, 1, "daily", "Run", "easy", 10))
	assert.False(t, ok, "zero user id is not a subject")

	_, ok = SubjectOf(envelopeOnly{NewBaseEvent()})
	assert.False(t, ok)
}

func TestPayloadTimestampsNormalizedToUTC(t *testing.T) {
	local := time.Date(2024, 5, 5, 8, 30, 0, 0, time.FixedZone("PDT", -7*3600))

	ev := NewQuestCompleted(1, 2, "main", 100, local, false)

	assert.Equal(t, time.UTC, ev.CompletionTimestamp.Location())
	assert.True(t, local.Equal(ev.CompletionTimestamp))
}

func TestAchievementProgressUpdated_Percentage(t *testing.T) {
	assert.InDelta(t, 50.0, NewAchievementProgressUpdated(1, 1, 5, 10).ProgressPercentage, 1e-9)
	assert.InDelta(t, 100.0, NewAchievementProgressUpdated(1, 1, 15, 10).ProgressPercentage, 1e-9)
	assert.Zero(t, NewAchievementProgressUpdated(1, 1, 5, 0).ProgressPercentage)
	assert.True(t, NewAchievementProgressUpdated(1, 1, 10, 10).Complete())
}

func TestInterval(t *testing.T) {
	i := NewInterval(0.9, 0.1)

	assert.Equal(t, 0.1, i.Lower())
	assert.Equal(t, 0.9, i.Upper())
	assert.True(t, i.Contains(0.5))
	assert.True(t, i.Contains(0.9))
	assert.False(t, i.Contains(1.0))
}

// envelopeOnly is an event kind with no subject and no catalog entry.
type envelopeOnly struct {
	BaseEvent
}

func (envelopeOnly) EventType() EventType { return "test.envelope_only" }
