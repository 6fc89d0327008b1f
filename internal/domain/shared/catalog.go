package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

type decoder func(data []byte) (Event, error)

type kindRegistry struct {
	mu       sync.RWMutex
	decoders map[EventType]decoder
	order    []EventType
}

var catalog = &kindRegistry{decoders: make(map[EventType]decoder)}

func init() {
	mustRegister(
		// Core
		RegisterKind[UserRegistered],
		RegisterKind[UserProfileUpdated],
		RegisterKind[ExperienceAwarded],
		RegisterKind[LevelUp],
		// Stats
		RegisterKind[CoreStatUpdated],
		RegisterKind[LifeStatUpdated],
		RegisterKind[StatMilestoneReached],
		RegisterKind[TrendDetected],
		// Quests & habits
		RegisterKind[QuestCreated],
		RegisterKind[QuestCompleted],
		RegisterKind[QuestFailed],
		RegisterKind[QuestChainUnlocked],
		RegisterKind[HabitCompleted],
		RegisterKind[HabitStreakAchieved],
		RegisterKind[HabitStreakBroken],
		// Skills
		RegisterKind[SkillPracticed],
		RegisterKind[SkillLevelUp],
		RegisterKind[SkillMasteryAchieved],
		RegisterKind[SkillRecommendationGenerated],
		// Achievements
		RegisterKind[AchievementUnlocked],
		RegisterKind[TitleUnlocked],
		RegisterKind[BadgeEarned],
		RegisterKind[AchievementProgressUpdated],
		// Journals
		RegisterKind[JournalEntryCreated],
		RegisterKind[JournalEntryUpdated],
		RegisterKind[InsightGenerated],
		RegisterKind[PatternDetected],
		RegisterKind[ReflectionPromptSuggested],
		// Integrations
		RegisterKind[IntegrationConnected],
		RegisterKind[IntegrationDisconnected],
		RegisterKind[ExternalDataReceived],
		RegisterKind[DataSyncCompleted],
		RegisterKind[DataSyncFailed],
		RegisterKind[AutoCompletionTriggered],
		// Analytics
		RegisterKind[BalanceScoreCalculated],
		RegisterKind[BalanceShiftDetected],
		RegisterKind[PredictionGenerated],
		RegisterKind[RecommendationCreated],
		RegisterKind[UserEngagementAnalyzed],
	)
}

func mustRegister(regs ...func() error) {
	for _, register := range regs {
		if err := register(); err != nil {
			panic(err)
		}
	}
}

// RegisterKind adds the event kind T to the catalog so it can be decoded by tag.
// T must be a value type whose zero value reports its EventType.
func RegisterKind[T Event]() error {
	var zero T
	kind := zero.EventType()
	if kind == "" {
		return NewDomainError("catalog", "Register", ErrInvalidInput, "event kind has an empty type tag")
	}

	catalog.mu.Lock()
	defer catalog.mu.Unlock()

	if _, exists := catalog.decoders[kind]; exists {
		return fmt.Errorf("%w: %s", ErrKindAlreadyRegistered, kind)
	}
	catalog.decoders[kind] = func(data []byte) (Event, error) {
		var ev T
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&ev); err != nil {
			return nil, err
		}
		return ev, nil
	}
	catalog.order = append(catalog.order, kind)
	return nil
}

// Kinds returns every registered event type in registration order.
func Kinds() []EventType {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	return slices.Clone(catalog.order)
}

// IsKnown reports whether kind is registered in the catalog.
func IsKnown(kind EventType) bool {
	_, ok := lookupDecoder(kind)
	return ok
}

func lookupDecoder(kind EventType) (decoder, bool) {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	d, ok := catalog.decoders[kind]
	return d, ok
}

// CatalogReport is the result of comparing the catalog with an expected set of kinds.
type CatalogReport struct {
	Registered int
	Missing    []EventType // expected but not registered
	Extra      []EventType // registered but not expected
}

// OK reports whether the catalog matches the expectation exactly.
func (r CatalogReport) OK() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0
}

// VerifyCatalog compares the registered kinds with expected.
func VerifyCatalog(expected []EventType) CatalogReport {
	registered := Kinds()
	report := CatalogReport{Registered: len(registered)}

	for _, kind := range expected {
		if !slices.Contains(registered, kind) {
			report.Missing = append(report.Missing, kind)
		}
	}
	for _, kind := range registered {
		if !slices.Contains(expected, kind) {
			report.Extra = append(report.Extra, kind)
		}
	}
	return report
}
