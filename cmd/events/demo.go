package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lifedashboard/life-dashboard/config"
	"github.com/lifedashboard/life-dashboard/internal/domain/shared"
	"github.com/lifedashboard/life-dashboard/internal/infrastructure/messaging"
)

const (
	demoUserID         = 123
	experiencePerLevel = 100
)

// ══════════════════════════════════════════════════════════════════════════════
// DEMO
// ══════════════════════════════════════════════════════════════════════════════

// runDemo publishes two completed quests and a journal entry and prints the
// resulting chain of events.
func runDemo(ctx context.Context, cfg *config.Config, log *slog.Logger, w io.Writer) error {
	a, err := bootstrap(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.grantConsent(ctx, demoUserID, shared.EventJournalEntryCreated.Category()); err != nil {
		return fmt.Errorf("failed to grant demo consent: %w", err)
	}

	p := newProgress(log)
	p.handlers().Apply(a.dispatcher)
	printHandlers(w, a.dispatcher)

	ctx = messaging.WithDispatcher(ctx, a.publisher)
	for _, event := range demoEvents(time.Now().UTC()) {
		messaging.PublishEvent(ctx, event)
	}

	printEventLog(w, a.dispatcher.EventLog())
	return a.writeMetrics(ctx, w)
}

func demoEvents(now time.Time) []shared.Event {
	mood := 7
	return []shared.Event{
		shared.NewQuestCompleted(demoUserID, 456, "daily", 25, now, false),
		shared.NewQuestCompleted(demoUserID, 457, "weekly", 90, now, false,
			shared.WithVersion("2.0.0")),
		shared.NewJournalEntryCreated(demoUserID, 1, "reflection", "First week", 180,
			&mood, []string{"habits", "quests"}),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// progress tracks experience per user and turns quest completions into
// experience, achievements and level-ups.
type progress struct {
	log *slog.Logger

	mu           sync.Mutex
	experience   map[int64]int
	dailyUnlocks map[int64]bool
}

func newProgress(log *slog.Logger) *progress {
	return &progress{
		log:          log,
		experience:   make(map[int64]int),
		dailyUnlocks: make(map[int64]bool),
	}
}

func (p *progress) handlers() *messaging.Registrar {
	var r messaging.Registrar
	r.Handle(shared.EventQuestCompleted, p.awardExperience, messaging.Named("awardExperience")).
		Handle(shared.EventQuestCompleted, p.checkAchievements, messaging.Named("checkAchievements")).
		Handle(shared.EventQuestCompleted, p.questAnalytics, messaging.Named("questAnalytics"),
			messaging.MinVersion("2.0.0")).
		Handle(shared.EventExperienceAwarded, p.applyExperience, messaging.Named("applyExperience")).
		Handle(shared.EventAchievementUnlocked, p.celebrate, messaging.Named("celebrate")).
		Handle(shared.EventLevelUp, p.announceLevel, messaging.Named("announceLevel")).
		Handle(shared.EventJournalEntryCreated, p.indexJournal, messaging.Named("indexJournal"),
			messaging.MaxVersion("1.99.99"))
	return &r
}

func (p *progress) awardExperience(ctx context.Context, event shared.Event) error {
	quest, ok := event.(shared.QuestCompleted)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	messaging.PublishEvent(ctx, shared.NewExperienceAwarded(
		quest.UserID,
		quest.ExperienceReward,
		"quest",
		quest.QuestID,
		fmt.Sprintf("completed %s quest", quest.QuestType),
	))
	return nil
}

func (p *progress) checkAchievements(ctx context.Context, event shared.Event) error {
	quest, ok := event.(shared.QuestCompleted)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	if quest.QuestType != "daily" {
		return nil
	}

	p.mu.Lock()
	first := !p.dailyUnlocks[quest.UserID]
	p.dailyUnlocks[quest.UserID] = true
	p.mu.Unlock()

	if first {
		messaging.PublishEvent(ctx, shared.NewAchievementUnlocked(
			quest.UserID, 1, "Daily Warrior", "bronze", 50, quest.CompletionTimestamp,
		))
	}
	return nil
}

func (p *progress) questAnalytics(_ context.Context, event shared.Event) error {
	quest, ok := event.(shared.QuestCompleted)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	p.log.Info("quest analytics recorded",
		"event_id", quest.EventID,
		"quest_type", quest.QuestType,
		"auto_completed", quest.AutoCompleted,
	)
	return nil
}

func (p *progress) applyExperience(ctx context.Context, event shared.Event) error {
	award, ok := event.(shared.ExperienceAwarded)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	p.mu.Lock()
	before := p.experience[award.UserID]
	after := before + award.ExperiencePoints
	p.experience[award.UserID] = after
	p.mu.Unlock()

	if prev, next := levelFor(before), levelFor(after); next > prev {
		messaging.PublishEvent(ctx, shared.NewLevelUp(award.UserID, prev, next, after))
	}
	return nil
}

func (p *progress) celebrate(ctx context.Context, event shared.Event) error {
	unlocked, ok := event.(shared.AchievementUnlocked)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	messaging.PublishEvent(ctx, shared.NewExperienceAwarded(
		unlocked.UserID,
		unlocked.ExperienceReward,
		"achievement",
		unlocked.AchievementID,
		"unlocked "+unlocked.AchievementName,
	))
	return nil
}

func (p *progress) announceLevel(_ context.Context, event shared.Event) error {
	up, ok := event.(shared.LevelUp)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	p.log.Info("level up",
		"user_id", up.UserID,
		"level", up.NewLevel,
		"total_experience", up.TotalExperience,
	)
	return nil
}

func (p *progress) indexJournal(_ context.Context, event shared.Event) error {
	entry, ok := event.(shared.JournalEntryCreated)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	p.log.Debug("journal entry indexed",
		"event_id", entry.EventID,
		"word_count", entry.WordCount,
	)
	return nil
}

// Experience returns the running total for userID.
func (p *progress) Experience(userID int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.experience[userID]
}

func levelFor(experience int) int {
	return experience/experiencePerLevel + 1
}

// ══════════════════════════════════════════════════════════════════════════════
// OUTPUT
// ══════════════════════════════════════════════════════════════════════════════

func printHandlers(w io.Writer, d *messaging.Dispatcher) {
	fmt.Fprintln(w, "Registered handlers:")
	for _, eventType := range d.RegisteredTypes() {
		fmt.Fprintf(w, "  %s:\n", eventType)
		for _, reg := range d.Handlers(eventType) {
			fmt.Fprintf(w, "    - %s (%s)\n", reg.Name, versionWindow(reg))
		}
	}
}

func versionWindow(reg messaging.HandlerRegistration) string {
	if reg.MaxVersion == "" {
		return "v" + reg.MinVersion + "+"
	}
	return "v" + reg.MinVersion + " to v" + reg.MaxVersion
}

func printEventLog(w io.Writer, events []shared.Event) {
	fmt.Fprintf(w, "\n%d events were published:\n", len(events))
	for i, event := range events {
		env := event.Envelope()
		fmt.Fprintf(w, "  %d. %s v%s (id %s)\n", i+1, event.EventType(), env.Version, shortID(env.EventID))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
