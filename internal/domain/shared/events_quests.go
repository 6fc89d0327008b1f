package shared

import "time"

// Quest and habit event types.
const (
	EventQuestCreated       EventType = "quest.created"
	EventQuestCompleted     EventType = "quest.completed"
	EventQuestFailed        EventType = "quest.failed"
	EventQuestChainUnlocked EventType = "quest.chain_unlocked"

	EventHabitCompleted      EventType = "habit.completed"
	EventHabitStreakAchieved EventType = "habit.streak_achieved"
	EventHabitStreakBroken   EventType = "habit.streak_broken"
)

// ISODate is the layout of date-only payload fields.
const ISODate = "2006-01-02"

// ═══════════════════════════════════════════════════════════════════════════
// Quest Events
// ═══════════════════════════════════════════════════════════════════════════

// QuestCreated is emitted when a user creates a new quest.
type QuestCreated struct {
	BaseEvent
	UserID           int64  `json:"user_id"`
	QuestID          int64  `json:"quest_id"`
	QuestType        string `json:"quest_type"`
	Title            string `json:"title"`
	Difficulty       string `json:"difficulty"`
	ExperienceReward int    `json:"experience_reward"`
}

// NewQuestCreated creates a QuestCreated event.
func NewQuestCreated(userID, questID int64, questType, title, difficulty string, experienceReward int, opts ...EventOption) QuestCreated {
	return QuestCreated{
		BaseEvent:        NewBaseEvent(opts...),
		UserID:           userID,
		QuestID:          questID,
		QuestType:        questType,
		Title:            title,
		Difficulty:       difficulty,
		ExperienceReward: experienceReward,
	}
}

func (QuestCreated) EventType() EventType       { return EventQuestCreated }
func (e QuestCreated) SubjectID() (int64, bool) { return subject(e.UserID) }

// QuestCompleted is emitted when a quest is marked as completed, either by the
// user or by an integration trigger (AutoCompleted).
type QuestCompleted struct {
	BaseEvent
	UserID              int64     `json:"user_id"`
	QuestID             int64     `json:"quest_id"`
	QuestType           string    `json:"quest_type"`
	ExperienceReward    int       `json:"experience_reward"`
	CompletionTimestamp time.Time `json:"completion_timestamp"`
	AutoCompleted       bool      `json:"auto_completed"`
}

// NewQuestCompleted creates a QuestCompleted event.
func NewQuestCompleted(userID, questID int64, questType string, experienceReward int, completedAt time.Time, autoCompleted bool, opts ...EventOption) QuestCompleted {
	return QuestCompleted{
		BaseEvent:           NewBaseEvent(opts...),
		UserID:              userID,
		QuestID:             questID,
		QuestType:           questType,
		ExperienceReward:    experienceReward,
		CompletionTimestamp: utc(completedAt),
		AutoCompleted:       autoCompleted,
	}
}

func (QuestCompleted) EventType() EventType       { return EventQuestCompleted }
func (e QuestCompleted) SubjectID() (int64, bool) { return subject(e.UserID) }

// QuestFailed is emitted when a quest is marked as failed.
type QuestFailed struct {
	BaseEvent
	UserID           int64     `json:"user_id"`
	QuestID          int64     `json:"quest_id"`
	QuestType        string    `json:"quest_type"`
	FailureReason    string    `json:"failure_reason"`
	FailureTimestamp time.Time `json:"failure_timestamp"`
}

// NewQuestFailed creates a QuestFailed event.
func NewQuestFailed(userID, questID int64, questType, reason string, failedAt time.Time, opts ...EventOption) QuestFailed {
	return QuestFailed{
		BaseEvent:        NewBaseEvent(opts...),
		UserID:           userID,
		QuestID:          questID,
		QuestType:        questType,
		FailureReason:    reason,
		FailureTimestamp: utc(failedAt),
	}
}

func (QuestFailed) EventType() EventType       { return EventQuestFailed }
func (e QuestFailed) SubjectID() (int64, bool) { return subject(e.UserID) }

// QuestChainUnlocked is emitted when completing a quest unlocks follow-up quests.
type QuestChainUnlocked struct {
	BaseEvent
	UserID           int64   `json:"user_id"`
	ParentQuestID    int64   `json:"parent_quest_id"`
	UnlockedQuestIDs []int64 `json:"unlocked_quest_ids"`
	ChainName        string  `json:"chain_name"`
}

// NewQuestChainUnlocked creates a QuestChainUnlocked event.
func NewQuestChainUnlocked(userID, parentQuestID int64, unlocked []int64, chainName string, opts ...EventOption) QuestChainUnlocked {
	return QuestChainUnlocked{
		BaseEvent:        NewBaseEvent(opts...),
		UserID:           userID,
		ParentQuestID:    parentQuestID,
		UnlockedQuestIDs: unlocked,
		ChainName:        chainName,
	}
}

func (QuestChainUnlocked) EventType() EventType       { return EventQuestChainUnlocked }
func (e QuestChainUnlocked) SubjectID() (int64, bool) { return subject(e.UserID) }

// ═══════════════════════════════════════════════════════════════════════════
// Habit Events
// ═══════════════════════════════════════════════════════════════════════════

// HabitCompleted is emitted for each completed habit instance.
// CompletionDate is an ISO date (YYYY-MM-DD) in the user's calendar.
type HabitCompleted struct {
	BaseEvent
	UserID           int64  `json:"user_id"`
	HabitID          int64  `json:"habit_id"`
	CompletionDate   string `json:"completion_date"`
	StreakCount      int    `json:"streak_count"`
	ExperienceReward int    `json:"experience_reward"`
}

// NewHabitCompleted creates a HabitCompleted event for the calendar day of completedOn.
func NewHabitCompleted(userID, habitID int64, completedOn time.Time, streak, experienceReward int, opts ...EventOption) HabitCompleted {
	return HabitCompleted{
		BaseEvent:        NewBaseEvent(opts...),
		UserID:           userID,
		HabitID:          habitID,
		CompletionDate:   completedOn.Format(ISODate),
		StreakCount:      streak,
		ExperienceReward: experienceReward,
	}
}

func (HabitCompleted) EventType() EventType       { return EventHabitCompleted }
func (e HabitCompleted) SubjectID() (int64, bool) { return subject(e.UserID) }

// HabitStreakAchieved is emitted when a streak milestone is reached.
type HabitStreakAchieved struct {
	BaseEvent
	UserID          int64  `json:"user_id"`
	HabitID         int64  `json:"habit_id"`
	StreakCount     int    `json:"streak_count"`
	StreakType      string `json:"streak_type"`
	BonusExperience int    `json:"bonus_experience"`
}

// NewHabitStreakAchieved creates a HabitStreakAchieved event.
func NewHabitStreakAchieved(userID, habitID int64, streak int, streakType string, bonus int, opts ...EventOption) HabitStreakAchieved {
	return HabitStreakAchieved{
		BaseEvent:       NewBaseEvent(opts...),
		UserID:          userID,
		HabitID:         habitID,
		StreakCount:     streak,
		StreakType:      streakType,
		BonusExperience: bonus,
	}
}

func (HabitStreakAchieved) EventType() EventType       { return EventHabitStreakAchieved }
func (e HabitStreakAchieved) SubjectID() (int64, bool) { return subject(e.UserID) }

// HabitStreakBroken is emitted when a streak is interrupted.
type HabitStreakBroken struct {
	BaseEvent
	UserID         int64  `json:"user_id"`
	HabitID        int64  `json:"habit_id"`
	PreviousStreak int    `json:"previous_streak"`
	BrokenDate     string `json:"broken_date"`
}

// NewHabitStreakBroken creates a HabitStreakBroken event for the calendar day of brokenOn.
func NewHabitStreakBroken(userID, habitID int64, previousStreak int, brokenOn time.Time, opts ...EventOption) HabitStreakBroken {
	return HabitStreakBroken{
		BaseEvent:      NewBaseEvent(opts...),
		UserID:         userID,
		HabitID:        habitID,
		PreviousStreak: previousStreak,
		BrokenDate:     brokenOn.Format(ISODate),
	}
}

func (HabitStreakBroken) EventType() EventType       { return EventHabitStreakBroken }
func (e HabitStreakBroken) SubjectID() (int64, bool) { return subject(e.UserID) }
