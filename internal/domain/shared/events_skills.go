package shared

import "time"

// Skill and achievement event types.
const (
	EventSkillPracticed               EventType = "skill.practiced"
	EventSkillLevelUp                 EventType = "skill.level_up"
	EventSkillMasteryAchieved         EventType = "skill.mastery_achieved"
	EventSkillRecommendationGenerated EventType = "skill.recommendation_generated"

	EventAchievementUnlocked        EventType = "achievement.unlocked"
	EventTitleUnlocked              EventType = "achievement.title_unlocked"
	EventBadgeEarned                EventType = "achievement.badge_earned"
	EventAchievementProgressUpdated EventType = "achievement.progress_updated"
)

// ═══════════════════════════════════════════════════════════════════════════
// Skill Events
// ═══════════════════════════════════════════════════════════════════════════

// SkillPracticed is emitted when a user logs practice time. PracticeDuration is in minutes.
type SkillPracticed struct {
	BaseEvent
	UserID            int64     `json:"user_id"`
	SkillID           int64     `json:"skill_id"`
	PracticeDuration  int       `json:"practice_duration"`
	ExperienceGained  int       `json:"experience_gained"`
	PracticeTimestamp time.Time `json:"practice_timestamp"`
}

// NewSkillPracticed creates a SkillPracticed event.
func NewSkillPracticed(userID, skillID int64, minutes, experienceGained int, practicedAt time.Time, opts ...EventOption) SkillPracticed {
	return SkillPracticed{
		BaseEvent:         NewBaseEvent(opts...),
		UserID:            userID,
		SkillID:           skillID,
		PracticeDuration:  minutes,
		ExperienceGained:  experienceGained,
		PracticeTimestamp: utc(practicedAt),
	}
}

func (SkillPracticed) EventType() EventType       { return EventSkillPracticed }
func (e SkillPracticed) SubjectID() (int64, bool) { return subject(e.UserID) }

// SkillLevelUp is emitted when a skill reaches a new level.
type SkillLevelUp struct {
	BaseEvent
	UserID          int64  `json:"user_id"`
	SkillID         int64  `json:"skill_id"`
	PreviousLevel   int    `json:"previous_level"`
	NewLevel        int    `json:"new_level"`
	TotalExperience int    `json:"total_experience"`
	Category        string `json:"category"`
}

// NewSkillLevelUp creates a SkillLevelUp event.
func NewSkillLevelUp(userID, skillID int64, previousLevel, newLevel, totalExperience int, category string, opts ...EventOption) SkillLevelUp {
	return SkillLevelUp{
		BaseEvent:       NewBaseEvent(opts...),
		UserID:          userID,
		SkillID:         skillID,
		PreviousLevel:   previousLevel,
		NewLevel:        newLevel,
		TotalExperience: totalExperience,
		Category:        category,
	}
}

func (SkillLevelUp) EventType() EventType       { return EventSkillLevelUp }
func (e SkillLevelUp) SubjectID() (int64, bool) { return subject(e.UserID) }

// SkillMasteryAchieved is emitted when a skill reaches the mastery threshold.
type SkillMasteryAchieved struct {
	BaseEvent
	UserID            int64     `json:"user_id"`
	SkillID           int64     `json:"skill_id"`
	MasteryLevel      string    `json:"mastery_level"`
	TotalPracticeTime int       `json:"total_practice_time"`
	MasteryTimestamp  time.Time `json:"mastery_timestamp"`
}

// NewSkillMasteryAchieved creates a SkillMasteryAchieved event.
func NewSkillMasteryAchieved(userID, skillID int64, masteryLevel string, totalPracticeTime int, masteredAt time.Time, opts ...EventOption) SkillMasteryAchieved {
	return SkillMasteryAchieved{
		BaseEvent:         NewBaseEvent(opts...),
		UserID:            userID,
		SkillID:           skillID,
		MasteryLevel:      masteryLevel,
		TotalPracticeTime: totalPracticeTime,
		MasteryTimestamp:  utc(masteredAt),
	}
}

func (SkillMasteryAchieved) EventType() EventType       { return EventSkillMasteryAchieved }
func (e SkillMasteryAchieved) SubjectID() (int64, bool) { return subject(e.UserID) }

// SkillRecommendationGenerated is emitted when the recommender suggests skills.
type SkillRecommendationGenerated struct {
	BaseEvent
	UserID               int64   `json:"user_id"`
	RecommendedSkillIDs  []int64 `json:"recommended_skill_ids"`
	RecommendationReason string  `json:"recommendation_reason"`
	ConfidenceScore      float64 `json:"confidence_score"`
}

// NewSkillRecommendationGenerated creates a SkillRecommendationGenerated event.
func NewSkillRecommendationGenerated(userID int64, skillIDs []int64, reason string, confidence float64, opts ...EventOption) SkillRecommendationGenerated {
	return SkillRecommendationGenerated{
		BaseEvent:            NewBaseEvent(opts...),
		UserID:               userID,
		RecommendedSkillIDs:  skillIDs,
		RecommendationReason: reason,
		ConfidenceScore:      confidence,
	}
}

func (SkillRecommendationGenerated) EventType() EventType       { return EventSkillRecommendationGenerated }
func (e SkillRecommendationGenerated) SubjectID() (int64, bool) { return subject(e.UserID) }

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementUnlocked is emitted when a user unlocks an achievement.
type AchievementUnlocked struct {
	BaseEvent
	UserID           int64     `json:"user_id"`
	AchievementID    int64     `json:"achievement_id"`
	AchievementName  string    `json:"achievement_name"`
	Tier             string    `json:"tier"` // bronze, silver, gold, platinum
	ExperienceReward int       `json:"experience_reward"`
	UnlockTimestamp  time.Time `json:"unlock_timestamp"`
}

// NewAchievementUnlocked creates an AchievementUnlocked event.
func NewAchievementUnlocked(userID, achievementID int64, name, tier string, experienceReward int, unlockedAt time.Time, opts ...EventOption) AchievementUnlocked {
	return AchievementUnlocked{
		BaseEvent:        NewBaseEvent(opts...),
		UserID:           userID,
		AchievementID:    achievementID,
		AchievementName:  name,
		Tier:             tier,
		ExperienceReward: experienceReward,
		UnlockTimestamp:  utc(unlockedAt),
	}
}

func (AchievementUnlocked) EventType() EventType       { return EventAchievementUnlocked }
func (e AchievementUnlocked) SubjectID() (int64, bool) { return subject(e.UserID) }

// TitleUnlocked is emitted when a user earns a new title.
type TitleUnlocked struct {
	BaseEvent
	UserID           int64      `json:"user_id"`
	TitleID          int64      `json:"title_id"`
	TitleName        string     `json:"title_name"`
	UnlockConditions Attributes `json:"unlock_conditions"`
	UnlockTimestamp  time.Time  `json:"unlock_timestamp"`
}

// NewTitleUnlocked creates a TitleUnlocked event.
func NewTitleUnlocked(userID, titleID int64, name string, conditions Attributes, unlockedAt time.Time, opts ...EventOption) TitleUnlocked {
	return TitleUnlocked{
		BaseEvent:        NewBaseEvent(opts...),
		UserID:           userID,
		TitleID:          titleID,
		TitleName:        name,
		UnlockConditions: conditions.normalized(),
		UnlockTimestamp:  utc(unlockedAt),
	}
}

func (TitleUnlocked) EventType() EventType       { return EventTitleUnlocked }
func (e TitleUnlocked) SubjectID() (int64, bool) { return subject(e.UserID) }

// BadgeEarned is emitted when a user earns a badge.
type BadgeEarned struct {
	BaseEvent
	UserID          int64     `json:"user_id"`
	BadgeID         int64     `json:"badge_id"`
	BadgeName       string    `json:"badge_name"`
	BadgeCategory   string    `json:"badge_category"`
	EarnedTimestamp time.Time `json:"earned_timestamp"`
}

// NewBadgeEarned creates a BadgeEarned event.
func NewBadgeEarned(userID, badgeID int64, name, category string, earnedAt time.Time, opts ...EventOption) BadgeEarned {
	return BadgeEarned{
		BaseEvent:       NewBaseEvent(opts...),
		UserID:          userID,
		BadgeID:         badgeID,
		BadgeName:       name,
		BadgeCategory:   category,
		EarnedTimestamp: utc(earnedAt),
	}
}

func (BadgeEarned) EventType() EventType       { return EventBadgeEarned }
func (e BadgeEarned) SubjectID() (int64, bool) { return subject(e.UserID) }

// AchievementProgressUpdated is emitted when progress toward an achievement changes.
type AchievementProgressUpdated struct {
	BaseEvent
	UserID             int64   `json:"user_id"`
	AchievementID      int64   `json:"achievement_id"`
	CurrentProgress    int     `json:"current_progress"`
	RequiredProgress   int     `json:"required_progress"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// NewAchievementProgressUpdated creates an AchievementProgressUpdated event.
// The percentage is derived from current/required and capped at 100.
func NewAchievementProgressUpdated(userID, achievementID int64, current, required int, opts ...EventOption) AchievementProgressUpdated {
	pct := 0.0
	if required > 0 {
		pct = float64(current) / float64(required) * 100
		if pct > 100 {
			pct = 100
		}
	}
	return AchievementProgressUpdated{
		BaseEvent:          NewBaseEvent(opts...),
		UserID:             userID,
		AchievementID:      achievementID,
		CurrentProgress:    current,
		RequiredProgress:   required,
		ProgressPercentage: pct,
	}
}

func (AchievementProgressUpdated) EventType() EventType       { return EventAchievementProgressUpdated }
func (e AchievementProgressUpdated) SubjectID() (int64, bool) { return subject(e.UserID) }

// Complete reports whether the required progress has been reached.
func (e AchievementProgressUpdated) Complete() bool {
	return e.RequiredProgress > 0 && e.CurrentProgress >= e.RequiredProgress
}
