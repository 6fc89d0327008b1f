package shared

import "time"

// Core and stats event types.
const (
	EventUserRegistered     EventType = "user.registered"
	EventUserProfileUpdated EventType = "user.profile_updated"
	EventExperienceAwarded  EventType = "progress.experience_awarded"
	EventLevelUp            EventType = "progress.level_up"

	EventCoreStatUpdated      EventType = "stats.core_stat_updated"
	EventLifeStatUpdated      EventType = "stats.life_stat_updated"
	EventStatMilestoneReached EventType = "stats.milestone_reached"
	EventTrendDetected        EventType = "stats.trend_detected"
)

// ═══════════════════════════════════════════════════════════════════════════
// Core Events
// ═══════════════════════════════════════════════════════════════════════════

// UserRegistered is emitted when a user completes registration.
type UserRegistered struct {
	BaseEvent
	UserID                int64     `json:"user_id"`
	Email                 string    `json:"email"`
	RegistrationTimestamp time.Time `json:"registration_timestamp"`
}

// NewUserRegistered creates a UserRegistered event.
func NewUserRegistered(userID int64, email string, registeredAt time.Time, opts ...EventOption) UserRegistered {
	return UserRegistered{
		BaseEvent:             NewBaseEvent(opts...),
		UserID:                userID,
		Email:                 email,
		RegistrationTimestamp: utc(registeredAt),
	}
}

func (UserRegistered) EventType() EventType       { return EventUserRegistered }
func (e UserRegistered) SubjectID() (int64, bool) { return subject(e.UserID) }

// UserProfileUpdated is emitted when profile fields change. It carries personal
// data and is therefore privacy-sensitive.
type UserProfileUpdated struct {
	BaseEvent
	UserID         int64      `json:"user_id"`
	UpdatedFields  Attributes `json:"updated_fields"`
	PreviousValues Attributes `json:"previous_values"`
}

// NewUserProfileUpdated creates a UserProfileUpdated event.
func NewUserProfileUpdated(userID int64, updated, previous Attributes, opts ...EventOption) UserProfileUpdated {
	return UserProfileUpdated{
		BaseEvent:      NewBaseEvent(opts...),
		UserID:         userID,
		UpdatedFields:  updated.normalized(),
		PreviousValues: previous.normalized(),
	}
}

func (UserProfileUpdated) EventType() EventType       { return EventUserProfileUpdated }
func (e UserProfileUpdated) SubjectID() (int64, bool) { return subject(e.UserID) }
func (UserProfileUpdated) PrivacySensitive() bool     { return true }

// ExperienceAwarded is emitted when experience points are granted for any source.
type ExperienceAwarded struct {
	BaseEvent
	UserID           int64  `json:"user_id"`
	ExperiencePoints int    `json:"experience_points"`
	SourceType       string `json:"source_type"` // e.g. "quest", "habit", "achievement"
	SourceID         int64  `json:"source_id"`
	Reason           string `json:"reason"`
}

// NewExperienceAwarded creates an ExperienceAwarded event.
func NewExperienceAwarded(userID int64, points int, sourceType string, sourceID int64, reason string, opts ...EventOption) ExperienceAwarded {
	return ExperienceAwarded{
		BaseEvent:        NewBaseEvent(opts...),
		UserID:           userID,
		ExperiencePoints: points,
		SourceType:       sourceType,
		SourceID:         sourceID,
		Reason:           reason,
	}
}

func (ExperienceAwarded) EventType() EventType       { return EventExperienceAwarded }
func (e ExperienceAwarded) SubjectID() (int64, bool) { return subject(e.UserID) }

// LevelUp is emitted when a user crosses a level threshold.
type LevelUp struct {
	BaseEvent
	UserID          int64 `json:"user_id"`
	PreviousLevel   int   `json:"previous_level"`
	NewLevel        int   `json:"new_level"`
	TotalExperience int   `json:"total_experience"`
}

// NewLevelUp creates a LevelUp event.
func NewLevelUp(userID int64, previousLevel, newLevel, totalExperience int, opts ...EventOption) LevelUp {
	return LevelUp{
		BaseEvent:       NewBaseEvent(opts...),
		UserID:          userID,
		PreviousLevel:   previousLevel,
		NewLevel:        newLevel,
		TotalExperience: totalExperience,
	}
}

func (LevelUp) EventType() EventType       { return EventLevelUp }
func (e LevelUp) SubjectID() (int64, bool) { return subject(e.UserID) }

// LevelsGained returns how many levels were crossed at once.
func (e LevelUp) LevelsGained() int {
	return e.NewLevel - e.PreviousLevel
}

// ═══════════════════════════════════════════════════════════════════════════
// Stats Events
// ═══════════════════════════════════════════════════════════════════════════

// CoreStatUpdated is emitted when a core RPG stat (strength, wisdom, ...) changes.
type CoreStatUpdated struct {
	BaseEvent
	UserID        int64  `json:"user_id"`
	StatName      string `json:"stat_name"`
	PreviousValue int    `json:"previous_value"`
	NewValue      int    `json:"new_value"`
	Source        string `json:"source"`
}

// NewCoreStatUpdated creates a CoreStatUpdated event.
func NewCoreStatUpdated(userID int64, statName string, previousValue, newValue int, source string, opts ...EventOption) CoreStatUpdated {
	return CoreStatUpdated{
		BaseEvent:     NewBaseEvent(opts...),
		UserID:        userID,
		StatName:      statName,
		PreviousValue: previousValue,
		NewValue:      newValue,
		Source:        source,
	}
}

func (CoreStatUpdated) EventType() EventType       { return EventCoreStatUpdated }
func (e CoreStatUpdated) SubjectID() (int64, bool) { return subject(e.UserID) }

// Delta returns the signed change of the stat.
func (e CoreStatUpdated) Delta() int {
	return e.NewValue - e.PreviousValue
}

// LifeStatUpdated is emitted when a tracked life metric changes.
type LifeStatUpdated struct {
	BaseEvent
	UserID        int64   `json:"user_id"`
	Category      string  `json:"category"`
	Subcategory   string  `json:"subcategory"`
	PreviousValue float64 `json:"previous_value"`
	NewValue      float64 `json:"new_value"`
	Unit          string  `json:"unit"`
	Source        string  `json:"source"`
}

// NewLifeStatUpdated creates a LifeStatUpdated event.
func NewLifeStatUpdated(userID int64, category, subcategory string, previousValue, newValue float64, unit, source string, opts ...EventOption) LifeStatUpdated {
	return LifeStatUpdated{
		BaseEvent:     NewBaseEvent(opts...),
		UserID:        userID,
		Category:      category,
		Subcategory:   subcategory,
		PreviousValue: previousValue,
		NewValue:      newValue,
		Unit:          unit,
		Source:        source,
	}
}

func (LifeStatUpdated) EventType() EventType       { return EventLifeStatUpdated }
func (e LifeStatUpdated) SubjectID() (int64, bool) { return subject(e.UserID) }

// StatMilestoneReached is emitted when a stat crosses a significant value.
type StatMilestoneReached struct {
	BaseEvent
	UserID         int64  `json:"user_id"`
	StatType       string `json:"stat_type"`
	StatName       string `json:"stat_name"`
	MilestoneValue int    `json:"milestone_value"`
	MilestoneType  string `json:"milestone_type"`
}

// NewStatMilestoneReached creates a StatMilestoneReached event.
func NewStatMilestoneReached(userID int64, statType, statName string, milestoneValue int, milestoneType string, opts ...EventOption) StatMilestoneReached {
	return StatMilestoneReached{
		BaseEvent:      NewBaseEvent(opts...),
		UserID:         userID,
		StatType:       statType,
		StatName:       statName,
		MilestoneValue: milestoneValue,
		MilestoneType:  milestoneType,
	}
}

func (StatMilestoneReached) EventType() EventType       { return EventStatMilestoneReached }
func (e StatMilestoneReached) SubjectID() (int64, bool) { return subject(e.UserID) }

// TrendDetected is emitted when statistical analysis identifies a trend in stat data.
type TrendDetected struct {
	BaseEvent
	UserID          int64   `json:"user_id"`
	StatName        string  `json:"stat_name"`
	TrendType       string  `json:"trend_type"`
	ConfidenceScore float64 `json:"confidence_score"`
	DurationDays    int     `json:"duration_days"`
}

// NewTrendDetected creates a TrendDetected event.
func NewTrendDetected(userID int64, statName, trendType string, confidence float64, durationDays int, opts ...EventOption) TrendDetected {
	return TrendDetected{
		BaseEvent:       NewBaseEvent(opts...),
		UserID:          userID,
		StatName:        statName,
		TrendType:       trendType,
		ConfidenceScore: confidence,
		DurationDays:    durationDays,
	}
}

func (TrendDetected) EventType() EventType       { return EventTrendDetected }
func (e TrendDetected) SubjectID() (int64, bool) { return subject(e.UserID) }
