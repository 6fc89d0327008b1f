package shared

import "time"

// Journal event types. Journal content is personal, so most kinds here are
// privacy-sensitive.
const (
	EventJournalEntryCreated       EventType = "journal.entry_created"
	EventJournalEntryUpdated       EventType = "journal.entry_updated"
	EventInsightGenerated          EventType = "journal.insight_generated"
	EventPatternDetected           EventType = "journal.pattern_detected"
	EventReflectionPromptSuggested EventType = "journal.reflection_prompt_suggested"
)

// JournalEntryCreated is emitted when a new journal entry is written.
type JournalEntryCreated struct {
	BaseEvent
	UserID     int64    `json:"user_id"`
	EntryID    int64    `json:"entry_id"`
	EntryType  string   `json:"entry_type"`
	Title      string   `json:"title"`
	WordCount  int      `json:"word_count"`
	MoodRating *int     `json:"mood_rating"`
	Tags       []string `json:"tags"`
}

// NewJournalEntryCreated creates a JournalEntryCreated event. A nil mood means
// the user did not rate the entry.
func NewJournalEntryCreated(userID, entryID int64, entryType, title string, wordCount int, mood *int, tags []string, opts ...EventOption) JournalEntryCreated {
	return JournalEntryCreated{
		BaseEvent:  NewBaseEvent(opts...),
		UserID:     userID,
		EntryID:    entryID,
		EntryType:  entryType,
		Title:      title,
		WordCount:  wordCount,
		MoodRating: mood,
		Tags:       tags,
	}
}

func (JournalEntryCreated) EventType() EventType       { return EventJournalEntryCreated }
func (e JournalEntryCreated) SubjectID() (int64, bool) { return subject(e.UserID) }
func (JournalEntryCreated) PrivacySensitive() bool     { return true }

// JournalEntryUpdated is emitted when a journal entry is modified.
type JournalEntryUpdated struct {
	BaseEvent
	UserID          int64      `json:"user_id"`
	EntryID         int64      `json:"entry_id"`
	UpdatedFields   Attributes `json:"updated_fields"`
	UpdateTimestamp time.Time  `json:"update_timestamp"`
}

// NewJournalEntryUpdated creates a JournalEntryUpdated event.
func NewJournalEntryUpdated(userID, entryID int64, updated Attributes, updatedAt time.Time, opts ...EventOption) JournalEntryUpdated {
	return JournalEntryUpdated{
		BaseEvent:       NewBaseEvent(opts...),
		UserID:          userID,
		EntryID:         entryID,
		UpdatedFields:   updated.normalized(),
		UpdateTimestamp: utc(updatedAt),
	}
}

func (JournalEntryUpdated) EventType() EventType       { return EventJournalEntryUpdated }
func (e JournalEntryUpdated) SubjectID() (int64, bool) { return subject(e.UserID) }
func (JournalEntryUpdated) PrivacySensitive() bool     { return true }

// InsightGenerated is emitted when analysis of journal data produces an insight.
type InsightGenerated struct {
	BaseEvent
	UserID          int64   `json:"user_id"`
	InsightID       int64   `json:"insight_id"`
	InsightType     string  `json:"insight_type"`
	Content         string  `json:"content"`
	ConfidenceScore float64 `json:"confidence_score"`
	SourceEntries   []int64 `json:"source_entries"`
}

// NewInsightGenerated creates an InsightGenerated event.
func NewInsightGenerated(userID, insightID int64, insightType, content string, confidence float64, sourceEntries []int64, opts ...EventOption) InsightGenerated {
	return InsightGenerated{
		BaseEvent:       NewBaseEvent(opts...),
		UserID:          userID,
		InsightID:       insightID,
		InsightType:     insightType,
		Content:         content,
		ConfidenceScore: confidence,
		SourceEntries:   sourceEntries,
	}
}

func (InsightGenerated) EventType() EventType       { return EventInsightGenerated }
func (e InsightGenerated) SubjectID() (int64, bool) { return subject(e.UserID) }
func (InsightGenerated) PrivacySensitive() bool     { return true }

// PatternDetected is emitted when a behavioral pattern is identified.
type PatternDetected struct {
	BaseEvent
	UserID             int64     `json:"user_id"`
	PatternID          int64     `json:"pattern_id"`
	PatternType        string    `json:"pattern_type"`
	Description        string    `json:"description"`
	ConfidenceScore    float64   `json:"confidence_score"`
	DetectionTimestamp time.Time `json:"detection_timestamp"`
}

// NewPatternDetected creates a PatternDetected event.
func NewPatternDetected(userID, patternID int64, patternType, description string, confidence float64, detectedAt time.Time, opts ...EventOption) PatternDetected {
	return PatternDetected{
		BaseEvent:          NewBaseEvent(opts...),
		UserID:             userID,
		PatternID:          patternID,
		PatternType:        patternType,
		Description:        description,
		ConfidenceScore:    confidence,
		DetectionTimestamp: utc(detectedAt),
	}
}

func (PatternDetected) EventType() EventType       { return EventPatternDetected }
func (e PatternDetected) SubjectID() (int64, bool) { return subject(e.UserID) }
func (PatternDetected) PrivacySensitive() bool     { return true }

// ReflectionPromptSuggested is emitted when the system proposes a reflection topic.
type ReflectionPromptSuggested struct {
	BaseEvent
	UserID         int64  `json:"user_id"`
	PromptID       int64  `json:"prompt_id"`
	PromptText     string `json:"prompt_text"`
	PromptCategory string `json:"prompt_category"`
	TriggerEvent   string `json:"trigger_event"`
}

// NewReflectionPromptSuggested creates a ReflectionPromptSuggested event.
func NewReflectionPromptSuggested(userID, promptID int64, text, category, trigger string, opts ...EventOption) ReflectionPromptSuggested {
	return ReflectionPromptSuggested{
		BaseEvent:      NewBaseEvent(opts...),
		UserID:         userID,
		PromptID:       promptID,
		PromptText:     text,
		PromptCategory: category,
		TriggerEvent:   trigger,
	}
}

func (ReflectionPromptSuggested) EventType() EventType       { return EventReflectionPromptSuggested }
func (e ReflectionPromptSuggested) SubjectID() (int64, bool) { return subject(e.UserID) }
