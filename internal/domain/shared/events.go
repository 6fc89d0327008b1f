// Package shared contains the domain event envelope, the canonical event catalog
// and the structured/text codec shared by every bounded context of Life Dashboard.
package shared

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultEventVersion is the schema version assigned to events that do not set one.
const DefaultEventVersion = "1.0.0"

// EventType is the static type tag of a concrete event kind, e.g. "quest.completed".
type EventType string

// String implements fmt.Stringer.
func (t EventType) String() string {
	return string(t)
}

// Category returns the bounded context prefix of the type ("quest" for "quest.completed").
func (t EventType) Category() string {
	if i := strings.IndexByte(string(t), '.'); i >= 0 {
		return string(t)[:i]
	}
	return string(t)
}

// Event is implemented by every concrete event kind.
// Kinds form a closed set keyed on EventType; dispatch matches the tag exactly.
type Event interface {
	// EventType returns the static type tag of the kind.
	EventType() EventType

	// Envelope returns a copy of the identity, timestamp and schema version.
	Envelope() BaseEvent
}

// PrivacySensitive is implemented by kinds whose processing requires subject consent.
// The answer is a property of the type, never of an instance.
type PrivacySensitive interface {
	PrivacySensitive() bool
}

// Subject is implemented by kinds that carry the identifier of the user they describe.
type Subject interface {
	// SubjectID returns the user identifier and whether one is set.
	SubjectID() (int64, bool)
}

// IsPrivacySensitive reports whether the concrete kind of e is marked privacy-sensitive.
func IsPrivacySensitive(e Event) bool {
	ps, ok := e.(PrivacySensitive)
	return ok && ps.PrivacySensitive()
}

// SubjectOf extracts the subject identifier from e, if the kind carries one.
func SubjectOf(e Event) (int64, bool) {
	s, ok := e.(Subject)
	if !ok {
		return 0, false
	}
	return s.SubjectID()
}

// BaseEvent is the envelope embedded by value in every event kind.
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// EventOption overrides an envelope default at construction time.
type EventOption func(*BaseEvent)

// WithEventID sets an explicit event identifier. Empty keeps the generated one.
func WithEventID(id string) EventOption {
	return func(e *BaseEvent) {
		if id != "" {
			e.EventID = id
		}
	}
}

// WithTimestamp sets an explicit construction time. Zero keeps the current time.
func WithTimestamp(ts time.Time) EventOption {
	return func(e *BaseEvent) {
		if !ts.IsZero() {
			e.Timestamp = ts.UTC()
		}
	}
}

// WithVersion sets the payload schema version. Empty keeps DefaultEventVersion.
func WithVersion(v string) EventOption {
	return func(e *BaseEvent) {
		if v != "" {
			e.Version = v
		}
	}
}

// NewBaseEvent creates an envelope with a fresh UUID, the current UTC time and version 1.0.0.
func NewBaseEvent(opts ...EventOption) BaseEvent {
	e := BaseEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Version:   DefaultEventVersion,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Envelope implements Event.
func (e BaseEvent) Envelope() BaseEvent {
	return e
}

// ID returns the event identifier.
func (e BaseEvent) ID() string {
	return e.EventID
}

// OccurredAt returns when the event was constructed.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// SchemaVersion returns the payload schema version.
func (e BaseEvent) SchemaVersion() string {
	return e.Version
}

// Attributes is a free-form payload dictionary. Values are held in their
// JSON-decoded shape (string, float64, bool, nil, []any, map[string]any), so
// every number is a float64. Constructors normalize their input to that shape;
// a struct literal holding other types will not compare equal after decoding.
type Attributes map[string]any

// UnmarshalJSON decodes numbers as float64 whatever the outer decoder's settings.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*a = m
	return nil
}

// normalized returns a copy of a in its JSON-decoded shape. Values that cannot
// be encoded are left alone; ToText reports them.
func (a Attributes) normalized() Attributes {
	if a == nil {
		return nil
	}
	data, err := json.Marshal(map[string]any(a))
	if err != nil {
		return a
	}
	var out Attributes
	if err := out.UnmarshalJSON(data); err != nil {
		return a
	}
	return out
}

// utc normalizes payload timestamps so they compare equal after a text round trip.
func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func subject(userID int64) (int64, bool) {
	return userID, userID != 0
}
