package shared

import (
	"encoding/json"
	"fmt"
	"time"
)

// Analytics event types.
const (
	EventBalanceScoreCalculated EventType = "analytics.balance_score_calculated"
	EventBalanceShiftDetected   EventType = "analytics.balance_shift_detected"
	EventPredictionGenerated    EventType = "analytics.prediction_generated"
	EventRecommendationCreated  EventType = "analytics.recommendation_created"
	EventUserEngagementAnalyzed EventType = "analytics.user_engagement_analyzed"
)

// Interval is a closed [lower, upper] range such as a confidence interval.
// It is a fixed-size pair in memory and a two-element array on the wire.
type Interval [2]float64

// NewInterval creates an interval, swapping the bounds if they are reversed.
func NewInterval(lower, upper float64) Interval {
	if lower > upper {
		lower, upper = upper, lower
	}
	return Interval{lower, upper}
}

// Lower returns the lower bound.
func (i Interval) Lower() float64 { return i[0] }

// Upper returns the upper bound.
func (i Interval) Upper() float64 { return i[1] }

// Contains reports whether v lies within the interval, bounds included.
func (i Interval) Contains(v float64) bool {
	return v >= i[0] && v <= i[1]
}

// UnmarshalJSON accepts exactly two numbers.
func (i *Interval) UnmarshalJSON(data []byte) error {
	var bounds []float64
	if err := json.Unmarshal(data, &bounds); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}
	if len(bounds) != 2 {
		return fmt.Errorf("%w: expected 2 bounds, got %d", ErrInvalidInterval, len(bounds))
	}
	i[0], i[1] = bounds[0], bounds[1]
	return nil
}

// BalanceScoreCalculated is emitted when the life balance score is recomputed.
type BalanceScoreCalculated struct {
	BaseEvent
	UserID               int64     `json:"user_id"`
	HealthScore          float64   `json:"health_score"`
	WealthScore          float64   `json:"wealth_score"`
	RelationshipsScore   float64   `json:"relationships_score"`
	OverallBalance       float64   `json:"overall_balance"`
	CalculationTimestamp time.Time `json:"calculation_timestamp"`
}

// NewBalanceScoreCalculated creates a BalanceScoreCalculated event.
func NewBalanceScoreCalculated(userID int64, health, wealth, relationships, overall float64, calculatedAt time.Time, opts ...EventOption) BalanceScoreCalculated {
	return BalanceScoreCalculated{
		BaseEvent:            NewBaseEvent(opts...),
		UserID:               userID,
		HealthScore:          health,
		WealthScore:          wealth,
		RelationshipsScore:   relationships,
		OverallBalance:       overall,
		CalculationTimestamp: utc(calculatedAt),
	}
}

func (BalanceScoreCalculated) EventType() EventType       { return EventBalanceScoreCalculated }
func (e BalanceScoreCalculated) SubjectID() (int64, bool) { return subject(e.UserID) }

// BalanceShiftDetected is emitted when the balance between life areas changes significantly.
type BalanceShiftDetected struct {
	BaseEvent
	UserID             int64     `json:"user_id"`
	ShiftType          string    `json:"shift_type"`
	AffectedAreas      []string  `json:"affected_areas"`
	Severity           string    `json:"severity"`
	ShiftTimestamp     time.Time `json:"shift_timestamp"`
	RecommendedActions []string  `json:"recommended_actions"`
}

// NewBalanceShiftDetected creates a BalanceShiftDetected event.
func NewBalanceShiftDetected(userID int64, shiftType string, areas []string, severity string, shiftedAt time.Time, actions []string, opts ...EventOption) BalanceShiftDetected {
	return BalanceShiftDetected{
		BaseEvent:          NewBaseEvent(opts...),
		UserID:             userID,
		ShiftType:          shiftType,
		AffectedAreas:      areas,
		Severity:           severity,
		ShiftTimestamp:     utc(shiftedAt),
		RecommendedActions: actions,
	}
}

func (BalanceShiftDetected) EventType() EventType       { return EventBalanceShiftDetected }
func (e BalanceShiftDetected) SubjectID() (int64, bool) { return subject(e.UserID) }

// PredictionGenerated is emitted when a forecast is produced for a user.
type PredictionGenerated struct {
	BaseEvent
	UserID                int64      `json:"user_id"`
	PredictionID          int64      `json:"prediction_id"`
	PredictionType        string     `json:"prediction_type"`
	ForecastData          Attributes `json:"forecast_data"`
	ConfidenceInterval    Interval   `json:"confidence_interval"`
	PredictionHorizonDays int        `json:"prediction_horizon_days"`
}

// NewPredictionGenerated creates a PredictionGenerated event.
func NewPredictionGenerated(userID, predictionID int64, predictionType string, forecast Attributes, confidence Interval, horizonDays int, opts ...EventOption) PredictionGenerated {
	return PredictionGenerated{
		BaseEvent:             NewBaseEvent(opts...),
		UserID:                userID,
		PredictionID:          predictionID,
		PredictionType:        predictionType,
		ForecastData:          forecast.normalized(),
		ConfidenceInterval:    confidence,
		PredictionHorizonDays: horizonDays,
	}
}

func (PredictionGenerated) EventType() EventType       { return EventPredictionGenerated }
func (e PredictionGenerated) SubjectID() (int64, bool) { return subject(e.UserID) }

// RecommendationCreated is emitted when an actionable recommendation is created.
type RecommendationCreated struct {
	BaseEvent
	UserID             int64     `json:"user_id"`
	RecommendationID   int64     `json:"recommendation_id"`
	RecommendationType string    `json:"recommendation_type"`
	Action             string    `json:"action"`
	Priority           string    `json:"priority"`
	ExpectedImpact     float64   `json:"expected_impact"`
	ExpiryTimestamp    time.Time `json:"expiry_timestamp"`
}

// NewRecommendationCreated creates a RecommendationCreated event.
func NewRecommendationCreated(userID, recommendationID int64, recommendationType, action, priority string, impact float64, expiresAt time.Time, opts ...EventOption) RecommendationCreated {
	return RecommendationCreated{
		BaseEvent:          NewBaseEvent(opts...),
		UserID:             userID,
		RecommendationID:   recommendationID,
		RecommendationType: recommendationType,
		Action:             action,
		Priority:           priority,
		ExpectedImpact:     impact,
		ExpiryTimestamp:    utc(expiresAt),
	}
}

func (RecommendationCreated) EventType() EventType       { return EventRecommendationCreated }
func (e RecommendationCreated) SubjectID() (int64, bool) { return subject(e.UserID) }

// UserEngagementAnalyzed is emitted after engagement analysis over a period.
// Activity patterns describe personal behaviour and require consent.
type UserEngagementAnalyzed struct {
	BaseEvent
	UserID             int64      `json:"user_id"`
	AnalysisPeriodDays int        `json:"analysis_period_days"`
	EngagementScore    float64    `json:"engagement_score"`
	ActivityPatterns   Attributes `json:"activity_patterns"`
	RiskFactors        []string   `json:"risk_factors"`
}

// NewUserEngagementAnalyzed creates a UserEngagementAnalyzed event.
func NewUserEngagementAnalyzed(userID int64, periodDays int, score float64, patterns Attributes, risks []string, opts ...EventOption) UserEngagementAnalyzed {
	return UserEngagementAnalyzed{
		BaseEvent:          NewBaseEvent(opts...),
		UserID:             userID,
		AnalysisPeriodDays: periodDays,
		EngagementScore:    score,
		ActivityPatterns:   patterns.normalized(),
		RiskFactors:        risks,
	}
}

func (UserEngagementAnalyzed) EventType() EventType       { return EventUserEngagementAnalyzed }
func (e UserEngagementAnalyzed) SubjectID() (int64, bool) { return subject(e.UserID) }
func (UserEngagementAnalyzed) PrivacySensitive() bool     { return true }
