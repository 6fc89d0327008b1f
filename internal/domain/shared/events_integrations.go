package shared

import "time"

// Integration event types.
const (
	EventIntegrationConnected    EventType = "integration.connected"
	EventIntegrationDisconnected EventType = "integration.disconnected"
	EventExternalDataReceived    EventType = "integration.data_received"
	EventDataSyncCompleted       EventType = "integration.sync_completed"
	EventDataSyncFailed          EventType = "integration.sync_failed"
	EventAutoCompletionTriggered EventType = "integration.auto_completion_triggered"
)

// IntegrationConnected is emitted when an external service is connected.
type IntegrationConnected struct {
	BaseEvent
	UserID              int64     `json:"user_id"`
	IntegrationID       int64     `json:"integration_id"`
	ServiceName         string    `json:"service_name"`
	IntegrationType     string    `json:"integration_type"`
	ConnectionTimestamp time.Time `json:"connection_timestamp"`
}

// NewIntegrationConnected creates an IntegrationConnected event.
func NewIntegrationConnected(userID, integrationID int64, service, integrationType string, connectedAt time.Time, opts ...EventOption) IntegrationConnected {
	return IntegrationConnected{
		BaseEvent:           NewBaseEvent(opts...),
		UserID:              userID,
		IntegrationID:       integrationID,
		ServiceName:         service,
		IntegrationType:     integrationType,
		ConnectionTimestamp: utc(connectedAt),
	}
}

func (IntegrationConnected) EventType() EventType       { return EventIntegrationConnected }
func (e IntegrationConnected) SubjectID() (int64, bool) { return subject(e.UserID) }

// IntegrationDisconnected is emitted when an external service is disconnected.
type IntegrationDisconnected struct {
	BaseEvent
	UserID                 int64     `json:"user_id"`
	IntegrationID          int64     `json:"integration_id"`
	ServiceName            string    `json:"service_name"`
	DisconnectionReason    string    `json:"disconnection_reason"`
	DisconnectionTimestamp time.Time `json:"disconnection_timestamp"`
}

// NewIntegrationDisconnected creates an IntegrationDisconnected event.
func NewIntegrationDisconnected(userID, integrationID int64, service, reason string, disconnectedAt time.Time, opts ...EventOption) IntegrationDisconnected {
	return IntegrationDisconnected{
		BaseEvent:              NewBaseEvent(opts...),
		UserID:                 userID,
		IntegrationID:          integrationID,
		ServiceName:            service,
		DisconnectionReason:    reason,
		DisconnectionTimestamp: utc(disconnectedAt),
	}
}

func (IntegrationDisconnected) EventType() EventType       { return EventIntegrationDisconnected }
func (e IntegrationDisconnected) SubjectID() (int64, bool) { return subject(e.UserID) }

// ExternalDataReceived is emitted when data arrives from an external service.
// Third-party health and finance data is privacy-sensitive.
type ExternalDataReceived struct {
	BaseEvent
	UserID           int64     `json:"user_id"`
	IntegrationID    int64     `json:"integration_id"`
	DataType         string    `json:"data_type"`
	DataPointsCount  int       `json:"data_points_count"`
	SyncTimestamp    time.Time `json:"sync_timestamp"`
	DataQualityScore float64   `json:"data_quality_score"`
}

// NewExternalDataReceived creates an ExternalDataReceived event.
func NewExternalDataReceived(userID, integrationID int64, dataType string, points int, syncedAt time.Time, quality float64, opts ...EventOption) ExternalDataReceived {
	return ExternalDataReceived{
		BaseEvent:        NewBaseEvent(opts...),
		UserID:           userID,
		IntegrationID:    integrationID,
		DataType:         dataType,
		DataPointsCount:  points,
		SyncTimestamp:    utc(syncedAt),
		DataQualityScore: quality,
	}
}

func (ExternalDataReceived) EventType() EventType       { return EventExternalDataReceived }
func (e ExternalDataReceived) SubjectID() (int64, bool) { return subject(e.UserID) }
func (ExternalDataReceived) PrivacySensitive() bool     { return true }

// DataSyncCompleted is emitted when a synchronization job finishes.
type DataSyncCompleted struct {
	BaseEvent
	UserID           int64  `json:"user_id"`
	IntegrationID    int64  `json:"integration_id"`
	SyncJobID        string `json:"sync_job_id"`
	RecordsProcessed int    `json:"records_processed"`
	SyncDurationMs   int64  `json:"sync_duration_ms"`
	Success          bool   `json:"success"`
}

// NewDataSyncCompleted creates a DataSyncCompleted event.
func NewDataSyncCompleted(userID, integrationID int64, jobID string, records int, duration time.Duration, success bool, opts ...EventOption) DataSyncCompleted {
	return DataSyncCompleted{
		BaseEvent:        NewBaseEvent(opts...),
		UserID:           userID,
		IntegrationID:    integrationID,
		SyncJobID:        jobID,
		RecordsProcessed: records,
		SyncDurationMs:   duration.Milliseconds(),
		Success:          success,
	}
}

func (DataSyncCompleted) EventType() EventType       { return EventDataSyncCompleted }
func (e DataSyncCompleted) SubjectID() (int64, bool) { return subject(e.UserID) }

// Duration returns the sync duration.
func (e DataSyncCompleted) Duration() time.Duration {
	return time.Duration(e.SyncDurationMs) * time.Millisecond
}

// DataSyncFailed is emitted when a synchronization job fails.
type DataSyncFailed struct {
	BaseEvent
	UserID        int64  `json:"user_id"`
	IntegrationID int64  `json:"integration_id"`
	SyncJobID     string `json:"sync_job_id"`
	ErrorCode     string `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
	RetryCount    int    `json:"retry_count"`
}

// NewDataSyncFailed creates a DataSyncFailed event.
func NewDataSyncFailed(userID, integrationID int64, jobID, code, message string, retries int, opts ...EventOption) DataSyncFailed {
	return DataSyncFailed{
		BaseEvent:     NewBaseEvent(opts...),
		UserID:        userID,
		IntegrationID: integrationID,
		SyncJobID:     jobID,
		ErrorCode:     code,
		ErrorMessage:  message,
		RetryCount:    retries,
	}
}

func (DataSyncFailed) EventType() EventType       { return EventDataSyncFailed }
func (e DataSyncFailed) SubjectID() (int64, bool) { return subject(e.UserID) }

// AutoCompletionTriggered is emitted when external data completes a quest.
type AutoCompletionTriggered struct {
	BaseEvent
	UserID              int64      `json:"user_id"`
	QuestID             int64      `json:"quest_id"`
	TriggerSource       string     `json:"trigger_source"`
	TriggerData         Attributes `json:"trigger_data"`
	CompletionTimestamp time.Time  `json:"completion_timestamp"`
}

// NewAutoCompletionTriggered creates an AutoCompletionTriggered event.
func NewAutoCompletionTriggered(userID, questID int64, source string, data Attributes, completedAt time.Time, opts ...EventOption) AutoCompletionTriggered {
	return AutoCompletionTriggered{
		BaseEvent:           NewBaseEvent(opts...),
		UserID:              userID,
		QuestID:             questID,
		TriggerSource:       source,
		TriggerData:         data.normalized(),
		CompletionTimestamp: utc(completedAt),
	}
}

func (AutoCompletionTriggered) EventType() EventType       { return EventAutoCompletionTriggered }
func (e AutoCompletionTriggered) SubjectID() (int64, bool) { return subject(e.UserID) }
