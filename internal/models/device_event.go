package models

import "time"

// Event types written to the event log.
const (
	EventConnected       = "CONNECTED"
	EventConnectFailed   = "CONNECT_FAILED"
	EventConnectionLost  = "CONNECTION_LOST"
	EventDisconnected    = "DISCONNECTED"
	EventCommand         = "COMMAND"
	EventProfileApplied  = "PROFILE_APPLIED"
	EventMilestone       = "MILESTONE"
	EventTelemetryStale  = "TELEMETRY_STALE"
	EventStartDateSet    = "START_DATE_SET"
	EventBatchReset      = "BATCH_RESET"
	EventRetryExhausted  = "RETRY_EXHAUSTED"
	EventPublishFailed   = "PUBLISH_FAILED"
	EventSubscribeFailed = "SUBSCRIBE_FAILED"
)

// DeviceEvent is a single log entry.
type DeviceEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
