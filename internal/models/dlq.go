package models

import "time"

// DeadLetterPayload is the record written to the dead-letter topic for a
// source record that could not be handled.
type DeadLetterPayload struct {
	EventType     string     `json:"event_type"`
	FailedAt      time.Time  `json:"failed_at"`
	FailureReason string     `json:"failure_reason"`
	Source        RecordMeta `json:"source"`
	Payload       any        `json:"payload"`
	SourceEventID string     `json:"source_event_id,omitempty"`
}

// DeadLetterEventType returns the event type used for dead letters of the
// supplied source topic.
func DeadLetterEventType(sourceTopic string) string {
	return sourceTopic + ".dlq"
}
