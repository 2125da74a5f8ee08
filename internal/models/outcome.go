package models

// OutcomeStatus is the terminal state of one processed record.
type OutcomeStatus string

const (
	StatusParseFailed           OutcomeStatus = "parse_failed"
	StatusProcessedAndCommitted OutcomeStatus = "processed_and_committed"
	StatusProcessedNotCommitted OutcomeStatus = "processed_not_committed"
)

// Failure reasons attached to rejected records.
const (
	ReasonParseFailedPrefix  = "parse_failed: "
	ReasonDecodeFailedPrefix = "decode_failed: "
	ReasonChannelsFailed     = "one_or_more_requested_channels_failed"
)

// RecordMeta locates a record on the broker.
type RecordMeta struct {
	Topic     string `json:"topic"`
	Partition int32  `json:"partition"`
	Offset    int64  `json:"offset"`
}

// RecordOutcome is produced once per inbound record. Event and Processing are
// nil when the record failed to parse.
type RecordOutcome struct {
	Status       OutcomeStatus     `json:"status"`
	Record       RecordMeta        `json:"record_meta"`
	Event        *NormalizedEvent  `json:"event"`
	Processing   *ProcessingResult `json:"processing"`
	ShouldCommit bool              `json:"should_commit"`
	Error        string            `json:"error,omitempty"`
}
