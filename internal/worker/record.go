package worker

import (
	"time"

	"github.com/ajayykmr/notifications-service/internal/broker"
	"github.com/ajayykmr/notifications-service/internal/models"
)

// Record is one inbound record as seen by the message processor. Value holds
// the decoded payload and is expected to be a map[string]any.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     any
	Timestamp time.Time
	Headers   map[string][]byte
}

// Meta returns the broker coordinates of the record.
func (r Record) Meta() models.RecordMeta {
	return models.RecordMeta{Topic: r.Topic, Partition: r.Partition, Offset: r.Offset}
}

// NewRecordFromMessage builds a processor record from a broker message and
// its decoded payload.
func NewRecordFromMessage(msg broker.Message, value any) Record {
	return Record{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       cloneBytes(msg.Key),
		Value:     value,
		Timestamp: msg.Timestamp,
		Headers:   cloneHeaders(msg.Headers),
	}
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	clone := make([]byte, len(b))
	copy(clone, b)
	return clone
}

func cloneHeaders(headers map[string][]byte) map[string][]byte {
	if len(headers) == 0 {
		return nil
	}
	clone := make(map[string][]byte, len(headers))
	for k, v := range headers {
		clone[k] = cloneBytes(v)
	}
	return clone
}
