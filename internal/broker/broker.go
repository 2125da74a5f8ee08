// Package broker describes the log-broker capabilities the worker runtime
// depends on. Concrete clients live under internal/kafka.
package broker

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// TopicPartition identifies one partition of a topic.
type TopicPartition struct {
	Topic     string
	Partition int32
}

func (tp TopicPartition) String() string {
	return fmt.Sprintf("%s[%d]", tp.Topic, tp.Partition)
}

// Message is one record fetched from the broker.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string][]byte
	Timestamp time.Time
}

// TopicPartition returns the partition the message was read from.
func (m Message) TopicPartition() TopicPartition {
	return TopicPartition{Topic: m.Topic, Partition: m.Partition}
}

// Delivery reports where a produced record landed. Partition and Offset are
// -1 when the client does not expose them.
type Delivery struct {
	Topic     string
	Partition int32
	Offset    int64
}

// Consumer pulls batches of records and commits offsets explicitly.
//
// Poll blocks for at most timeout and returns up to max records grouped by
// partition, in offset order within each partition. An empty map with a nil
// error means nothing arrived. Commit stores the next offset to read for every
// supplied partition; it is synchronous.
type Consumer interface {
	Poll(ctx context.Context, timeout time.Duration, max int) (map[TopicPartition][]Message, error)
	Commit(ctx context.Context, offsets map[TopicPartition]int64) error
	Close() error
}

// Producer publishes single records synchronously.
type Producer interface {
	Send(ctx context.Context, topic string, key, value []byte) (Delivery, error)
	Close() error
}

// SortedPartitions returns the keys of batch ordered by topic and partition.
func SortedPartitions(batch map[TopicPartition][]Message) []TopicPartition {
	keys := make([]TopicPartition, 0, len(batch))
	for tp := range batch {
		keys = append(keys, tp)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Topic != keys[j].Topic {
			return keys[i].Topic < keys[j].Topic
		}
		return keys[i].Partition < keys[j].Partition
	})
	return keys
}

// GroupByPartition groups messages by partition keeping their relative order.
func GroupByPartition(messages []Message) map[TopicPartition][]Message {
	out := make(map[TopicPartition][]Message)
	for _, m := range messages {
		tp := m.TopicPartition()
		out[tp] = append(out[tp], m)
	}
	return out
}
