// Package notify holds the channel policy for appointment notifications:
// normalizing inbound payloads, deciding per channel whether and how to send,
// and aggregating the per-channel results into a single commit signal.
//
// Nothing in this package knows about Kafka or about concrete providers.
// Delivery happens through the EmailSender and SMSSender capabilities
// supplied by the caller.
package notify
