package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (Community) or NATS (Pro).
// All methods require tenantID for strict multi-tenancy isolation.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, tenantID string, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, tenantID string, topic string, handler MessageHandler) (Subscription, error)

	// Request sends a message and waits for a response (request-reply pattern).
	Request(ctx context.Context, tenantID string, topic string, payload []byte) ([]byte, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings (Community tier)
	ChannelBufferSize int

	// NATS settings (Pro tier)
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Standard topic names for the assessment pipeline.
const (
	TopicRecordsChanged      = "kestrel.records.changed"
	TopicAssessmentRequested = "kestrel.assessment.requested"
	TopicAssessmentCompleted = "kestrel.assessment.completed"
	TopicReviewRaised        = "kestrel.review.raised"
)

// Activity event names tracked per client and exposed to rule expressions
// as windowed counters.
const (
	ActivityAssessment   = "assessment"
	ActivityRecordChange = "records"
)

// RecordsChangedEvent is the payload published on TopicRecordsChanged.
type RecordsChangedEvent struct {
	ClientID string     `json:"clientId"`
	Kind     RecordKind `json:"kind"`
	RecordID string     `json:"recordId"`
}

// AssessmentRequestedEvent is the payload published on
// TopicAssessmentRequested and consumed by the worker pool. TenantID
// overrides the subscription tenant so a global worker can route the
// request; TraceID is optional and falls back to the message ID.
type AssessmentRequestedEvent struct {
	TenantID  string         `json:"tenantId,omitempty"`
	TraceID   string         `json:"traceId,omitempty"`
	ClientID  string         `json:"clientId"`
	Responses map[string]int `json:"responses"`
}
