package domain

import (
	"context"
)

// EventPublisher is the narrow interface the workflow core depends on.
// Publication is fire-and-forget: a nil return means the broker accepted
// the message, nothing more. Publish errors are infrastructure failures
// and are propagated, never swallowed.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, routingKey string, event Event) error
}

// EventBus extends publishing with subscriptions for async collaborators.
// Supports Go channels (in-process) or NATS.
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for messages on a topic whose
	// routing key matches the pattern. A trailing "*" segment matches
	// any remaining segments ("policy.*" matches "policy.created" and
	// "policy.status.changed").
	Subscribe(ctx context.Context, topic string, pattern string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message is the broker envelope around an event payload.
type Message struct {
	ID         string `json:"id"`
	Topic      string `json:"topic"`
	RoutingKey string `json:"routingKey"`
	Payload    []byte `json:"payload"`
	Timestamp  int64  `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Pattern returns the subscribed routing key pattern.
	Pattern() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string `env:"HERON_BUS_TYPE"`

	// Channel settings
	ChannelBufferSize int `env:"HERON_BUS_BUFFER"`

	// NATS settings
	NATSUrl           string `env:"HERON_NATS_URL"`
	NATSToken         string `env:"HERON_NATS_TOKEN"`
	NATSMaxReconnects int    `env:"HERON_NATS_MAX_RECONNECTS"`
	NATSReconnectWait int    `env:"HERON_NATS_RECONNECT_WAIT"` // seconds
}
