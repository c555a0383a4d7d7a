package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the interface for all change notifications.
// Events are immutable once created.
type Event interface {
	ID() string     // Unique event identifier
	Type() string   // Event type (e.g., "node.added")
	Source() string // Event source (e.g., "editor", "cli")

	// CorrelationID groups related events, typically one editor session.
	CorrelationID() string

	Timestamp() time.Time

	// Data returns the payload.
	Data() any
	// DataBytes returns the payload encoded as JSON.
	DataBytes() []byte
}

// Metadata contains common event metadata fields.
type Metadata struct {
	EventID       string    `json:"id"`
	EventType     string    `json:"type"`
	EventSource   string    `json:"source"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// BaseEvent provides a generic event implementation.
// T is the payload type for type-safe access.
type BaseEvent[T any] struct {
	Meta    Metadata `json:"metadata"`
	Payload T        `json:"payload"`
}

// ID returns the unique event identifier.
func (e *BaseEvent[T]) ID() string { return e.Meta.EventID }

// Type returns the event type.
func (e *BaseEvent[T]) Type() string { return e.Meta.EventType }

// Source returns the event source.
func (e *BaseEvent[T]) Source() string { return e.Meta.EventSource }

// CorrelationID returns the correlation ID.
func (e *BaseEvent[T]) CorrelationID() string { return e.Meta.CorrelationID }

// Timestamp returns when the event occurred.
func (e *BaseEvent[T]) Timestamp() time.Time { return e.Meta.Timestamp }

// Data returns the event payload.
func (e *BaseEvent[T]) Data() any { return e.Payload }

// TypedData returns the strongly-typed payload.
func (e *BaseEvent[T]) TypedData() T { return e.Payload }

// DataBytes returns the payload encoded as JSON. Encoding errors yield nil.
func (e *BaseEvent[T]) DataBytes() []byte {
	b, err := json.Marshal(e.Payload)
	if err != nil {
		return nil
	}
	return b
}

// EventOption configures event creation.
type EventOption func(*eventConfig)

type eventConfig struct {
	id            string
	correlationID string
	timestamp     time.Time
}

// WithEventID sets a specific event ID (default: auto-generated UUID).
func WithEventID(id string) EventOption {
	return func(cfg *eventConfig) {
		cfg.id = id
	}
}

// WithCorrelationID sets the correlation ID.
func WithCorrelationID(id string) EventOption {
	return func(cfg *eventConfig) {
		cfg.correlationID = id
	}
}

// WithTimestamp sets a specific timestamp (default: time.Now()).
func WithTimestamp(t time.Time) EventOption {
	return func(cfg *eventConfig) {
		cfg.timestamp = t
	}
}

// New creates a new event with the given type, source, and payload.
func New[T any](eventType, source string, payload T, opts ...EventOption) *BaseEvent[T] {
	cfg := &eventConfig{
		id:        uuid.New().String(),
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	// If no correlation ID, use event ID as the root
	if cfg.correlationID == "" {
		cfg.correlationID = cfg.id
	}

	return &BaseEvent[T]{
		Meta: Metadata{
			EventID:       cfg.id,
			EventType:     eventType,
			EventSource:   source,
			CorrelationID: cfg.correlationID,
			Timestamp:     cfg.timestamp,
		},
		Payload: payload,
	}
}

// Handler processes events.
type Handler interface {
	Handle(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}
