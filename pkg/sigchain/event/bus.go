package event

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
)

// Bus provides pub/sub event distribution with fan-out support.
type Bus interface {
	// Publish delivers an event to all matching subscribers.
	Publish(ctx context.Context, evt Event) error

	// Subscribe creates a subscription for specific event types.
	Subscribe(types []string, handler Handler) Subscription

	// SubscribeAll subscribes to all events.
	SubscribeAll(handler Handler) Subscription

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// Subscription represents an active subscription.
type Subscription interface {
	// ID returns the subscription identifier.
	ID() string

	// Unsubscribe removes the subscription.
	Unsubscribe()

	// Pause temporarily stops delivery. Events published while paused
	// are dropped, not queued.
	Pause()

	// Resume continues delivery after pause.
	Resume()

	// IsPaused returns true if the subscription is paused.
	IsPaused() bool
}

// BusConfig configures bus behavior.
type BusConfig struct {
	// MaxSubscribers limits total subscriptions.
	// Default: 0 (unlimited)
	MaxSubscribers int

	// OnError is called when a handler returns an error. When nil, handler
	// errors are joined and returned from Publish.
	OnError func(evt Event, subscriberID string, err error)
}

// LocalBus is an in-memory event bus with synchronous delivery.
// Handlers run on the publishing goroutine in subscription order.
type LocalBus struct {
	config BusConfig

	mu            sync.RWMutex
	subscriptions []*subscription

	nextID atomic.Int64
	closed atomic.Bool
}

// Compile-time interface check.
var _ Bus = (*LocalBus)(nil)

// NewBus creates a new local event bus.
func NewBus(config BusConfig) *LocalBus {
	return &LocalBus{config: config}
}

type subscription struct {
	id      string
	types   []string // empty = all types
	handler Handler
	paused  atomic.Bool
	bus     *LocalBus
}

// Publish sends an event to all matching subscribers.
func (b *LocalBus) Publish(ctx context.Context, evt Event) error {
	if b.closed.Load() {
		return &EventError{Event: evt, Err: ErrBusClosed}
	}

	b.mu.RLock()
	subs := b.matching(evt.Type())
	b.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sub.paused.Load() {
			continue
		}
		if err := sub.handler.Handle(ctx, evt); err != nil {
			if b.config.OnError != nil {
				b.config.OnError(evt, sub.id, err)
				continue
			}
			errs = append(errs, &EventError{Event: evt, Handler: sub.id, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Subscribe creates a subscription for specific event types.
// Returns nil if the bus is closed or the subscriber limit is reached.
func (b *LocalBus) Subscribe(types []string, handler Handler) Subscription {
	if sub := b.subscribe(types, handler); sub != nil {
		return sub
	}
	return nil
}

// SubscribeAll subscribes to all events.
func (b *LocalBus) SubscribeAll(handler Handler) Subscription {
	return b.Subscribe(nil, handler)
}

func (b *LocalBus) subscribe(types []string, handler Handler) *subscription {
	if b.closed.Load() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.config.MaxSubscribers > 0 && len(b.subscriptions) >= b.config.MaxSubscribers {
		return nil
	}

	sub := &subscription{
		id:      strconv.FormatInt(b.nextID.Add(1), 10),
		types:   slices.Clone(types),
		handler: handler,
		bus:     b,
	}
	b.subscriptions = append(b.subscriptions, sub)
	return sub
}

// Len returns the number of active subscriptions.
func (b *LocalBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}

// matching returns subscriptions for an event type in subscription order.
// Caller holds b.mu.
func (b *LocalBus) matching(eventType string) []*subscription {
	var subs []*subscription
	for _, sub := range b.subscriptions {
		if len(sub.types) == 0 || slices.Contains(sub.types, eventType) {
			subs = append(subs, sub)
		}
	}
	return subs
}

// Close shuts down the bus. Later publishes fail with ErrBusClosed.
func (b *LocalBus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions = nil
	return nil
}

// ID returns the subscription identifier.
func (s *subscription) ID() string { return s.id }

// Unsubscribe removes the subscription.
func (s *subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	s.bus.subscriptions = slices.DeleteFunc(s.bus.subscriptions, func(other *subscription) bool {
		return other == s
	})
}

// Pause temporarily stops delivery.
func (s *subscription) Pause() {
	s.paused.Store(true)
}

// Resume continues delivery after pause.
func (s *subscription) Resume() {
	s.paused.Store(false)
}

// IsPaused returns true if the subscription is paused.
func (s *subscription) IsPaused() bool {
	return s.paused.Load()
}
