package realtime

import (
	"log/slog"
	"sync"

	"orderflow/internal/core/ports"

	"github.com/google/uuid"
)

const (
	// DefaultQueueSize bounds the hub's intake queue. The queue absorbs
	// bursts from the mutation path, whose Publish never blocks.
	DefaultQueueSize = 1024

	// DefaultSubscriberBuffer bounds each subscriber's delivery channel.
	// A consumer that falls this far behind starts losing events and is
	// expected to reconcile through the order version.
	DefaultSubscriberBuffer = 16
)

// Subscriber is one live event consumer. Events arrive on Events in the
// order they were published for any given order id.
type Subscriber struct {
	id     string
	events chan ports.StatusEvent
}

// ID returns the subscriber's registry key.
func (s *Subscriber) ID() string {
	return s.id
}

// Events returns the subscriber's delivery channel. The hub closes it when
// the subscriber is unsubscribed or the hub stops.
func (s *Subscriber) Events() <-chan ports.StatusEvent {
	return s.events
}

// Hub delivers committed status events to joined subscribers.
//
// Publish enqueues and returns immediately; a single dispatch goroutine
// drains the queue, resolves each event's audiences through the registry,
// and offers the event to each subscriber's buffered channel. A full
// subscriber buffer drops the event for that subscriber only, with a log
// line. Because dispatch is single-threaded and publishers enqueue in
// commit order, every subscriber observes any one order's events in
// version order.
//
// Hub implements ports.EventPublisher.
type Hub struct {
	registry *Registry
	logger   *slog.Logger

	queue chan ports.StatusEvent
	done  chan struct{}
	wg    sync.WaitGroup

	subscriberBuffer int

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	stopped     bool
}

// NewHub creates a hub fanning out through the given registry.
// Non-positive sizes fall back to the defaults.
func NewHub(registry *Registry, logger *slog.Logger, queueSize, subscriberBuffer int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if subscriberBuffer <= 0 {
		subscriberBuffer = DefaultSubscriberBuffer
	}
	return &Hub{
		registry:         registry,
		logger:           logger.With("component", "realtime_hub"),
		queue:            make(chan ports.StatusEvent, queueSize),
		done:             make(chan struct{}),
		subscribers:      make(map[string]*Subscriber),
		subscriberBuffer: subscriberBuffer,
	}
}

// Start launches the dispatch goroutine.
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.run()
}

// Stop drains nothing further: pending queued events are discarded, every
// subscriber channel is closed, and Publish becomes a no-op.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	close(h.done)
	h.wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subscribers {
		close(sub.events)
		delete(h.subscribers, id)
		h.registry.Drop(id)
	}
}

// Subscribe creates a new subscriber with an empty scope membership.
// The caller joins scopes through the registry after clearing them with
// the gatekeeper.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		id:     uuid.NewString(),
		events: make(chan ports.StatusEvent, h.subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		close(sub.events)
		return sub
	}
	h.subscribers[sub.id] = sub
	return sub
}

// Unsubscribe removes the subscriber from every scope and closes its
// channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.registry.Drop(sub.id)

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub.id]; !ok {
		return
	}
	delete(h.subscribers, sub.id)
	close(sub.events)
}

// Publish enqueues the event for dispatch and returns immediately.
// If the intake queue is full the event is dropped with a log line;
// consumers recover through version reconciliation.
func (h *Hub) Publish(event ports.StatusEvent) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case h.queue <- event:
	default:
		h.logger.Warn("event queue full, dropping event",
			"order_id", event.OrderID.String(),
			"version", event.Version)
	}
}

func (h *Hub) run() {
	defer h.wg.Done()

	for {
		select {
		case event := <-h.queue:
			h.dispatch(event)
		case <-h.done:
			return
		}
	}
}

// dispatch offers the event to the union of its scopes' audiences, at most
// once per subscriber even when it joined several matching scopes.
func (h *Hub) dispatch(event ports.StatusEvent) {
	delivered := make(map[string]struct{})

	for _, scope := range scopesOf(event) {
		for _, id := range h.registry.SubscribersOf(scope) {
			if _, done := delivered[id]; done {
				continue
			}
			delivered[id] = struct{}{}
			h.offer(id, event)
		}
	}
}

// offer hands the event to one subscriber. The read lock is held across the
// send so Unsubscribe cannot close the channel between the lookup and the
// send; the send itself never blocks, so holding the lock is cheap.
func (h *Hub) offer(subscriberID string, event ports.StatusEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sub, ok := h.subscribers[subscriberID]
	if !ok {
		return
	}

	select {
	case sub.events <- event:
	default:
		h.logger.Warn("subscriber buffer full, dropping event",
			"subscriber_id", subscriberID,
			"order_id", event.OrderID.String(),
			"version", event.Version)
	}
}

// scopesOf lists the audiences an event belongs to: the order itself, the
// restaurant it was placed at, and the assigned partner when there is one.
func scopesOf(event ports.StatusEvent) []Scope {
	scopes := []Scope{
		{Kind: ScopeKindOrder, ID: event.OrderID},
		{Kind: ScopeKindRestaurant, ID: event.RestaurantID},
	}
	if event.PartnerID != nil {
		scopes = append(scopes, Scope{Kind: ScopeKindPartner, ID: *event.PartnerID})
	}
	return scopes
}
