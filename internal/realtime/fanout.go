package realtime

import (
	"orderflow/internal/core/ports"
)

// Fanout forwards each published event to every underlying publisher,
// typically the in-process hub plus the message broker feed. Publish stays
// non-blocking as long as every underlying Publish is.
type Fanout struct {
	publishers []ports.EventPublisher
}

// NewFanout combines publishers into one. Order is preserved: the hub
// should come first so local subscribers are never behind the broker.
func NewFanout(publishers ...ports.EventPublisher) *Fanout {
	return &Fanout{publishers: publishers}
}

// Publish forwards the event to every publisher.
func (f *Fanout) Publish(event ports.StatusEvent) {
	for _, p := range f.publishers {
		p.Publish(event)
	}
}
