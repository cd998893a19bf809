package ports

import (
	"time"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// StatusEvent describes one committed order status change. It carries the
// identifiers of every party attached to the order so publishers can fan the
// event out to the right audiences without a database read.
//
// Version is the order version after the change; consumers reconcile their
// local view with it. Previous is order.Unknown for the creation event.
type StatusEvent struct {
	OrderID      kernel.UUID
	CustomerID   kernel.UUID
	RestaurantID kernel.UUID
	PartnerID    *kernel.UUID

	Previous  order.Status
	New       order.Status
	ActorRole actor.Role
	Version   int

	OccurredAt time.Time
}

// EventPublisher delivers committed status change events to interested sinks.
//
// Publish is called from inside the per-order critical section, after the
// database commit. Implementations must enqueue and return immediately,
// never block on slow consumers, so delivery order per order id follows
// version order without stretching the critical section.
type EventPublisher interface {
	Publish(event StatusEvent)
}
