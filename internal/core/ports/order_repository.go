// Package ports defines the contracts between the order lifecycle core and
// its infrastructure adapters, enabling dependency inversion and testability.
package ports

import (
	"context"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// OrderRepository defines the persistence contract for order aggregates.
//
// The repository does not serialize mutations itself: Update must only be
// called from inside the per-order critical section held by the command
// layer, which keeps the locking policy in one place. The repository's own
// contribution to safety is the optimistic version guard on Update.
type OrderRepository interface {
	// Add persists a new order aggregate together with its initial history
	// entry. The order must be valid and not already exist.
	Add(ctx context.Context, aggregate *order.Order) error

	// Update persists a mutated order aggregate: the status row update is
	// guarded by the aggregate's previous version and exactly the new
	// history entries are appended, atomically within the surrounding unit
	// of work. Returns errs.VersionConflictError when the stored version
	// moved underneath the caller.
	Update(ctx context.Context, aggregate *order.Order) error

	// Get retrieves an order aggregate with its full status history.
	// Returns errs.ObjectNotFoundError for unknown ids.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)
}
