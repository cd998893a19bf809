package commands

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/keylock"
)

// StatusChangeResult is the outcome of a processed status mutation.
// Changed is false when the request was an idempotent replay: the order was
// already in the requested status and nothing was written or published.
type StatusChangeResult struct {
	OrderID kernel.UUID
	Status  order.Status
	Version int
	Changed bool
}

// UpdateOrderStatusCommandHandler is the single mutation path for order
// status. It serializes mutations per order id, applies the state machine
// through the aggregate, persists the change atomically, and publishes the
// resulting event before releasing the order's critical section.
//
// Example:
//
//	handler := NewUpdateOrderStatusCommandHandler(locks, uowFactory, publisher)
//	cmd, _ := NewUpdateOrderStatusCommand(orderID, order.Accepted, actor.RestaurantOwner, nil)
//	result, err := handler.Handle(ctx, cmd)
//	switch {
//	case errors.Is(err, errs.ErrResourceBusy):
//	    // order contended, retry with backoff
//	case errors.Is(err, errs.ErrVersionConflict):
//	    // stale view, re-read and decide
//	case err != nil:
//	    // rejected by the state machine or the role policy
//	default:
//	    log.Printf("order %s now %s at version %d", result.OrderID, result.Status, result.Version)
//	}
type UpdateOrderStatusCommandHandler struct {
	locks      *keylock.KeyedMutex
	uowFactory OrderUoWFactory
	publisher  ports.EventPublisher
}

// NewUpdateOrderStatusCommandHandler creates the status mutation handler.
// All writers for a given order must share the same KeyedMutex instance.
func NewUpdateOrderStatusCommandHandler(
	locks *keylock.KeyedMutex,
	uowFactory OrderUoWFactory,
	publisher ports.EventPublisher,
) UpdateOrderStatusCommandHandler {
	return UpdateOrderStatusCommandHandler{
		locks:      locks,
		uowFactory: uowFactory,
		publisher:  publisher,
	}
}

// Handle processes one status mutation under the order's exclusive lock.
//
// The sequence inside the critical section is fixed: load the order, check
// the caller's expected version, apply the transition, persist, commit,
// publish. The expected version check runs before transition validation so a
// stale writer learns it lost a race rather than that its edge is illegal.
// An idempotent replay short-circuits after the load with no write and no
// event. Publishing happens before the lock is released, which is what keeps
// the event feed in version order per order.
func (h UpdateOrderStatusCommandHandler) Handle(
	ctx context.Context,
	command UpdateOrderStatusCommand,
) (StatusChangeResult, error) {
	if err := command.Validate(); err != nil {
		return StatusChangeResult{}, err
	}

	release, err := h.locks.Acquire(ctx, command.OrderID().String())
	if err != nil {
		return StatusChangeResult{}, err
	}
	defer release()

	// Once the lock is held the mutation runs to completion: a client that
	// disconnects mid-request must not leave a half-applied change behind.
	ctx = context.WithoutCancel(ctx)

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return StatusChangeResult{}, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	orderRepo := uow.OrderRepository()
	aggregate, err := orderRepo.Get(ctx, command.OrderID())
	if err != nil {
		return StatusChangeResult{}, err
	}

	if expected := command.ExpectedVersion(); expected != nil && *expected != aggregate.Version() {
		return StatusChangeResult{}, errs.NewVersionConflictError(
			"expectedVersion", *expected, aggregate.Version())
	}

	previous := aggregate.Status()
	occurredAt := time.Now().UTC()

	changed, err := aggregate.TransitionTo(command.Status(), command.Role(), occurredAt)
	if err != nil {
		return StatusChangeResult{}, err
	}

	result := StatusChangeResult{
		OrderID: aggregate.ID(),
		Status:  aggregate.Status(),
		Version: aggregate.Version(),
		Changed: changed,
	}

	if !changed {
		return result, nil
	}

	if err = orderRepo.Update(ctx, aggregate); err != nil {
		return StatusChangeResult{}, err
	}

	if err = uow.Commit(ctx); err != nil {
		return StatusChangeResult{}, err
	}

	h.publisher.Publish(ports.StatusEvent{
		OrderID:      aggregate.ID(),
		CustomerID:   aggregate.CustomerID(),
		RestaurantID: aggregate.RestaurantID(),
		PartnerID:    aggregate.DeliveryPartner(),
		Previous:     previous,
		New:          aggregate.Status(),
		ActorRole:    command.Role(),
		Version:      aggregate.Version(),
		OccurredAt:   occurredAt,
	})

	return result, nil
}
