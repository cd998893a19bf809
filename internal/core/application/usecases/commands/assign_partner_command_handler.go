package commands

import (
	"context"

	"orderflow/internal/pkg/keylock"
)

// AssignPartnerCommandHandler records the delivery partner on an order.
//
// Assignment shares the per-order lock with status mutations so it cannot
// interleave with a transition that depends on the partner being present.
// It does not advance the order version and publishes no event: the partner
// becomes visible on the next status change, which carries it.
type AssignPartnerCommandHandler struct {
	locks      *keylock.KeyedMutex
	uowFactory OrderUoWFactory
}

// NewAssignPartnerCommandHandler creates a handler for partner assignment.
// The KeyedMutex must be the same instance the status mutation handler uses.
func NewAssignPartnerCommandHandler(
	locks *keylock.KeyedMutex,
	uowFactory OrderUoWFactory,
) AssignPartnerCommandHandler {
	return AssignPartnerCommandHandler{
		locks:      locks,
		uowFactory: uowFactory,
	}
}

// Handle processes the partner assignment command.
// Repeating the assignment with the same partner is a no-op success;
// a different partner is rejected by the aggregate.
func (h AssignPartnerCommandHandler) Handle(ctx context.Context, command AssignPartnerCommand) error {
	if err := command.Validate(); err != nil {
		return err
	}

	release, err := h.locks.Acquire(ctx, command.OrderID().String())
	if err != nil {
		return err
	}
	defer release()

	ctx = context.WithoutCancel(ctx)

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	orderRepo := uow.OrderRepository()
	aggregate, err := orderRepo.Get(ctx, command.OrderID())
	if err != nil {
		return err
	}

	if err = aggregate.AssignPartner(command.PartnerID()); err != nil {
		return err
	}

	if err = orderRepo.Update(ctx, aggregate); err != nil {
		return err
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	return nil
}
