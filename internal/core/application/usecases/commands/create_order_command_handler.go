package commands

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
)

// CreateOrderCommandHandler handles the business logic for placing orders.
// New orders start in "processing" status at version 1, attributed to the
// customer who placed them.
type CreateOrderCommandHandler struct {
	uowFactory OrderUoWFactory
	publisher  ports.EventPublisher
}

// NewCreateOrderCommandHandler creates a handler for order placement.
// Requires an OrderUoWFactory for transactional persistence and an
// EventPublisher that announces the new order to restaurant subscribers.
func NewCreateOrderCommandHandler(
	uowFactory OrderUoWFactory,
	publisher ports.EventPublisher,
) CreateOrderCommandHandler {
	return CreateOrderCommandHandler{
		uowFactory: uowFactory,
		publisher:  publisher,
	}
}

// Handle processes the order placement command.
// Persists the order with its initial history entry and, after commit,
// publishes the creation event so restaurant dashboards see the order arrive.
func (h CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	placedAt := time.Now().UTC()
	newOrder, err := order.NewOrder(cmd.OrderID(), cmd.CustomerID(), cmd.RestaurantID(), placedAt)
	if err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.OrderRepository().Add(ctx, newOrder); err != nil {
		return err
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.publisher.Publish(ports.StatusEvent{
		OrderID:      newOrder.ID(),
		CustomerID:   newOrder.CustomerID(),
		RestaurantID: newOrder.RestaurantID(),
		Previous:     order.Unknown,
		New:          newOrder.Status(),
		ActorRole:    actor.Customer,
		Version:      newOrder.Version(),
		OccurredAt:   placedAt,
	})

	return nil
}
