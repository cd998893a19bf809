package commands

import (
	"errors"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrUpdateOrderStatusCommandIsNotConstructed = errors.New(
	"UpdateOrderStatusCommand must be created via NewUpdateOrderStatusCommand constructor",
)

// UpdateOrderStatusCommand represents a request to move an order to a new
// status on behalf of an acting role.
//
// ExpectedVersion is optional. When set, the handler rejects the mutation
// with a version conflict if the order has moved past that version, which
// lets clients write only against the state they last saw.
type UpdateOrderStatusCommand struct { //nolint:recvcheck //using for validation
	orderID         kernel.UUID
	status          order.Status
	role            actor.Role
	expectedVersion *int

	guard guard.ConstructorGuard
}

// NewUpdateOrderStatusCommand creates a command to change an order's status.
// The role must be one that is allowed to mutate orders at all: customers are
// rejected here with an unauthorized role error before any order is touched.
// Pass nil expectedVersion to skip the optimistic check.
func NewUpdateOrderStatusCommand(
	orderID kernel.UUID,
	status order.Status,
	role actor.Role,
	expectedVersion *int,
) (UpdateOrderStatusCommand, error) {
	command := UpdateOrderStatusCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		command.setOrderID(orderID),
		command.setStatus(status),
		command.setRole(role),
		command.setExpectedVersion(expectedVersion),
	); err != nil {
		return UpdateOrderStatusCommand{}, err
	}

	return command, nil
}

// Validate ensures the command was created through the constructor.
// Returns ErrUpdateOrderStatusCommandIsNotConstructed if validation fails.
func (c UpdateOrderStatusCommand) Validate() error {
	return c.guard.Validate(ErrUpdateOrderStatusCommandIsNotConstructed)
}

// OrderID returns the identifier of the order to mutate.
func (c UpdateOrderStatusCommand) OrderID() kernel.UUID {
	return c.orderID
}

// Status returns the requested target status.
func (c UpdateOrderStatusCommand) Status() order.Status {
	return c.status
}

// Role returns the role in whose capacity the change is requested.
func (c UpdateOrderStatusCommand) Role() actor.Role {
	return c.role
}

// ExpectedVersion returns the version the caller last observed,
// or nil when no optimistic check was requested.
func (c UpdateOrderStatusCommand) ExpectedVersion() *int {
	return c.expectedVersion
}

func (c *UpdateOrderStatusCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *UpdateOrderStatusCommand) setStatus(status order.Status) error {
	if err := status.Validate(); err != nil {
		return err
	}

	c.status = status
	return nil
}

func (c *UpdateOrderStatusCommand) setRole(role actor.Role) error {
	if err := role.Validate(); err != nil {
		return err
	}
	if !role.CanMutate() {
		return errs.NewUnauthorizedRoleError(role.String(), "update order status")
	}

	c.role = role
	return nil
}

func (c *UpdateOrderStatusCommand) setExpectedVersion(expectedVersion *int) error {
	if expectedVersion != nil && *expectedVersion < 1 {
		return errs.NewValueIsInvalidError("expectedVersion")
	}

	if expectedVersion != nil {
		value := *expectedVersion
		c.expectedVersion = &value
	}
	return nil
}
