package order

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not
	// created through NewOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder or RestoreOrder")

	// ErrPartnerAlreadyAssigned is returned when a delivery partner is
	// assigned to an order that already has a different one. Assignment
	// happens exactly once.
	ErrPartnerAlreadyAssigned = errors.New("order already has a delivery partner assigned")
)

// StatusChange is one immutable entry of an order's status history:
// which status the order entered, in whose capacity, and when.
type StatusChange struct {
	status Status
	role   actor.Role
	at     time.Time
}

// RestoreStatusChange rebuilds a history entry from persistence.
func RestoreStatusChange(status Status, role actor.Role, at time.Time) (StatusChange, error) {
	if err := status.Validate(); err != nil {
		return StatusChange{}, err
	}
	if err := role.Validate(); err != nil {
		return StatusChange{}, err
	}
	return StatusChange{status: status, role: role, at: at}, nil
}

// Status returns the status the order entered with this change.
func (c StatusChange) Status() Status {
	return c.status
}

// ActorRole returns the role in whose capacity the change was made.
func (c StatusChange) ActorRole() actor.Role {
	return c.role
}

// At returns when the change was recorded.
func (c StatusChange) At() time.Time {
	return c.at
}

// Order is the aggregate root for one marketplace order's lifecycle.
//
// Order maintains these invariants:
//   - id, customerID and restaurantID are valid and immutable
//   - status only changes through TransitionTo, which enforces the state
//     machine and the role policy
//   - history is append-only, never truncated or reordered, and its length
//     is at least 1 (an order is created already in its initial status)
//   - the last history entry's status equals the current status
//   - Version() equals len(history) and increments once per committed change
//   - deliveryPartnerID is set exactly once
//
// The struct uses private fields so the invariants can only be maintained
// through its methods.
type Order struct {
	id           kernel.UUID
	customerID   kernel.UUID
	restaurantID kernel.UUID

	// deliveryPartnerID is nil until an external assignment process picks a
	// partner; this aggregate only records the result.
	deliveryPartnerID *kernel.UUID

	status  Status
	history []StatusChange

	// baseVersion is the version the aggregate had when it was loaded from
	// persistence. Everything past it in history is not yet stored, and the
	// repository uses it as the optimistic guard on update.
	baseVersion int

	isConstructed bool
}

// NewOrder creates an order in Processing status with its first history
// entry attributed to the customer who placed it.
func NewOrder(id, customerID, restaurantID kernel.UUID, placedAt time.Time) (*Order, error) {
	o := &Order{
		status:        Processing,
		isConstructed: true,
	}

	if err := errors.Join(
		o.setID(id),
		o.setCustomerID(customerID),
		o.setRestaurantID(restaurantID),
	); err != nil {
		return nil, err
	}

	o.history = []StatusChange{{status: Processing, role: actor.Customer, at: placedAt}}
	return o, nil
}

// RestoreOrder rebuilds an order from persistence, re-checking the aggregate
// invariants so corrupted rows cannot re-enter the domain.
func RestoreOrder(
	id, customerID, restaurantID kernel.UUID,
	deliveryPartnerID *kernel.UUID,
	status Status,
	history []StatusChange,
) (*Order, error) {
	o := &Order{
		isConstructed: true,
	}

	if err := errors.Join(
		o.setID(id),
		o.setCustomerID(customerID),
		o.setRestaurantID(restaurantID),
	); err != nil {
		return nil, err
	}

	if err := status.Validate(); err != nil {
		return nil, err
	}

	if len(history) == 0 {
		return nil, errs.NewValueIsRequiredError("statusHistory")
	}
	if history[len(history)-1].status != status {
		return nil, errs.NewValueIsInvalidErrorWithCause("statusHistory",
			fmt.Errorf("last entry is %s, order status is %s", history[len(history)-1].status, status))
	}

	if deliveryPartnerID != nil {
		if err := deliveryPartnerID.Validate(); err != nil {
			return nil, err
		}
		partnerID := *deliveryPartnerID
		o.deliveryPartnerID = &partnerID
	}

	o.status = status
	o.history = append([]StatusChange(nil), history...)
	o.baseVersion = len(o.history)
	return o, nil
}

// Validate ensures the Order instance was properly constructed.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

// IsEqual compares two orders by their unique identifiers.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

// ID returns the order's unique identifier.
func (o *Order) ID() kernel.UUID {
	return o.id
}

// CustomerID returns the identifier of the customer who placed the order.
func (o *Order) CustomerID() kernel.UUID {
	return o.customerID
}

// RestaurantID returns the identifier of the restaurant the order belongs to.
func (o *Order) RestaurantID() kernel.UUID {
	return o.restaurantID
}

// DeliveryPartner returns the assigned delivery partner's ID.
// Returns nil while no partner is assigned.
func (o *Order) DeliveryPartner() *kernel.UUID {
	if o.deliveryPartnerID == nil {
		return nil
	}
	partnerID := *o.deliveryPartnerID
	return &partnerID
}

// Status returns the current status of the order.
func (o *Order) Status() Status {
	return o.status
}

// Version returns the monotonic mutation counter. It equals the history
// length and is the key callers use for optimistic concurrency and event
// ordering.
func (o *Order) Version() int {
	return len(o.history)
}

// BaseVersion returns the version the order had when loaded from persistence,
// or 0 for a freshly created order. History entries with a sequence above it
// are pending persistence.
func (o *Order) BaseVersion() int {
	return o.baseVersion
}

// History returns a copy of the append-only status history, oldest first.
func (o *Order) History() []StatusChange {
	return append([]StatusChange(nil), o.history...)
}

// TransitionTo moves the order to the requested status on behalf of role.
//
// The returned bool reports whether the order actually changed: requesting
// the status the order is already in is absorbed as a no-op success (same
// version, no history append), which makes at-least-once redelivery of the
// same request harmless.
//
// On a real change the state machine decides legality (see
// ValidateTransition for the error taxonomy), a history entry is appended,
// and the version advances by one.
func (o *Order) TransitionTo(requested Status, role actor.Role, at time.Time) (bool, error) {
	if err := requested.Validate(); err != nil {
		return false, err
	}
	if err := role.Validate(); err != nil {
		return false, err
	}

	if requested == o.status {
		return false, nil
	}

	if err := ValidateTransition(o.status, requested, role); err != nil {
		return false, err
	}

	if requested == OutForDelivery && o.deliveryPartnerID == nil {
		return false, errs.NewValueIsRequiredErrorWithCause("deliveryPartnerId",
			fmt.Errorf("order cannot go out for delivery without an assigned partner"))
	}

	o.status = requested
	o.history = append(o.history, StatusChange{status: requested, role: role, at: at})
	return true, nil
}

// AssignPartner records the delivery partner chosen by the external dispatch
// process. The assignment happens exactly once: repeating it with the same
// partner is a no-op, any other partner is rejected, and terminal orders
// cannot be assigned at all.
func (o *Order) AssignPartner(partnerID kernel.UUID) error {
	if err := partnerID.Validate(); err != nil {
		return err
	}

	if o.status.IsTerminal() {
		return errs.NewValueIsInvalidErrorWithCause("deliveryPartnerId",
			fmt.Errorf("order in terminal status %s cannot be assigned", o.status))
	}

	if o.deliveryPartnerID != nil {
		if o.deliveryPartnerID.IsEqual(partnerID) {
			return nil
		}
		return ErrPartnerAlreadyAssigned
	}

	o.deliveryPartnerID = &partnerID
	return nil
}

func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setCustomerID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.customerID = id
	return nil
}

func (o *Order) setRestaurantID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.restaurantID = id
	return nil
}
