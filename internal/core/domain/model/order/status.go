package order

import (
	"fmt"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/pkg/errs"
)

// Status represents the lifecycle state of an order.
// It implements a state machine with defined transitions to ensure orders
// follow the correct business workflow; see the package documentation for
// the transition graph.
//
// Status is a value object that validates state transitions and provides
// string representations for persistence and the wire.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Processing is the initial status when an order is first placed.
	// The restaurant has not yet accepted it.
	Processing

	// Accepted indicates the restaurant has accepted the order and is
	// preparing it.
	Accepted

	// Ready indicates the order is prepared and waiting for pickup by its
	// delivery partner.
	Ready

	// OutForDelivery indicates the delivery partner has picked the order up.
	OutForDelivery

	// Delivered indicates the order reached the customer.
	// This is a terminal state with no further transitions allowed.
	Delivered

	// Cancelled indicates the order was cancelled before pickup.
	// This is a terminal state with no further transitions allowed.
	Cancelled
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:        "unknown",
		Processing:     "processing",
		Accepted:       "accepted",
		Ready:          "ready",
		OutForDelivery: "out_for_delivery",
		Delivered:      "delivered",
		Cancelled:      "cancelled",
	}
}

func getValidStatusStrings() map[Status]string {
	//nolint:exhaustive // Unknown is intentionally excluded as it's invalid
	return map[Status]string{
		Processing:     "processing",
		Accepted:       "accepted",
		Ready:          "ready",
		OutForDelivery: "out_for_delivery",
		Delivered:      "delivered",
		Cancelled:      "cancelled",
	}
}

// transitions is the adjacency table of the state graph. A requested status
// not listed under the current one is an invalid transition for every role.
func transitions() map[Status][]Status {
	return map[Status][]Status{
		Processing:     {Accepted, Cancelled},
		Accepted:       {Ready, Cancelled},
		Ready:          {OutForDelivery, Cancelled},
		OutForDelivery: {Delivered},
	}
}

// statusEdge identifies one edge of the state graph.
type statusEdge struct {
	from Status
	to   Status
}

// edgeDrivers maps each edge to the single non-admin role allowed to drive
// it. Edges without an entry (ready -> cancelled) are admin-only. Admins may
// force any legal edge; customers never drive one.
func edgeDrivers() map[statusEdge]actor.Role {
	return map[statusEdge]actor.Role{
		{Processing, Accepted}:     actor.RestaurantOwner,
		{Accepted, Ready}:          actor.RestaurantOwner,
		{Processing, Cancelled}:    actor.RestaurantOwner,
		{Accepted, Cancelled}:      actor.RestaurantOwner,
		{Ready, OutForDelivery}:    actor.DeliveryPartner,
		{OutForDelivery, Delivered}: actor.DeliveryPartner,
	}
}

// StatusFromString parses the wire representation of a status.
func StatusFromString(s string) (Status, error) {
	for status, str := range getValidStatusStrings() {
		if str == s {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a valid status", s))
}

// Validate checks if the Status value is one of the six valid statuses.
// Unknown (0) and any other values are invalid. Used to ensure Status values
// from external sources (database, API) are valid before use.
func (s Status) Validate() error {
	if _, ok := getValidStatusStrings()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the wire name of the status, or "unknown" for invalid
// values. Implements fmt.Stringer and is safe on any Status value.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "unknown"
}

// IsTerminal reports whether no transition is ever legal out of the status.
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Cancelled
}

// CanTransitionTo reports whether the edge from s to target exists in the
// state graph, regardless of the actor attempting it.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions()[s] {
		if next == target {
			return true
		}
	}
	return false
}

// ValidateTransition decides whether role may move an order from current to
// requested. It is a pure function: deterministic, no I/O, no side effects.
//
// Rejections are typed so callers can distinguish them:
//   - InvalidTransitionError: the edge does not exist in the state graph,
//     regardless of role (including anything out of a terminal status)
//   - UnauthorizedRoleError: the edge exists but the role is not its driver
//     and is not an admin
func ValidateTransition(current, requested Status, role actor.Role) error {
	if !current.CanTransitionTo(requested) {
		return errs.NewInvalidTransitionError(current.String(), requested.String())
	}

	if role == actor.Admin {
		return nil
	}

	if driver, ok := edgeDrivers()[statusEdge{current, requested}]; ok && role == driver {
		return nil
	}

	return errs.NewUnauthorizedRoleError(
		role.String(),
		fmt.Sprintf("transition %s -> %s", current, requested),
	)
}
