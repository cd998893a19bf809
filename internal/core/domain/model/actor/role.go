// Package actor defines the fixed set of roles in whose capacity requests are
// made. A role is resolved exactly once at authentication time and passed
// explicitly into every call; business logic never re-derives it.
package actor

import (
	"fmt"

	"orderflow/internal/pkg/errs"
)

// Role represents the capacity in which an actor interacts with an order:
// the customer who placed it, the restaurant preparing it, the delivery
// partner carrying it, or an administrator.
type Role int

const (
	// RoleUnknown represents an invalid or undefined role.
	// This value (0) helps catch uninitialized Role values.
	RoleUnknown Role = iota

	// Customer placed the order. Customers observe status but never drive
	// transitions.
	Customer

	// RestaurantOwner owns the restaurant the order belongs to and drives
	// the kitchen-side transitions.
	RestaurantOwner

	// DeliveryPartner is assigned to carry the order and drives the
	// delivery-side transitions.
	DeliveryPartner

	// Admin may force any legal transition and observe any scope.
	Admin
)

func getRoleStrings() map[Role]string {
	return map[Role]string{
		RoleUnknown:     "unknown",
		Customer:        "customer",
		RestaurantOwner: "restaurant_owner",
		DeliveryPartner: "delivery_partner",
		Admin:           "admin",
	}
}

func getValidRoleStrings() map[Role]string {
	//nolint:exhaustive // RoleUnknown is intentionally excluded as it's invalid
	return map[Role]string{
		Customer:        "customer",
		RestaurantOwner: "restaurant_owner",
		DeliveryPartner: "delivery_partner",
		Admin:           "admin",
	}
}

// RoleFromString parses the wire representation of a role.
// Returns an error for anything outside the fixed enum; callers at the
// transport boundary use this so the rest of the system only ever sees
// validated roles.
func RoleFromString(s string) (Role, error) {
	for role, str := range getValidRoleStrings() {
		if str == s {
			return role, nil
		}
	}
	return RoleUnknown, errs.NewValueIsInvalidErrorWithCause("actorRole", fmt.Errorf("%q is not a valid role", s))
}

// Validate checks if the Role value is one of the four valid roles.
func (r Role) Validate() error {
	if _, ok := getValidRoleStrings()[r]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("actorRole", fmt.Errorf("%d is not a valid role", r))
	}
	return nil
}

// String returns the wire name of the role ("customer", "restaurant_owner",
// "delivery_partner", "admin"), or "unknown" for invalid values.
// Implements fmt.Stringer.
func (r Role) String() string {
	if str, ok := getRoleStrings()[r]; ok {
		return str
	}
	return "unknown"
}

// CanMutate reports whether the role is ever allowed to drive a status
// transition. Customers observe only; which specific edges the remaining
// roles may drive is decided by the order state machine.
func (r Role) CanMutate() bool {
	return r == RestaurantOwner || r == DeliveryPartner || r == Admin
}
