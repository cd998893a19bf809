package realtime

import (
	"context"
	"fmt"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// OrderAccess carries the identities attached to one order, everything the
// gatekeeper needs to clear a join request against it.
type OrderAccess struct {
	CustomerID   kernel.UUID
	RestaurantID kernel.UUID
	PartnerID    *kernel.UUID
}

// AccessReader supplies the ownership facts the gatekeeper decides with.
// Both methods return errs.ObjectNotFoundError for unknown ids.
type AccessReader interface {
	OrderAccess(ctx context.Context, orderID kernel.UUID) (OrderAccess, error)
	RestaurantOwner(ctx context.Context, restaurantID kernel.UUID) (kernel.UUID, error)
}

// Gatekeeper decides whether an identity may join a scope. The rules are
// strict ownership:
//
//   - admins join anything
//   - customers join the order scopes of their own orders
//   - restaurant owners join their restaurants' scopes and the order scopes
//     of orders placed at them
//   - delivery partners join their own partner scope and the order scopes
//     of orders assigned to them
//
// Everything else is rejected with errs.UnauthorizedRoleError. An unknown
// order or restaurant surfaces as errs.ObjectNotFoundError instead, so
// callers can tell a missing resource from a denied one.
type Gatekeeper struct {
	access AccessReader
}

// NewGatekeeper creates a gatekeeper deciding against the given reader.
func NewGatekeeper(access AccessReader) *Gatekeeper {
	return &Gatekeeper{access: access}
}

// Authorize clears role/actorID to join scope, or explains why not.
func (g *Gatekeeper) Authorize(ctx context.Context, role actor.Role, actorID kernel.UUID, scope Scope) error {
	if err := role.Validate(); err != nil {
		return err
	}
	if err := actorID.Validate(); err != nil {
		return err
	}
	if err := scope.Kind.Validate(); err != nil {
		return err
	}
	if err := scope.ID.Validate(); err != nil {
		return err
	}

	if role == actor.Admin {
		return nil
	}

	allowed, err := g.isAllowed(ctx, role, actorID, scope)
	if err != nil {
		return err
	}
	if !allowed {
		return errs.NewUnauthorizedRoleError(role.String(), fmt.Sprintf("join %s", scope))
	}
	return nil
}

func (g *Gatekeeper) isAllowed(ctx context.Context, role actor.Role, actorID kernel.UUID, scope Scope) (bool, error) {
	switch scope.Kind {
	case ScopeKindOrder:
		return g.isAllowedOrder(ctx, role, actorID, scope.ID)

	case ScopeKindRestaurant:
		if role != actor.RestaurantOwner {
			return false, nil
		}
		owner, err := g.access.RestaurantOwner(ctx, scope.ID)
		if err != nil {
			return false, err
		}
		return owner.IsEqual(actorID), nil

	case ScopeKindPartner:
		return role == actor.DeliveryPartner && scope.ID.IsEqual(actorID), nil
	}

	return false, nil
}

func (g *Gatekeeper) isAllowedOrder(ctx context.Context, role actor.Role, actorID, orderID kernel.UUID) (bool, error) {
	access, err := g.access.OrderAccess(ctx, orderID)
	if err != nil {
		return false, err
	}

	switch role {
	case actor.Customer:
		return access.CustomerID.IsEqual(actorID), nil
	case actor.DeliveryPartner:
		return access.PartnerID != nil && access.PartnerID.IsEqual(actorID), nil
	case actor.RestaurantOwner:
		owner, err := g.access.RestaurantOwner(ctx, access.RestaurantID)
		if err != nil {
			return false, err
		}
		return owner.IsEqual(actorID), nil
	}

	return false, nil
}
