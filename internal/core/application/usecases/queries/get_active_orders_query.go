package queries

import (
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/guard"
)

var ErrGetActiveOrdersQueryIsNotConstructed = errors.New(
	"GetActiveOrdersQuery must be created via NewGetActiveOrdersQuery constructor",
)

// GetActiveOrdersQuery retrieves all non-terminal orders of one restaurant,
// the working set a restaurant dashboard shows.
type GetActiveOrdersQuery struct { //nolint:recvcheck //using for validation
	restaurantID kernel.UUID

	guard guard.ConstructorGuard
}

// NewGetActiveOrdersQuery creates a query for a restaurant's active orders.
func NewGetActiveOrdersQuery(restaurantID kernel.UUID) (GetActiveOrdersQuery, error) {
	if err := restaurantID.Validate(); err != nil {
		return GetActiveOrdersQuery{}, err
	}

	return GetActiveOrdersQuery{
		restaurantID: restaurantID,
		guard:        guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
// Returns ErrGetActiveOrdersQueryIsNotConstructed if validation fails.
func (q GetActiveOrdersQuery) Validate() error {
	return q.guard.Validate(ErrGetActiveOrdersQueryIsNotConstructed)
}

// RestaurantID returns the identifier of the restaurant being listed.
func (q GetActiveOrdersQuery) RestaurantID() kernel.UUID {
	return q.restaurantID
}

// GetActiveOrdersQueryResponse represents one active order of a restaurant.
type GetActiveOrdersQueryResponse struct {
	ID         kernel.UUID
	CustomerID kernel.UUID
	PartnerID  *kernel.UUID
	Status     order.Status
	Version    int
}
