package queries

import (
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrGetStaleProcessingOrdersQueryIsNotConstructed = errors.New(
	"GetStaleProcessingOrdersQuery must be created via NewGetStaleProcessingOrdersQuery constructor",
)

// GetStaleProcessingOrdersQuery retrieves orders that have been sitting in
// "processing" longer than a threshold, meaning no restaurant has reacted to
// them. It feeds the background sweep that cancels abandoned orders.
type GetStaleProcessingOrdersQuery struct { //nolint:recvcheck //using for validation
	olderThan time.Duration

	guard guard.ConstructorGuard
}

// NewGetStaleProcessingOrdersQuery creates a query for abandoned orders.
// olderThan must be positive.
func NewGetStaleProcessingOrdersQuery(olderThan time.Duration) (GetStaleProcessingOrdersQuery, error) {
	if olderThan <= 0 {
		return GetStaleProcessingOrdersQuery{}, errs.NewValueIsInvalidError("olderThan")
	}

	return GetStaleProcessingOrdersQuery{
		olderThan: olderThan,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
// Returns ErrGetStaleProcessingOrdersQueryIsNotConstructed if validation fails.
func (q GetStaleProcessingOrdersQuery) Validate() error {
	return q.guard.Validate(ErrGetStaleProcessingOrdersQueryIsNotConstructed)
}

// OlderThan returns the staleness threshold.
func (q GetStaleProcessingOrdersQuery) OlderThan() time.Duration {
	return q.olderThan
}

// GetStaleProcessingOrdersQueryResponse represents one abandoned order.
type GetStaleProcessingOrdersQueryResponse struct {
	ID       kernel.UUID
	PlacedAt time.Time
}
