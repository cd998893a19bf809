package queries

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetStaleProcessingOrdersQueryHandler finds orders stuck in "processing".
// An order's age is measured from its first history entry, the moment the
// customer placed it.
type GetStaleProcessingOrdersQueryHandler struct {
	db *gorm.DB
}

// NewGetStaleProcessingOrdersQueryHandler creates a handler for the
// abandoned order sweep. Requires a GORM database connection.
func NewGetStaleProcessingOrdersQueryHandler(db *gorm.DB) GetStaleProcessingOrdersQueryHandler {
	return GetStaleProcessingOrdersQueryHandler{db: db}
}

// Handle executes the query and returns orders still in "processing" that
// were placed before now minus the threshold, oldest first.
func (h GetStaleProcessingOrdersQueryHandler) Handle(
	ctx context.Context,
	query GetStaleProcessingOrdersQuery,
) ([]GetStaleProcessingOrdersQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-query.OlderThan())
	orders := make([]GetStaleProcessingOrdersQueryResponse, 0)

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			o.id,
			c.recorded_at
		FROM orders o
		JOIN order_status_changes c ON c.order_id = o.id AND c.seq = 1
		WHERE o.status = ? AND c.recorded_at < ?
		ORDER BY c.recorded_at
	`, order.Processing.String(), cutoff).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       uuid.UUID
			placedAt time.Time
		)
		if err = rows.Scan(&id, &placedAt); err != nil {
			return nil, err
		}

		var resp GetStaleProcessingOrdersQueryResponse
		if resp.ID, err = kernel.UUIDFromBytes(id[:]); err != nil {
			return nil, err
		}
		resp.PlacedAt = placedAt
		orders = append(orders, resp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
