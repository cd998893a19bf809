package queries

import (
	"context"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetActiveOrdersQueryHandler retrieves a restaurant's non-terminal orders
// from the database. Delivered and cancelled orders are excluded.
type GetActiveOrdersQueryHandler struct {
	db *gorm.DB
}

// NewGetActiveOrdersQueryHandler creates a handler for active order listings.
// Requires a GORM database connection for query execution.
func NewGetActiveOrdersQueryHandler(db *gorm.DB) GetActiveOrdersQueryHandler {
	return GetActiveOrdersQueryHandler{db: db}
}

// Handle executes the query for the restaurant's active orders.
// Results are sorted by order ID for consistent output. An unknown
// restaurant id yields an empty list, not an error.
func (h GetActiveOrdersQueryHandler) Handle(
	ctx context.Context,
	query GetActiveOrdersQuery,
) ([]GetActiveOrdersQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	orders := make([]GetActiveOrdersQueryResponse, 0)

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			customer_id,
			delivery_partner_id,
			status,
			version
		FROM orders
		WHERE restaurant_id = ? AND status NOT IN (?, ?)
		ORDER BY id
	`, query.RestaurantID().Bytes(), order.Delivered.String(), order.Cancelled.String()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, customerID uuid.UUID
			partnerID      uuid.NullUUID
			statusName     string
			version        int
		)
		if err = rows.Scan(&id, &customerID, &partnerID, &statusName, &version); err != nil {
			return nil, err
		}

		resp := GetActiveOrdersQueryResponse{Version: version}
		if resp.ID, err = kernel.UUIDFromBytes(id[:]); err != nil {
			return nil, err
		}
		if resp.CustomerID, err = kernel.UUIDFromBytes(customerID[:]); err != nil {
			return nil, err
		}
		if partnerID.Valid {
			partner, partnerErr := kernel.UUIDFromBytes(partnerID.UUID[:])
			if partnerErr != nil {
				return nil, partnerErr
			}
			resp.PartnerID = &partner
		}
		if resp.Status, err = order.StatusFromString(statusName); err != nil {
			return nil, err
		}

		orders = append(orders, resp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
