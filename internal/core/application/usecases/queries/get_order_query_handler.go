package queries

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetOrderQueryHandler retrieves a single order snapshot from the database.
type GetOrderQueryHandler struct {
	db *gorm.DB
}

// NewGetOrderQueryHandler creates a handler for single order reads.
// Requires a GORM database connection for query execution.
func NewGetOrderQueryHandler(db *gorm.DB) GetOrderQueryHandler {
	return GetOrderQueryHandler{db: db}
}

// Handle executes the query and returns the order snapshot with its history.
// The history read is bounded by the version seen on the order row, so the
// snapshot stays consistent even if a writer commits between the two reads.
// Returns errs.ObjectNotFoundError for unknown order ids.
func (h GetOrderQueryHandler) Handle(
	ctx context.Context,
	query GetOrderQuery,
) (GetOrderQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetOrderQueryResponse{}, err
	}

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			customer_id,
			restaurant_id,
			delivery_partner_id,
			status,
			version
		FROM orders
		WHERE id = ?
	`, query.OrderID().Bytes()).Rows()
	if err != nil {
		return GetOrderQueryResponse{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return GetOrderQueryResponse{}, err
		}
		return GetOrderQueryResponse{}, errs.NewObjectNotFoundError("orderId", query.OrderID())
	}

	var (
		id, customerID, restaurantID uuid.UUID
		partnerID                    uuid.NullUUID
		statusName                   string
		version                      int
	)
	if err = rows.Scan(&id, &customerID, &restaurantID, &partnerID, &statusName, &version); err != nil {
		return GetOrderQueryResponse{}, err
	}

	resp := GetOrderQueryResponse{Version: version}
	if resp.ID, err = kernel.UUIDFromBytes(id[:]); err != nil {
		return GetOrderQueryResponse{}, err
	}
	if resp.CustomerID, err = kernel.UUIDFromBytes(customerID[:]); err != nil {
		return GetOrderQueryResponse{}, err
	}
	if resp.RestaurantID, err = kernel.UUIDFromBytes(restaurantID[:]); err != nil {
		return GetOrderQueryResponse{}, err
	}
	if partnerID.Valid {
		partner, partnerErr := kernel.UUIDFromBytes(partnerID.UUID[:])
		if partnerErr != nil {
			return GetOrderQueryResponse{}, partnerErr
		}
		resp.PartnerID = &partner
	}
	if resp.Status, err = order.StatusFromString(statusName); err != nil {
		return GetOrderQueryResponse{}, err
	}

	resp.History, err = h.readHistory(ctx, query.OrderID(), version)
	if err != nil {
		return GetOrderQueryResponse{}, err
	}

	return resp, nil
}

func (h GetOrderQueryHandler) readHistory(
	ctx context.Context,
	orderID kernel.UUID,
	version int,
) ([]StatusChangeResponse, error) {
	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			status,
			actor_role,
			recorded_at
		FROM order_status_changes
		WHERE order_id = ? AND seq <= ?
		ORDER BY seq
	`, orderID.Bytes(), version).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]StatusChangeResponse, 0, version)
	for rows.Next() {
		var (
			statusName string
			roleName   string
			recordedAt time.Time
		)
		if err = rows.Scan(&statusName, &roleName, &recordedAt); err != nil {
			return nil, err
		}

		var entry StatusChangeResponse
		if entry.Status, err = order.StatusFromString(statusName); err != nil {
			return nil, err
		}
		if entry.ActorRole, err = actor.RoleFromString(roleName); err != nil {
			return nil, err
		}
		entry.RecordedAt = recordedAt
		history = append(history, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return history, nil
}
