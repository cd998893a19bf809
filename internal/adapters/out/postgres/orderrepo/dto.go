// Package orderrepo provides data transfer objects and mapping functions
// for order persistence. It implements the repository pattern for the order
// aggregate: the orders table holds the current snapshot with its version,
// and order_status_changes holds the append-only history keyed by
// (order_id, seq), where seq runs 1..version.
package orderrepo

import (
	"time"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/google/uuid"
)

// OrderDTO represents the database structure for the order snapshot row.
// Status is stored by wire name so the table reads without a decoder ring.
type OrderDTO struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CustomerID        uuid.UUID  `gorm:"type:uuid;index"`
	RestaurantID      uuid.UUID  `gorm:"type:uuid;index"`
	DeliveryPartnerID *uuid.UUID `gorm:"type:uuid;index"`
	Status            string     `gorm:"type:varchar(32);index"`
	Version           int
}

// TableName specifies the database table name for order snapshots.
func (OrderDTO) TableName() string {
	return "orders"
}

// StatusChangeDTO represents one row of an order's status history.
// The composite primary key (order_id, seq) makes the sequence unique per
// order at the database level.
type StatusChangeDTO struct {
	OrderID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Seq        int       `gorm:"primaryKey"`
	Status     string    `gorm:"type:varchar(32)"`
	ActorRole  string    `gorm:"type:varchar(32)"`
	RecordedAt time.Time
}

// TableName specifies the database table name for status history entries.
func (StatusChangeDTO) TableName() string {
	return "order_status_changes"
}

// fromDomain converts an order aggregate to its snapshot row.
func fromDomain(aggregate *order.Order) OrderDTO {
	var partnerID *uuid.UUID
	if id := aggregate.DeliveryPartner(); id != nil {
		raw := id.Bytes()
		partnerID = &raw
	}

	return OrderDTO{
		ID:                aggregate.ID().Bytes(),
		CustomerID:        aggregate.CustomerID().Bytes(),
		RestaurantID:      aggregate.RestaurantID().Bytes(),
		DeliveryPartnerID: partnerID,
		Status:            aggregate.Status().String(),
		Version:           aggregate.Version(),
	}
}

// historyFromDomain converts the aggregate's history entries with sequence
// numbers above fromSeq, the ones not yet persisted.
func historyFromDomain(aggregate *order.Order, fromSeq int) []StatusChangeDTO {
	history := aggregate.History()
	if fromSeq >= len(history) {
		return nil
	}

	changes := make([]StatusChangeDTO, 0, len(history)-fromSeq)
	for i := fromSeq; i < len(history); i++ {
		changes = append(changes, StatusChangeDTO{
			OrderID:    aggregate.ID().Bytes(),
			Seq:        i + 1,
			Status:     history[i].Status().String(),
			ActorRole:  history[i].ActorRole().String(),
			RecordedAt: history[i].At(),
		})
	}
	return changes
}

// toDomain reconstructs the aggregate from its snapshot row and history,
// re-running the domain invariants on the way in.
func toDomain(dto OrderDTO, changes []StatusChangeDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	customerID, err := kernel.UUIDFromBytes(dto.CustomerID[:])
	if err != nil {
		return nil, err
	}
	restaurantID, err := kernel.UUIDFromBytes(dto.RestaurantID[:])
	if err != nil {
		return nil, err
	}

	var partnerID *kernel.UUID
	if dto.DeliveryPartnerID != nil {
		pID, partnerErr := kernel.UUIDFromBytes((*dto.DeliveryPartnerID)[:])
		if partnerErr != nil {
			return nil, partnerErr
		}
		partnerID = &pID
	}

	status, err := order.StatusFromString(dto.Status)
	if err != nil {
		return nil, err
	}

	history := make([]order.StatusChange, 0, len(changes))
	for _, change := range changes {
		entryStatus, entryErr := order.StatusFromString(change.Status)
		if entryErr != nil {
			return nil, entryErr
		}
		entryRole, entryErr := actor.RoleFromString(change.ActorRole)
		if entryErr != nil {
			return nil, entryErr
		}
		entry, entryErr := order.RestoreStatusChange(entryStatus, entryRole, change.RecordedAt)
		if entryErr != nil {
			return nil, entryErr
		}
		history = append(history, entry)
	}

	return order.RestoreOrder(id, customerID, restaurantID, partnerID, status, history)
}
