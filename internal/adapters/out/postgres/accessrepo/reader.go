// Package accessrepo provides the ownership reads behind the realtime
// gatekeeper: who placed an order, which restaurant it belongs to, who owns
// that restaurant, and which partner is assigned. Reads run outside any
// transaction; join decisions tolerate slightly stale data.
package accessrepo

import (
	"context"
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/realtime"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RestaurantDTO represents the restaurant ownership row.
type RestaurantDTO struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID uuid.UUID `gorm:"type:uuid;index"`
}

// TableName specifies the database table name for restaurants.
func (RestaurantDTO) TableName() string {
	return "restaurants"
}

// orderAccessRow is the projection of the orders table the gatekeeper needs.
type orderAccessRow struct {
	CustomerID        uuid.UUID
	RestaurantID      uuid.UUID
	DeliveryPartnerID *uuid.UUID
}

// GormAccessReader implements realtime.AccessReader using GORM.
type GormAccessReader struct {
	db *gorm.DB
}

// NewGormAccessReader creates an access reader on the given connection.
func NewGormAccessReader(db *gorm.DB) *GormAccessReader {
	return &GormAccessReader{db: db}
}

// OrderAccess returns the identities attached to the order.
// Returns errs.ObjectNotFoundError for unknown order ids.
func (r *GormAccessReader) OrderAccess(ctx context.Context, orderID kernel.UUID) (realtime.OrderAccess, error) {
	if err := orderID.Validate(); err != nil {
		return realtime.OrderAccess{}, err
	}

	var row orderAccessRow
	err := r.db.WithContext(ctx).
		Table("orders").
		Select("customer_id", "restaurant_id", "delivery_partner_id").
		Where("id = ?", orderID.Bytes()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return realtime.OrderAccess{}, errs.NewObjectNotFoundError("orderId", orderID.String())
	}
	if err != nil {
		return realtime.OrderAccess{}, err
	}

	access := realtime.OrderAccess{}
	if access.CustomerID, err = kernel.UUIDFromBytes(row.CustomerID[:]); err != nil {
		return realtime.OrderAccess{}, err
	}
	if access.RestaurantID, err = kernel.UUIDFromBytes(row.RestaurantID[:]); err != nil {
		return realtime.OrderAccess{}, err
	}
	if row.DeliveryPartnerID != nil {
		partnerID, partnerErr := kernel.UUIDFromBytes((*row.DeliveryPartnerID)[:])
		if partnerErr != nil {
			return realtime.OrderAccess{}, partnerErr
		}
		access.PartnerID = &partnerID
	}

	return access, nil
}

// RestaurantOwner returns the owner of the restaurant.
// Returns errs.ObjectNotFoundError for unknown restaurant ids.
func (r *GormAccessReader) RestaurantOwner(ctx context.Context, restaurantID kernel.UUID) (kernel.UUID, error) {
	if err := restaurantID.Validate(); err != nil {
		return kernel.UUID{}, err
	}

	var dto RestaurantDTO
	err := r.db.WithContext(ctx).First(&dto, "id = ?", restaurantID.Bytes()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return kernel.UUID{}, errs.NewObjectNotFoundError("restaurantId", restaurantID.String())
	}
	if err != nil {
		return kernel.UUID{}, err
	}

	return kernel.UUIDFromBytes(dto.OwnerID[:])
}
