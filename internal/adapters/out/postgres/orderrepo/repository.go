package orderrepo

import (
	"context"
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormOrderRepository implements ports.OrderRepository using GORM.
type GormOrderRepository struct {
	db      *gorm.DB
	tracker aggregateTracker
}

// aggregateTracker defines the interface for tracking aggregates.
type aggregateTracker interface {
	TrackAggregate(id kernel.UUID, aggregate any)
}

// NewGormOrderRepository creates a new GORM order repository.
func NewGormOrderRepository(db *gorm.DB, tracker aggregateTracker) *GormOrderRepository {
	return &GormOrderRepository{
		db:      db,
		tracker: tracker,
	}
}

// Add saves a new order with its full history.
func (r *GormOrderRepository) Add(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return err
	}

	if changes := historyFromDomain(aggregate, 0); len(changes) > 0 {
		if err := r.db.WithContext(ctx).Create(&changes).Error; err != nil {
			return err
		}
	}

	r.tracker.TrackAggregate(aggregate.ID(), aggregate)
	return nil
}

// Update saves a mutated order. The snapshot row update is guarded by the
// version the aggregate was loaded at, and exactly the history entries
// appended since then are inserted. If the guard misses because another
// writer advanced the row, Update returns errs.VersionConflictError; the
// per-order lock in the command layer makes that a should-not-happen check
// rather than the primary defense.
func (r *GormOrderRepository) Update(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	result := r.db.WithContext(ctx).Model(&OrderDTO{}).
		Where("id = ? AND version = ?", dto.ID, aggregate.BaseVersion()).
		Updates(map[string]any{
			"status":              dto.Status,
			"version":             dto.Version,
			"delivery_partner_id": dto.DeliveryPartnerID,
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return r.versionConflict(ctx, aggregate)
	}

	if changes := historyFromDomain(aggregate, aggregate.BaseVersion()); len(changes) > 0 {
		if err := r.db.WithContext(ctx).Create(&changes).Error; err != nil {
			return err
		}
	}

	r.tracker.TrackAggregate(aggregate.ID(), aggregate)
	return nil
}

// Get retrieves an order with its full status history.
func (r *GormOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto OrderDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("orderId", id.String())
		}
		return nil, err
	}

	var changes []StatusChangeDTO
	if err := r.db.WithContext(ctx).
		Order("seq").
		Find(&changes, "order_id = ?", id.Bytes()).Error; err != nil {
		return nil, err
	}

	return toDomain(dto, changes)
}

// versionConflict explains a missed update guard: either the row is gone or
// its version moved.
func (r *GormOrderRepository) versionConflict(ctx context.Context, aggregate *order.Order) error {
	var current OrderDTO
	err := r.db.WithContext(ctx).
		Select("version").
		First(&current, "id = ?", aggregate.ID().Bytes()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NewObjectNotFoundError("orderId", aggregate.ID().String())
	}
	if err != nil {
		return err
	}

	return errs.NewVersionConflictError("order", aggregate.BaseVersion(), current.Version)
}
