package returns

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a returns repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.DeliveryOrder) (*models.DeliveryOrder, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateOrderPumps(ctx context.Context, pumps []models.OrderPump) error {
	if len(pumps) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&pumps).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.DeliveryOrder, error) {
	var order models.DeliveryOrder
	err := r.db.WithContext(ctx).
		Preload("Pumps", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindActiveReturn locates a non-cancelled return order for the delivery.
// Returns nil without error when none exists.
func (r *repository) FindActiveReturn(ctx context.Context, originalDeliveryID uuid.UUID) (*models.DeliveryOrder, error) {
	var order models.DeliveryOrder
	err := r.db.WithContext(ctx).
		Where("original_delivery_id = ? AND status <> ?", originalDeliveryID, enums.OrderStatusCancelled).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindPumpsByCodes(ctx context.Context, pharmacyID uuid.UUID, codes []string) ([]models.Pump, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var pumps []models.Pump
	err := r.db.WithContext(ctx).
		Where("pharmacy_id = ? AND code IN ?", pharmacyID, codes).
		Find(&pumps).Error
	if err != nil {
		return nil, err
	}
	return pumps, nil
}

func (r *repository) FindPumpsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Pump, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var pumps []models.Pump
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&pumps).Error
	if err != nil {
		return nil, err
	}
	return pumps, nil
}

// FindCollidingCodes reports which of the given codes are already pinned to
// an order other than the excluded one.
func (r *repository) FindCollidingCodes(ctx context.Context, codes []string, excludeOrderID uuid.UUID) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var colliding []string
	err := r.db.WithContext(ctx).
		Model(&models.OrderPump{}).
		Distinct("code").
		Where("code IN ? AND order_id <> ?", codes, excludeOrderID).
		Pluck("code", &colliding).Error
	if err != nil {
		return nil, err
	}
	return colliding, nil
}

func (r *repository) UpdatePumps(ctx context.Context, ids []uuid.UUID, updates map[string]any) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Pump{}).
		Where("id IN ?", ids).
		Updates(updates).Error
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.DeliveryOrder{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}
