package deliveries

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/enums"
	"github.com/pumplink/pumplink-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a deliveries repository bound to the provided DB.
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

func (r *repository) FindOrderPumps(ctx context.Context, orderID uuid.UUID) ([]models.OrderPump, error) {
	var pumps []models.OrderPump
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("position ASC").
		Find(&pumps).Error
	if err != nil {
		return nil, err
	}
	return pumps, nil
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

func (r *repository) FindDriverHeldPumps(ctx context.Context, driverID, pharmacyID uuid.UUID) ([]models.Pump, error) {
	var pumps []models.Pump
	err := r.db.WithContext(ctx).
		Where("status = ? AND current_driver_id = ? AND pharmacy_id = ?", enums.PumpStatusWithDriver, driverID, pharmacyID).
		Find(&pumps).Error
	if err != nil {
		return nil, err
	}
	return pumps, nil
}

func (r *repository) FindClientHeldPumps(ctx context.Context, clientID uuid.UUID) ([]models.Pump, error) {
	var pumps []models.Pump
	err := r.db.WithContext(ctx).
		Where("status = ? AND current_client_id = ?", enums.PumpStatusWithClient, clientID).
		Order("code ASC").
		Find(&pumps).Error
	if err != nil {
		return nil, err
	}
	return pumps, nil
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

func (r *repository) ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&models.DeliveryOrder{})
	if filters.PharmacyID != nil {
		query = query.Where("pharmacy_id = ?", *filters.PharmacyID)
	}
	if filters.ClientID != nil {
		query = query.Where("client_id = ?", *filters.ClientID)
	}
	if filters.DriverID != nil {
		query = query.Where("driver_id = ?", *filters.DriverID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var orders []models.DeliveryOrder
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	list := &OrderList{Orders: orders}
	if len(orders) > limit {
		list.Orders = orders[:limit]
		list.HasMore = true
		last := list.Orders[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}
