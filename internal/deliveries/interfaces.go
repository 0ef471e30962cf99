package deliveries

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/pagination"
)

// Repository defines persistence operations for delivery orders and pump custody.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.DeliveryOrder) (*models.DeliveryOrder, error)
	CreateOrderPumps(ctx context.Context, pumps []models.OrderPump) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.DeliveryOrder, error)
	FindOrderPumps(ctx context.Context, orderID uuid.UUID) ([]models.OrderPump, error)
	FindPumpsByCodes(ctx context.Context, pharmacyID uuid.UUID, codes []string) ([]models.Pump, error)
	FindPumpsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Pump, error)
	FindDriverHeldPumps(ctx context.Context, driverID, pharmacyID uuid.UUID) ([]models.Pump, error)
	FindClientHeldPumps(ctx context.Context, clientID uuid.UUID) ([]models.Pump, error)
	UpdatePumps(ctx context.Context, ids []uuid.UUID, updates map[string]any) error
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
}
