package returns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pumplink/pumplink-backend/pkg/db/models"
)

// Repository defines persistence operations for the return leg.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.DeliveryOrder) (*models.DeliveryOrder, error)
	CreateOrderPumps(ctx context.Context, pumps []models.OrderPump) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.DeliveryOrder, error)
	FindActiveReturn(ctx context.Context, originalDeliveryID uuid.UUID) (*models.DeliveryOrder, error)
	FindPumpsByCodes(ctx context.Context, pharmacyID uuid.UUID, codes []string) ([]models.Pump, error)
	FindPumpsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Pump, error)
	FindCollidingCodes(ctx context.Context, codes []string, excludeOrderID uuid.UUID) ([]string, error)
	UpdatePumps(ctx context.Context, ids []uuid.UUID, updates map[string]any) error
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}
