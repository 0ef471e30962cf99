package pumps

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/pagination"
)

// Repository defines persistence operations for the pump fleet.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, pump *models.Pump) (*models.Pump, error)
	Find(ctx context.Context, pumpID uuid.UUID) (*models.Pump, error)
	Update(ctx context.Context, pumpID uuid.UUID, updates map[string]any) error
	List(ctx context.Context, params pagination.Params, filters PumpFilters) (*PumpList, error)
}
