package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pumplink/pumplink-backend/pkg/db/models"
)

// Repository reads pump custody state for ledger queries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindClientHeldPumps(ctx context.Context, clientID uuid.UUID) ([]models.Pump, error)
	FindDriverHeldPumps(ctx context.Context, driverID uuid.UUID) ([]models.Pump, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindClientHeldPumps(ctx context.Context, clientID uuid.UUID) ([]models.Pump, error) {
	var pumps []models.Pump
	if err := r.db.WithContext(ctx).
		Where("status = ? AND current_client_id = ?", "with_client", clientID).
		Order("code ASC").
		Find(&pumps).Error; err != nil {
		return nil, err
	}
	return pumps, nil
}

func (r *repository) FindDriverHeldPumps(ctx context.Context, driverID uuid.UUID) ([]models.Pump, error) {
	var pumps []models.Pump
	if err := r.db.WithContext(ctx).
		Where("status = ? AND current_driver_id = ?", "with_driver", driverID).
		Order("code ASC").
		Find(&pumps).Error; err != nil {
		return nil, err
	}
	return pumps, nil
}
