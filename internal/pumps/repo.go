package pumps

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pumps repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, pump *models.Pump) (*models.Pump, error) {
	if err := r.db.WithContext(ctx).Create(pump).Error; err != nil {
		return nil, err
	}
	return pump, nil
}

func (r *repository) Find(ctx context.Context, pumpID uuid.UUID) (*models.Pump, error) {
	var pump models.Pump
	err := r.db.WithContext(ctx).
		Where("id = ?", pumpID).
		First(&pump).Error
	if err != nil {
		return nil, err
	}
	return &pump, nil
}

func (r *repository) Update(ctx context.Context, pumpID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Pump{}).
		Where("id = ?", pumpID).
		Updates(updates).Error
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters PumpFilters) (*PumpList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&models.Pump{})
	if filters.PharmacyID != nil {
		query = query.Where("pharmacy_id = ?", *filters.PharmacyID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var pumps []models.Pump
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&pumps).Error
	if err != nil {
		return nil, err
	}

	list := &PumpList{Pumps: pumps}
	if len(pumps) > limit {
		list.Pumps = pumps[:limit]
		list.HasMore = true
		last := list.Pumps[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}
