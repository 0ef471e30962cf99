package pumps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pumplink/pumplink-backend/pkg/db"
	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/enums"
	pkgerrors "github.com/pumplink/pumplink-backend/pkg/errors"
	"github.com/pumplink/pumplink-backend/pkg/pagination"
)

// Service manages the pump fleet. Lifecycle edits apply only to pumps
// sitting at the pharmacy; anything out on loan moves through orders.
type Service interface {
	Create(ctx context.Context, input CreatePumpInput) (*models.Pump, error)
	Get(ctx context.Context, pumpID uuid.UUID) (*models.Pump, error)
	List(ctx context.Context, params pagination.Params, filters PumpFilters) (*PumpList, error)
	MarkMaintenance(ctx context.Context, pumpID uuid.UUID) error
	MarkExpired(ctx context.Context, pumpID uuid.UUID) error
	Review(ctx context.Context, pumpID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService wires a pumps service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pumps repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreatePumpInput) (*models.Pump, error) {
	if input.PharmacyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacy id required")
	}
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pump code required")
	}

	pump := &models.Pump{
		PharmacyID: input.PharmacyID,
		Code:       code,
		Brand:      input.Brand,
		Model:      input.Model,
		Status:     enums.PumpStatusAvailable,
		ExpiresAt:  input.ExpiresAt,
	}
	created, err := s.repo.Create(ctx, pump)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_pumps_pharmacy_code") {
			return nil, pkgerrors.New(pkgerrors.CodeDuplicateAsset, "pump code already registered for this pharmacy").
				WithDetails(map[string]any{"code": code})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pump")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, pumpID uuid.UUID) (*models.Pump, error) {
	return s.loadPump(ctx, pumpID)
}

func (s *service) List(ctx context.Context, params pagination.Params, filters PumpFilters) (*PumpList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pumps")
	}
	return list, nil
}

func (s *service) MarkMaintenance(ctx context.Context, pumpID uuid.UUID) error {
	return s.transition(ctx, pumpID, map[string]any{
		"status": enums.PumpStatusMaintenance,
	})
}

func (s *service) MarkExpired(ctx context.Context, pumpID uuid.UUID) error {
	return s.transition(ctx, pumpID, map[string]any{
		"status":     enums.PumpStatusExpired,
		"expires_at": time.Now(),
	})
}

func (s *service) Review(ctx context.Context, pumpID uuid.UUID) error {
	return s.transition(ctx, pumpID, map[string]any{
		"last_reviewed_at": time.Now(),
	})
}

// transition applies fleet edits gated on the pump being available.
func (s *service) transition(ctx context.Context, pumpID uuid.UUID, updates map[string]any) error {
	pump, err := s.loadPump(ctx, pumpID)
	if err != nil {
		return err
	}
	if pump.Status != enums.PumpStatusAvailable {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "pump must be available").
			WithDetails(map[string]any{"status": pump.Status})
	}
	if err := s.repo.Update(ctx, pump.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update pump")
	}
	return nil
}

func (s *service) loadPump(ctx context.Context, pumpID uuid.UUID) (*models.Pump, error) {
	if pumpID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pump id required")
	}
	pump, err := s.repo.Find(ctx, pumpID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pump not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pump")
	}
	return pump, nil
}
