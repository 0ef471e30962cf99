package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pumplink/pumplink-backend/pkg/db/models"
	pkgerrors "github.com/pumplink/pumplink-backend/pkg/errors"
)

// Service answers custody questions from current pump state. Debts and
// holdings are always recomputed from the pumps table, never cached.
type Service interface {
	OutstandingDebts(ctx context.Context, clientID uuid.UUID) ([]models.Pump, error)
	DriverHoldings(ctx context.Context, driverID uuid.UUID) ([]models.Pump, error)
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) OutstandingDebts(ctx context.Context, clientID uuid.UUID) ([]models.Pump, error) {
	if clientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	pumps, err := s.repo.FindClientHeldPumps(ctx, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client debts")
	}
	return pumps, nil
}

func (s *service) DriverHoldings(ctx context.Context, driverID uuid.UUID) ([]models.Pump, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	pumps, err := s.repo.FindDriverHeldPumps(ctx, driverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver holdings")
	}
	return pumps, nil
}
