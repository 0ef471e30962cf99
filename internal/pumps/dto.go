package pumps

import (
	"time"

	"github.com/google/uuid"

	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/enums"
)

// CreatePumpInput registers a new pump in a pharmacy's fleet.
type CreatePumpInput struct {
	PharmacyID uuid.UUID
	Code       string
	Brand      *string
	Model      *string
	ExpiresAt  *time.Time
}

// PumpFilters narrows pump listings.
type PumpFilters struct {
	PharmacyID *uuid.UUID
	Status     *enums.PumpStatus
}

// PumpList is a cursor page of pumps.
type PumpList struct {
	Pumps      []models.Pump
	NextCursor string
	HasMore    bool
}
