package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pumplink/pumplink-backend/pkg/enums"
)

// Pump is a rentable infusion pump owned by a pharmacy. At most one of
// CurrentDriverID/CurrentClientID is set, consistent with Status.
type Pump struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PharmacyID      uuid.UUID        `gorm:"column:pharmacy_id;type:uuid;not null;uniqueIndex:idx_pumps_pharmacy_code"`
	Code            string           `gorm:"column:code;type:text;not null;uniqueIndex:idx_pumps_pharmacy_code"`
	Brand           *string          `gorm:"column:brand;type:text"`
	Model           *string          `gorm:"column:model;type:text"`
	Status          enums.PumpStatus `gorm:"column:status;type:text;not null;default:'available'"`
	CurrentDriverID *uuid.UUID       `gorm:"column:current_driver_id;type:uuid"`
	CurrentClientID *uuid.UUID       `gorm:"column:current_client_id;type:uuid"`
	ExpiresAt       *time.Time       `gorm:"column:expires_at"`
	LastReviewedAt  *time.Time       `gorm:"column:last_reviewed_at"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
