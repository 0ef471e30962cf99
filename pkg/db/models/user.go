package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pumplink/pumplink-backend/pkg/enums"
)

// User is any actor in the custody chain. Staff and drivers belong to a
// pharmacy; clients do not.
type User struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Role       enums.ActorRole `gorm:"column:role;type:text;not null"`
	Name       string          `gorm:"column:name;type:text;not null"`
	Phone      string          `gorm:"column:phone;type:text;not null;uniqueIndex"`
	Email      *string         `gorm:"column:email;type:text"`
	PINHash    string          `gorm:"column:pin_hash;type:text;not null"`
	PharmacyID *uuid.UUID      `gorm:"column:pharmacy_id;type:uuid"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
