package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pumplink/pumplink-backend/pkg/enums"
	"github.com/pumplink/pumplink-backend/pkg/types"
)

// DeliveryOrder covers both outbound delivery legs and return legs.
// Signatures are opaque byte blobs captured on the courier device.
type DeliveryOrder struct {
	ID                 uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type               enums.OrderType         `gorm:"column:type;type:text;not null;default:'delivery'"`
	PharmacyID         uuid.UUID               `gorm:"column:pharmacy_id;type:uuid;not null"`
	ClientID           uuid.UUID               `gorm:"column:client_id;type:uuid;not null"`
	DriverID           *uuid.UUID              `gorm:"column:driver_id;type:uuid"`
	Status             enums.OrderStatus       `gorm:"column:status;type:text;not null;default:'created'"`
	PharmacySignature  []byte                  `gorm:"column:pharmacy_signature;type:bytea"`
	DriverSignature    []byte                  `gorm:"column:driver_signature;type:bytea"`
	ClientSignature    []byte                  `gorm:"column:client_signature;type:bytea"`
	OriginalDeliveryID *uuid.UUID              `gorm:"column:original_delivery_id;type:uuid"`
	MissingPumpsInfo   *types.MissingPumpsInfo `gorm:"column:missing_pumps_info;type:jsonb;serializer:json"`
	FailedReturns      types.FailedReturns     `gorm:"column:failed_returns;type:jsonb;serializer:json"`
	Pumps              []OrderPump             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PickedUpAt         *time.Time              `gorm:"column:picked_up_at"`
	DeliveredAt        *time.Time              `gorm:"column:delivered_at"`
	ClientConfirmedAt  *time.Time              `gorm:"column:client_confirmed_at"`
	ReceivedAt         *time.Time              `gorm:"column:received_at"`
	CanceledAt         *time.Time              `gorm:"column:canceled_at"`
	CreatedAt          time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
