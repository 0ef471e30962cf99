package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderPump pins a pump to an order. The list is ordered by Position and
// immutable after the order is created.
type OrderPump struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_order_pumps_order_pump"`
	PumpID    uuid.UUID `gorm:"column:pump_id;type:uuid;not null;uniqueIndex:idx_order_pumps_order_pump"`
	Code      string    `gorm:"column:code;type:text;not null"`
	Position  int       `gorm:"column:position;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
