package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/pumplink/pumplink-backend/pkg/enums"
)

// OrderCreatedEvent signals a new delivery order was opened by pharmacy staff.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	PharmacyID uuid.UUID `json:"pharmacy_id"`
	ClientID   uuid.UUID `json:"client_id"`
	PumpCodes  []string  `json:"pump_codes"`
}

// OrderPickedUpEvent is emitted when a driver takes custody of the order pumps.
type OrderPickedUpEvent struct {
	OrderID             uuid.UUID   `json:"order_id"`
	PharmacyID          uuid.UUID   `json:"pharmacy_id"`
	DriverID            uuid.UUID   `json:"driver_id"`
	AutoReturnedPumpIDs []uuid.UUID `json:"auto_returned_pump_ids,omitempty"`
}

// OrderDeliveredEvent carries the debt outcome recorded at the client's door.
// The worker sends the signature receipt email off this event.
type OrderDeliveredEvent struct {
	OrderID          uuid.UUID   `json:"order_id"`
	PharmacyID       uuid.UUID   `json:"pharmacy_id"`
	ClientID         uuid.UUID   `json:"client_id"`
	DriverID         uuid.UUID   `json:"driver_id"`
	CollectedPumpIDs []uuid.UUID `json:"collected_pump_ids,omitempty"`
	MissingPumpIDs   []uuid.UUID `json:"missing_pump_ids,omitempty"`
	DeliveredAt      time.Time   `json:"delivered_at"`
}

// OrderCanceledEvent is emitted whenever an order is cancelled pre-delivery.
type OrderCanceledEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	PharmacyID uuid.UUID         `json:"pharmacy_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	CanceledAt time.Time         `json:"canceled_at"`
}

// ReturnRequestedEvent tells pharmacy staff and drivers a pickup is wanted.
type ReturnRequestedEvent struct {
	ReturnOrderID      uuid.UUID `json:"return_order_id"`
	OriginalDeliveryID uuid.UUID `json:"original_delivery_id"`
	PharmacyID         uuid.UUID `json:"pharmacy_id"`
	ClientID           uuid.UUID `json:"client_id"`
	PumpCodes          []string  `json:"pump_codes"`
	MissingReason      string    `json:"missing_reason,omitempty"`
}

// ReturnPickedUpEvent is emitted when a driver collects the return pumps.
type ReturnPickedUpEvent struct {
	ReturnOrderID uuid.UUID `json:"return_order_id"`
	PharmacyID    uuid.UUID `json:"pharmacy_id"`
	DriverID      uuid.UUID `json:"driver_id"`
}

// ReturnCompletedEvent is emitted when the pharmacy confirms receipt.
type ReturnCompletedEvent struct {
	ReturnOrderID uuid.UUID  `json:"return_order_id"`
	PharmacyID    uuid.UUID  `json:"pharmacy_id"`
	ClientID      uuid.UUID  `json:"client_id"`
	DriverID      *uuid.UUID `json:"driver_id,omitempty"`
	ReceivedAt    time.Time  `json:"received_at"`
}

// UserRegisteredEvent triggers the best-effort PIN email.
type UserRegisteredEvent struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   enums.ActorRole `json:"role"`
	Name   string          `json:"name"`
	Phone  string          `json:"phone"`
	Email  *string         `json:"email,omitempty"`
	PIN    string          `json:"pin"`
}
