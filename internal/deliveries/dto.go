package deliveries

import (
	"github.com/google/uuid"

	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/enums"
)

// Actor identifies who is performing an operation. Identity always comes
// from explicit inputs, never ambient state.
type Actor struct {
	UserID     uuid.UUID
	PharmacyID *uuid.UUID
	Role       enums.ActorRole
}

// CreateDeliveryInput carries everything needed to open a delivery order.
type CreateDeliveryInput struct {
	PharmacyID uuid.UUID
	ClientID   uuid.UUID
	PumpCodes  []string
	Actor      Actor
}

// MarkPickedUpInput moves a created order into driver custody.
type MarkPickedUpInput struct {
	OrderID           uuid.UUID
	DriverID          uuid.UUID
	PharmacySignature []byte
	DriverSignature   []byte
	Actor             Actor
}

// DebtResolutionInput records the outcome for one outstanding debt pump.
type DebtResolutionInput struct {
	PumpID     uuid.UUID
	Resolution enums.DebtResolution
	Reason     string
}

// MarkDeliveredInput hands the order pumps to the client and settles debts.
type MarkDeliveredInput struct {
	OrderID         uuid.UUID
	DriverSignature []byte
	ClientSignature []byte
	DebtResolutions []DebtResolutionInput
	Actor           Actor
}

// ConfirmClientReceiptInput acknowledges delivery on the client side.
type ConfirmClientReceiptInput struct {
	OrderID uuid.UUID
	Actor   Actor
}

// CancelInput aborts an order that has not reached the client.
type CancelInput struct {
	OrderID uuid.UUID
	Actor   Actor
}

// OrderFilters narrows order listings.
type OrderFilters struct {
	PharmacyID *uuid.UUID
	ClientID   *uuid.UUID
	DriverID   *uuid.UUID
	Status     *enums.OrderStatus
	Type       *enums.OrderType
}

// OrderList is a cursor page of orders.
type OrderList struct {
	Orders     []models.DeliveryOrder
	NextCursor string
	HasMore    bool
}
