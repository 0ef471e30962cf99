package returns

import (
	"github.com/google/uuid"

	"github.com/pumplink/pumplink-backend/pkg/enums"
)

// Actor identifies who is performing an operation.
type Actor struct {
	UserID     uuid.UUID
	PharmacyID *uuid.UUID
	Role       enums.ActorRole
}

// RequestReturnInput opens a return order against a completed delivery.
// SelectedPumpCodes picks pumps from the original delivery; ExtraPumpCodes
// adds pumps the client holds from elsewhere. MissingReason is mandatory
// when the selection leaves original pumps behind.
type RequestReturnInput struct {
	OriginalDeliveryID uuid.UUID
	SelectedPumpCodes  []string
	ExtraPumpCodes     []string
	MissingReason      string
	Actor              Actor
}

// MarkReturnPickedUpInput moves a requested return into driver custody.
type MarkReturnPickedUpInput struct {
	ReturnOrderID   uuid.UUID
	DriverID        uuid.UUID
	DriverSignature []byte
	Actor           Actor
}

// ConfirmPharmacyReceiptInput closes the return on the pharmacy side.
type ConfirmPharmacyReceiptInput struct {
	ReturnOrderID uuid.UUID
	Actor         Actor
}
