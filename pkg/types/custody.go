package types

import "github.com/google/uuid"

// MissingPumpsInfo documents the pumps a client did not hand over on a
// partial return, together with the client-supplied reason.
type MissingPumpsInfo struct {
	Missing []string `json:"missing"`
	Reason  string   `json:"reason"`
}

// FailedReturn records a debt pump the driver could not collect during a
// delivery stop. The pump stays with the client; this is documentation only.
type FailedReturn struct {
	PumpID uuid.UUID `json:"pumpId"`
	Code   string    `json:"code"`
	Reason string    `json:"reason"`
}

// FailedReturns is the jsonb shape stored on a delivery order.
type FailedReturns []FailedReturn
