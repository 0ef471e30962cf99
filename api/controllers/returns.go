package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pumplink/pumplink-backend/api/responses"
	"github.com/pumplink/pumplink-backend/api/validators"
	"github.com/pumplink/pumplink-backend/internal/returns"
	"github.com/pumplink/pumplink-backend/pkg/logger"
)

type requestReturnRequest struct {
	OriginalDeliveryID uuid.UUID `json:"original_delivery_id" validate:"required"`
	SelectedPumpCodes  []string  `json:"selected_pump_codes" validate:"required,min=1,dive,min=2,max=64"`
	ExtraPumpCodes     []string  `json:"extra_pump_codes,omitempty" validate:"dive,min=2,max=64"`
	MissingReason      string    `json:"missing_reason,omitempty" validate:"max=500"`
}

type returnPickupRequest struct {
	DriverSignature []byte `json:"driver_signature" validate:"required"`
}

// RequestReturn opens a return order against a completed delivery.
func RequestReturn(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, pharmacyID, role, err := actorIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req requestReturnRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RequestReturn(r.Context(), returns.RequestReturnInput{
			OriginalDeliveryID: req.OriginalDeliveryID,
			SelectedPumpCodes:  req.SelectedPumpCodes,
			ExtraPumpCodes:     req.ExtraPumpCodes,
			MissingReason:      req.MissingReason,
			Actor:              returns.Actor{UserID: userID, PharmacyID: pharmacyID, Role: role},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ReturnPickup moves a requested return into the driver's custody.
func ReturnPickup(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, pharmacyID, role, err := actorIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseUUIDParam(chi.URLParam(r, "orderID"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req returnPickupRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.MarkReturnPickedUp(r.Context(), returns.MarkReturnPickedUpInput{
			ReturnOrderID:   orderID,
			DriverID:        userID,
			DriverSignature: req.DriverSignature,
			Actor:           returns.Actor{UserID: userID, PharmacyID: pharmacyID, Role: role},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "picked_up"})
	}
}

// ReturnConfirm closes the return on the pharmacy side and releases the
// pumps back to the available pool.
func ReturnConfirm(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, pharmacyID, role, err := actorIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseUUIDParam(chi.URLParam(r, "orderID"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.ConfirmPharmacyReceipt(r.Context(), returns.ConfirmPharmacyReceiptInput{
			ReturnOrderID: orderID,
			Actor:         returns.Actor{UserID: userID, PharmacyID: pharmacyID, Role: role},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "received_by_pharmacy"})
	}
}
