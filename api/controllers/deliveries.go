package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pumplink/pumplink-backend/api/responses"
	"github.com/pumplink/pumplink-backend/api/validators"
	"github.com/pumplink/pumplink-backend/internal/deliveries"
	"github.com/pumplink/pumplink-backend/pkg/enums"
	pkgerrors "github.com/pumplink/pumplink-backend/pkg/errors"
	"github.com/pumplink/pumplink-backend/pkg/logger"
	"github.com/pumplink/pumplink-backend/pkg/pagination"
)

type createDeliveryRequest struct {
	ClientID  uuid.UUID `json:"client_id" validate:"required"`
	PumpCodes []string  `json:"pump_codes" validate:"required,min=1,dive,min=2,max=64"`
}

type pickupRequest struct {
	PharmacySignature []byte `json:"pharmacy_signature" validate:"required"`
	DriverSignature   []byte `json:"driver_signature" validate:"required"`
}

type debtResolutionRequest struct {
	PumpID     uuid.UUID `json:"pump_id" validate:"required"`
	Resolution string    `json:"resolution" validate:"required"`
	Reason     string    `json:"reason,omitempty" validate:"max=500"`
}

type deliverRequest struct {
	DriverSignature []byte                  `json:"driver_signature" validate:"required"`
	ClientSignature []byte                  `json:"client_signature" validate:"required"`
	DebtResolutions []debtResolutionRequest `json:"debt_resolutions,omitempty" validate:"dive"`
}

// CreateDelivery opens a delivery order and reserves the selected pumps.
func CreateDelivery(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, pharmacyID, role, err := actorIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if pharmacyID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "pharmacy context missing"))
			return
		}

		var req createDeliveryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateDelivery(r.Context(), deliveries.CreateDeliveryInput{
			PharmacyID: *pharmacyID,
			ClientID:   req.ClientID,
			PumpCodes:  req.PumpCodes,
			Actor:      deliveries.Actor{UserID: userID, PharmacyID: pharmacyID, Role: role},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ListDeliveries pages orders scoped to the caller's perspective. Staff
// see their pharmacy, drivers their assignments, clients their own orders.
func ListDeliveries(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, pharmacyID, role, err := actorIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters deliveries.OrderFilters
		switch role {
		case enums.ActorRolePharmacyStaff:
			filters.PharmacyID = pharmacyID
		case enums.ActorRoleDriver:
			filters.DriverID = &userID
		case enums.ActorRoleClient:
			filters.ClientID = &userID
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseOrderStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			orderType, parseErr := enums.ParseOrderType(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid type filter"))
				return
			}
			filters.Type = &orderType
		}

		list, err := svc.ListOrders(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// DeliveryDetail returns one order with its pumps and transition log.
func DeliveryDetail(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseUUIDParam(chi.URLParam(r, "orderID"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// DeliveryPickup moves a created order into the driver's custody. Both
// the pharmacy and driver signatures are required at handoff.
func DeliveryPickup(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req pickupRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.MarkPickedUp(r.Context(), deliveries.MarkPickedUpInput{
			OrderID:           orderID,
			DriverID:          userID,
			PharmacySignature: req.PharmacySignature,
			DriverSignature:   req.DriverSignature,
			Actor:             deliveries.Actor{UserID: userID, PharmacyID: pharmacyID, Role: role},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "picked_up"})
	}
}

// DeliveryDeliver hands the pumps to the client and settles any debts
// found at the door.
func DeliveryDeliver(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req deliverRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := deliveries.MarkDeliveredInput{
			OrderID:         orderID,
			DriverSignature: req.DriverSignature,
			ClientSignature: req.ClientSignature,
			Actor:           deliveries.Actor{UserID: userID, PharmacyID: pharmacyID, Role: role},
		}
		for _, res := range req.DebtResolutions {
			resolution, parseErr := enums.ParseDebtResolution(res.Resolution)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid debt resolution"))
				return
			}
			input.DebtResolutions = append(input.DebtResolutions, deliveries.DebtResolutionInput{
				PumpID:     res.PumpID,
				Resolution: resolution,
				Reason:     res.Reason,
			})
		}

		if err := svc.MarkDelivered(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "delivered"})
	}
}

// DeliveryConfirm acknowledges receipt on the client side.
func DeliveryConfirm(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
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

		err = svc.ConfirmClientReceipt(r.Context(), deliveries.ConfirmClientReceiptInput{
			OrderID: orderID,
			Actor:   deliveries.Actor{UserID: userID, PharmacyID: pharmacyID, Role: role},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "received_by_client"})
	}
}

// DeliveryCancel aborts an order that has not reached the client.
func DeliveryCancel(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
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

		err = svc.Cancel(r.Context(), deliveries.CancelInput{
			OrderID: orderID,
			Actor:   deliveries.Actor{UserID: userID, PharmacyID: pharmacyID, Role: role},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}
