package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pumplink/pumplink-backend/api/responses"
	"github.com/pumplink/pumplink-backend/api/validators"
	"github.com/pumplink/pumplink-backend/internal/pumps"
	"github.com/pumplink/pumplink-backend/pkg/enums"
	pkgerrors "github.com/pumplink/pumplink-backend/pkg/errors"
	"github.com/pumplink/pumplink-backend/pkg/logger"
	"github.com/pumplink/pumplink-backend/pkg/pagination"
)

type createPumpRequest struct {
	Code      string     `json:"code" validate:"required,min=2,max=64"`
	Brand     *string    `json:"brand,omitempty" validate:"omitempty,max=120"`
	Model     *string    `json:"model,omitempty" validate:"omitempty,max=120"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreatePump registers a pump in the caller's pharmacy fleet.
func CreatePump(svc pumps.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, pharmacyID, _, err := actorIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if pharmacyID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "pharmacy context missing"))
			return
		}

		var req createPumpRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pump, err := svc.Create(r.Context(), pumps.CreatePumpInput{
			PharmacyID: *pharmacyID,
			Code:       req.Code,
			Brand:      req.Brand,
			Model:      req.Model,
			ExpiresAt:  req.ExpiresAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, pump)
	}
}

// GetPump returns a single pump by id.
func GetPump(svc pumps.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pumpID, err := parseUUIDParam(chi.URLParam(r, "pumpID"), "pump id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pump, err := svc.Get(r.Context(), pumpID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pump)
	}
}

// ListPumps pages the caller's pharmacy fleet with optional status filter.
func ListPumps(svc pumps.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, pharmacyID, _, err := actorIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := pumps.PumpFilters{PharmacyID: pharmacyID}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParsePumpStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
				return
			}
			filters.Status = &status
		}

		list, err := svc.List(r.Context(), pagination.Params{
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

// PumpMaintenance pulls an available pump out of rotation.
func PumpMaintenance(svc pumps.Service, logg *logger.Logger) http.HandlerFunc {
	return pumpTransition(logg, func(r *http.Request, pumpID uuid.UUID) error {
		return svc.MarkMaintenance(r.Context(), pumpID)
	})
}

// PumpExpire retires a pump permanently.
func PumpExpire(svc pumps.Service, logg *logger.Logger) http.HandlerFunc {
	return pumpTransition(logg, func(r *http.Request, pumpID uuid.UUID) error {
		return svc.MarkExpired(r.Context(), pumpID)
	})
}

// PumpReview returns a maintenance pump to the available pool.
func PumpReview(svc pumps.Service, logg *logger.Logger) http.HandlerFunc {
	return pumpTransition(logg, func(r *http.Request, pumpID uuid.UUID) error {
		return svc.Review(r.Context(), pumpID)
	})
}

func pumpTransition(logg *logger.Logger, run func(*http.Request, uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pumpID, err := parseUUIDParam(chi.URLParam(r, "pumpID"), "pump id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := run(r, pumpID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
