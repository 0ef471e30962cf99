package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pumplink/pumplink-backend/api/responses"
	"github.com/pumplink/pumplink-backend/api/validators"
	"github.com/pumplink/pumplink-backend/internal/users"
	pkgerrors "github.com/pumplink/pumplink-backend/pkg/errors"
	"github.com/pumplink/pumplink-backend/pkg/logger"
)

type registerRequest struct {
	Name  string  `json:"name" validate:"required,min=2,max=120"`
	Phone string  `json:"phone" validate:"required,min=7,max=20"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

// RegisterClient creates a client account scoped to the staff's pharmacy.
func RegisterClient(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return register(logg, func(r *http.Request, input users.RegisterInput) (any, error) {
		return svc.RegisterClient(r.Context(), input)
	})
}

// RegisterDriver creates a driver account scoped to the staff's pharmacy.
func RegisterDriver(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return register(logg, func(r *http.Request, input users.RegisterInput) (any, error) {
		return svc.RegisterDriver(r.Context(), input)
	})
}

// RegisterStaff creates another staff account for the same pharmacy.
func RegisterStaff(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return register(logg, func(r *http.Request, input users.RegisterInput) (any, error) {
		return svc.RegisterStaff(r.Context(), input)
	})
}

func register(logg *logger.Logger, run func(*http.Request, users.RegisterInput) (any, error)) http.HandlerFunc {
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

		var req registerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := run(r, users.RegisterInput{
			Name:       req.Name,
			Phone:      req.Phone,
			Email:      req.Email,
			PharmacyID: pharmacyID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// GetUser returns one user by id.
func GetUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := parseUUIDParam(chi.URLParam(r, "userID"), "user id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
