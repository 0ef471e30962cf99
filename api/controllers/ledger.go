package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pumplink/pumplink-backend/api/responses"
	"github.com/pumplink/pumplink-backend/internal/ledger"
	"github.com/pumplink/pumplink-backend/pkg/logger"
)

// ClientDebts lists the pumps a client still holds, recomputed from
// current pump custody rather than stored balances.
func ClientDebts(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, err := parseUUIDParam(chi.URLParam(r, "clientID"), "client id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pumps, err := svc.OutstandingDebts(r.Context(), clientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"pumps": pumps, "count": len(pumps)})
	}
}

// DriverHoldings lists the pumps currently in a driver's custody.
func DriverHoldings(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, err := parseUUIDParam(chi.URLParam(r, "driverID"), "driver id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pumps, err := svc.DriverHoldings(r.Context(), driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"pumps": pumps, "count": len(pumps)})
	}
}
