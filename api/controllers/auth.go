package controllers

import (
	"net"
	"net/http"
	"strings"

	"github.com/pumplink/pumplink-backend/api/responses"
	"github.com/pumplink/pumplink-backend/api/validators"
	"github.com/pumplink/pumplink-backend/internal/users"
	pkgerrors "github.com/pumplink/pumplink-backend/pkg/errors"
	"github.com/pumplink/pumplink-backend/pkg/logger"
)

type loginRequest struct {
	Phone string `json:"phone" validate:"required"`
	PIN   string `json:"pin" validate:"required,min=4,max=12"`
}

// Login authenticates by phone and PIN and returns an access token.
func Login(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		var req loginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.LoginWithPIN(r.Context(), users.LoginInput{
			Phone:    req.Phone,
			PIN:      req.PIN,
			ClientIP: requestIP(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"access_token": result.AccessToken,
			"user":         result.User,
		})
	}
}

func requestIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
