package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pumplink/pumplink-backend/api/middleware"
	"github.com/pumplink/pumplink-backend/pkg/enums"
	pkgerrors "github.com/pumplink/pumplink-backend/pkg/errors"
)

// actorIdentity resolves the authenticated caller from request context.
// Custody operations always receive an explicit actor, never raw context.
func actorIdentity(r *http.Request) (uuid.UUID, *uuid.UUID, enums.ActorRole, error) {
	rawUser := middleware.UserIDFromContext(r.Context())
	if rawUser == "" {
		return uuid.Nil, nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return uuid.Nil, nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}

	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor role")
	}

	var pharmacyID *uuid.UUID
	if raw := middleware.PharmacyIDFromContext(r.Context()); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid pharmacy id")
		}
		pharmacyID = &parsed
	}

	return userID, pharmacyID, role, nil
}

// parseUUIDParam extracts and validates a path parameter.
func parseUUIDParam(raw, field string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, field+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return id, nil
}
