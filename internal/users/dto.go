package users

import (
	"github.com/google/uuid"

	"github.com/pumplink/pumplink-backend/pkg/db/models"
)

// RegisterInput carries the shared fields for account registration. The
// login PIN is generated server-side and delivered out of band.
type RegisterInput struct {
	Name       string
	Phone      string
	Email      *string
	PharmacyID *uuid.UUID
}

// LoginInput authenticates a user by phone and PIN. ClientIP feeds the
// per-IP rate limit window.
type LoginInput struct {
	Phone    string
	PIN      string
	ClientIP string
}

// LoginResult bundles the minted token with the authenticated user.
type LoginResult struct {
	AccessToken string
	User        *models.User
}
