package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/enums"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  role TEXT NOT NULL,
  name TEXT NOT NULL,
  phone TEXT NOT NULL UNIQUE,
  email TEXT,
  pin_hash TEXT NOT NULL,
  pharmacy_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	return db
}

func seedUser(t *testing.T, db *gorm.DB, role enums.ActorRole, phone string, pharmacyID *uuid.UUID) *models.User {
	t.Helper()

	user := &models.User{
		ID:         uuid.New(),
		Role:       role,
		Name:       "Test " + phone,
		Phone:      phone,
		PINHash:    "hash",
		PharmacyID: pharmacyID,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestListByRoleFiltersRoleAndPharmacy(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	pharmacyA := uuid.New()
	pharmacyB := uuid.New()
	d1 := seedUser(t, db, enums.ActorRoleDriver, "+15550000001", &pharmacyA)
	d2 := seedUser(t, db, enums.ActorRoleDriver, "+15550000002", &pharmacyA)
	seedUser(t, db, enums.ActorRoleDriver, "+15550000003", &pharmacyB)
	seedUser(t, db, enums.ActorRolePharmacyStaff, "+15550000004", &pharmacyA)
	seedUser(t, db, enums.ActorRoleClient, "+15550000005", nil)

	drivers, err := repo.ListByRole(ctx, enums.ActorRoleDriver, &pharmacyA)
	require.NoError(t, err)
	require.Len(t, drivers, 2)
	assert.ElementsMatch(t, []uuid.UUID{d1.ID, d2.ID}, []uuid.UUID{drivers[0].ID, drivers[1].ID})

	allDrivers, err := repo.ListByRole(ctx, enums.ActorRoleDriver, nil)
	require.NoError(t, err)
	assert.Len(t, allDrivers, 3)
}

func TestFindByPhone(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedUser(t, db, enums.ActorRoleClient, "+15550000042", nil)

	found, err := repo.FindByPhone(ctx, "+15550000042")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)
	assert.Equal(t, enums.ActorRoleClient, found.Role)

	_, err = repo.FindByPhone(ctx, "+15559999999")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
