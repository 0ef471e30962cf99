package returns

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupReturnsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	deliveryOrders := `
CREATE TABLE IF NOT EXISTS delivery_orders (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL DEFAULT 'delivery',
  pharmacy_id TEXT NOT NULL,
  client_id TEXT NOT NULL,
  driver_id TEXT,
  status TEXT NOT NULL DEFAULT 'created',
  pharmacy_signature BLOB,
  driver_signature BLOB,
  client_signature BLOB,
  original_delivery_id TEXT,
  missing_pumps_info TEXT,
  failed_returns TEXT,
  picked_up_at DATETIME,
  delivered_at DATETIME,
  client_confirmed_at DATETIME,
  received_at DATETIME,
  canceled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderPumps := `
CREATE TABLE IF NOT EXISTS order_pumps (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  pump_id TEXT NOT NULL,
  code TEXT NOT NULL,
  position INTEGER NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(deliveryOrders).Error)
	require.NoError(t, db.Exec(orderPumps).Error)
	return db
}

func seedReturnOrder(t *testing.T, db *gorm.DB, originalID uuid.UUID, status enums.OrderStatus) *models.DeliveryOrder {
	t.Helper()

	order := &models.DeliveryOrder{
		ID:                 uuid.New(),
		Type:               enums.OrderTypeReturn,
		PharmacyID:         uuid.New(),
		ClientID:           uuid.New(),
		Status:             status,
		OriginalDeliveryID: &originalID,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepositoryFindActiveReturn(t *testing.T) {
	db := setupReturnsTestDB(t)
	repo := NewRepository(db)

	originalID := uuid.New()

	found, err := repo.FindActiveReturn(context.Background(), originalID)
	require.NoError(t, err)
	assert.Nil(t, found)

	// A cancelled return does not block a new one.
	seedReturnOrder(t, db, originalID, enums.OrderStatusCancelled)
	found, err = repo.FindActiveReturn(context.Background(), originalID)
	require.NoError(t, err)
	assert.Nil(t, found)

	active := seedReturnOrder(t, db, originalID, enums.OrderStatusReturnRequested)
	found, err = repo.FindActiveReturn(context.Background(), originalID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, active.ID, found.ID)
}

func TestRepositoryFindCollidingCodes(t *testing.T) {
	db := setupReturnsTestDB(t)
	repo := NewRepository(db)

	ownOrder := uuid.New()
	otherOrder := uuid.New()
	require.NoError(t, db.Create(&models.OrderPump{
		ID: uuid.New(), OrderID: ownOrder, PumpID: uuid.New(), Code: "PMP-OWN", Position: 0,
	}).Error)
	require.NoError(t, db.Create(&models.OrderPump{
		ID: uuid.New(), OrderID: otherOrder, PumpID: uuid.New(), Code: "PMP-TAKEN", Position: 0,
	}).Error)

	colliding, err := repo.FindCollidingCodes(context.Background(), []string{"PMP-OWN", "PMP-TAKEN", "PMP-FREE"}, ownOrder)
	require.NoError(t, err)
	assert.Equal(t, []string{"PMP-TAKEN"}, colliding)
}
