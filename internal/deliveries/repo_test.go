package deliveries

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/enums"
	"github.com/pumplink/pumplink-backend/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDeliveriesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	pumps := `
CREATE TABLE IF NOT EXISTS pumps (
  id TEXT PRIMARY KEY,
  pharmacy_id TEXT NOT NULL,
  code TEXT NOT NULL,
  brand TEXT,
  model TEXT,
  status TEXT NOT NULL DEFAULT 'available',
  current_driver_id TEXT,
  current_client_id TEXT,
  expires_at DATETIME,
  last_reviewed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
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
	require.NoError(t, db.Exec(pumps).Error)
	require.NoError(t, db.Exec(deliveryOrders).Error)
	require.NoError(t, db.Exec(orderPumps).Error)
	return db
}

func seedPump(t *testing.T, db *gorm.DB, pharmacyID uuid.UUID, code string, status enums.PumpStatus) *models.Pump {
	t.Helper()

	pump := &models.Pump{
		ID:         uuid.New(),
		PharmacyID: pharmacyID,
		Code:       code,
		Status:     status,
	}
	require.NoError(t, db.Create(pump).Error)
	return pump
}

func seedOrder(t *testing.T, db *gorm.DB, pharmacyID, clientID uuid.UUID, status enums.OrderStatus, created time.Time) *models.DeliveryOrder {
	t.Helper()

	order := &models.DeliveryOrder{
		ID:         uuid.New(),
		Type:       enums.OrderTypeDelivery,
		PharmacyID: pharmacyID,
		ClientID:   clientID,
		Status:     status,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepositoryFindOrder_preloadsPumpsInPosition(t *testing.T) {
	db := setupDeliveriesTestDB(t)
	repo := NewRepository(db)

	pharmacyID := uuid.New()
	order := seedOrder(t, db, pharmacyID, uuid.New(), enums.OrderStatusCreated, time.Now().UTC())

	first := seedPump(t, db, pharmacyID, "PMP-A", enums.PumpStatusAvailable)
	second := seedPump(t, db, pharmacyID, "PMP-B", enums.PumpStatusAvailable)
	require.NoError(t, repo.CreateOrderPumps(context.Background(), []models.OrderPump{
		{ID: uuid.New(), OrderID: order.ID, PumpID: second.ID, Code: second.Code, Position: 1},
		{ID: uuid.New(), OrderID: order.ID, PumpID: first.ID, Code: first.Code, Position: 0},
	}))

	found, err := repo.FindOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, found.Pumps, 2)
	assert.Equal(t, "PMP-A", found.Pumps[0].Code)
	assert.Equal(t, "PMP-B", found.Pumps[1].Code)
}

func TestRepositoryFindPumpsByCodes_scopedToPharmacy(t *testing.T) {
	db := setupDeliveriesTestDB(t)
	repo := NewRepository(db)

	pharmacyID := uuid.New()
	otherPharmacy := uuid.New()
	seedPump(t, db, pharmacyID, "PMP-001", enums.PumpStatusAvailable)
	seedPump(t, db, otherPharmacy, "PMP-001", enums.PumpStatusAvailable)

	pumps, err := repo.FindPumpsByCodes(context.Background(), pharmacyID, []string{"PMP-001"})
	require.NoError(t, err)
	require.Len(t, pumps, 1)
	assert.Equal(t, pharmacyID, pumps[0].PharmacyID)
}

func TestRepositoryFindDriverHeldPumps(t *testing.T) {
	db := setupDeliveriesTestDB(t)
	repo := NewRepository(db)

	pharmacyID := uuid.New()
	driverID := uuid.New()

	held := seedPump(t, db, pharmacyID, "PMP-HELD", enums.PumpStatusWithDriver)
	require.NoError(t, db.Model(held).Update("current_driver_id", driverID).Error)

	// Same driver, different pharmacy: excluded.
	elsewhere := seedPump(t, db, uuid.New(), "PMP-OTHER", enums.PumpStatusWithDriver)
	require.NoError(t, db.Model(elsewhere).Update("current_driver_id", driverID).Error)

	seedPump(t, db, pharmacyID, "PMP-FREE", enums.PumpStatusAvailable)

	pumps, err := repo.FindDriverHeldPumps(context.Background(), driverID, pharmacyID)
	require.NoError(t, err)
	require.Len(t, pumps, 1)
	assert.Equal(t, "PMP-HELD", pumps[0].Code)
}

func TestRepositoryFindClientHeldPumps(t *testing.T) {
	db := setupDeliveriesTestDB(t)
	repo := NewRepository(db)

	clientID := uuid.New()
	pharmacyA := uuid.New()
	pharmacyB := uuid.New()

	// Debts span pharmacies; the lookup is by client only.
	owedA := seedPump(t, db, pharmacyA, "PMP-B2", enums.PumpStatusWithClient)
	require.NoError(t, db.Model(owedA).Update("current_client_id", clientID).Error)
	owedB := seedPump(t, db, pharmacyB, "PMP-A1", enums.PumpStatusWithClient)
	require.NoError(t, db.Model(owedB).Update("current_client_id", clientID).Error)

	other := seedPump(t, db, pharmacyA, "PMP-C3", enums.PumpStatusWithClient)
	require.NoError(t, db.Model(other).Update("current_client_id", uuid.New()).Error)

	pumps, err := repo.FindClientHeldPumps(context.Background(), clientID)
	require.NoError(t, err)
	require.Len(t, pumps, 2)
	assert.Equal(t, "PMP-A1", pumps[0].Code)
	assert.Equal(t, "PMP-B2", pumps[1].Code)
}

func TestRepositoryUpdatePumps(t *testing.T) {
	db := setupDeliveriesTestDB(t)
	repo := NewRepository(db)

	pharmacyID := uuid.New()
	driverID := uuid.New()
	pump := seedPump(t, db, pharmacyID, "PMP-001", enums.PumpStatusAvailable)

	err := repo.UpdatePumps(context.Background(), []uuid.UUID{pump.ID}, map[string]any{
		"status":            enums.PumpStatusWithDriver,
		"current_driver_id": driverID,
	})
	require.NoError(t, err)

	var reloaded models.Pump
	require.NoError(t, db.First(&reloaded, "id = ?", pump.ID).Error)
	assert.Equal(t, enums.PumpStatusWithDriver, reloaded.Status)
	require.NotNil(t, reloaded.CurrentDriverID)
	assert.Equal(t, driverID, *reloaded.CurrentDriverID)
}

func TestRepositoryListOrders_paginationAndFilters(t *testing.T) {
	db := setupDeliveriesTestDB(t)
	repo := NewRepository(db)

	pharmacyID := uuid.New()
	clientID := uuid.New()
	now := time.Now().UTC()

	older := seedOrder(t, db, pharmacyID, clientID, enums.OrderStatusCreated, now.Add(-time.Hour))
	newer := seedOrder(t, db, pharmacyID, clientID, enums.OrderStatusPickedUp, now)
	seedOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusCreated, now)

	list, err := repo.ListOrders(context.Background(), pagination.Params{Limit: 1}, OrderFilters{PharmacyID: &pharmacyID})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, newer.ID, list.Orders[0].ID)
	assert.True(t, list.HasMore)
	require.NotEmpty(t, list.NextCursor)

	second, err := repo.ListOrders(context.Background(), pagination.Params{Limit: 1, Cursor: list.NextCursor}, OrderFilters{PharmacyID: &pharmacyID})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Equal(t, older.ID, second.Orders[0].ID)
	assert.False(t, second.HasMore)

	status := enums.OrderStatusPickedUp
	filtered, err := repo.ListOrders(context.Background(), pagination.Params{Limit: 10}, OrderFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, filtered.Orders, 1)
	assert.Equal(t, newer.ID, filtered.Orders[0].ID)
}
