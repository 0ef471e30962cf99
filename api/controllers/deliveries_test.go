package controllers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pumplink/pumplink-backend/api/middleware"
	"github.com/pumplink/pumplink-backend/internal/deliveries"
	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/enums"
	"github.com/pumplink/pumplink-backend/pkg/pagination"
)

type stubDeliveriesService struct {
	createDelivery func(ctx context.Context, input deliveries.CreateDeliveryInput) (*models.DeliveryOrder, error)
	markPickedUp   func(ctx context.Context, input deliveries.MarkPickedUpInput) error
	listOrders     func(ctx context.Context, params pagination.Params, filters deliveries.OrderFilters) (*deliveries.OrderList, error)
}

func (s *stubDeliveriesService) CreateDelivery(ctx context.Context, input deliveries.CreateDeliveryInput) (*models.DeliveryOrder, error) {
	if s.createDelivery != nil {
		return s.createDelivery(ctx, input)
	}
	return &models.DeliveryOrder{}, nil
}

func (s *stubDeliveriesService) MarkPickedUp(ctx context.Context, input deliveries.MarkPickedUpInput) error {
	if s.markPickedUp != nil {
		return s.markPickedUp(ctx, input)
	}
	return nil
}

func (s *stubDeliveriesService) MarkDelivered(ctx context.Context, input deliveries.MarkDeliveredInput) error {
	return nil
}

func (s *stubDeliveriesService) ConfirmClientReceipt(ctx context.Context, input deliveries.ConfirmClientReceiptInput) error {
	return nil
}

func (s *stubDeliveriesService) Cancel(ctx context.Context, input deliveries.CancelInput) error {
	return nil
}

func (s *stubDeliveriesService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.DeliveryOrder, error) {
	return &models.DeliveryOrder{}, nil
}

func (s *stubDeliveriesService) ListOrders(ctx context.Context, params pagination.Params, filters deliveries.OrderFilters) (*deliveries.OrderList, error) {
	if s.listOrders != nil {
		return s.listOrders(ctx, params, filters)
	}
	return &deliveries.OrderList{}, nil
}

func authedRequest(method, target, body string, role enums.ActorRole, userID uuid.UUID, pharmacyID *uuid.UUID, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}

	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	if pharmacyID != nil {
		ctx = middleware.WithPharmacyID(ctx, pharmacyID.String())
	}

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for key, value := range params {
			rctx.URLParams.Add(key, value)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}

	return req.WithContext(ctx)
}

func TestCreateDeliveryRequiresPharmacyContext(t *testing.T) {
	handler := CreateDelivery(&stubDeliveriesService{}, nil)

	body := fmt.Sprintf(`{"client_id":"%s","pump_codes":["PF-100"]}`, uuid.New())
	req := authedRequest(http.MethodPost, "/api/v1/deliveries", body, enums.ActorRolePharmacyStaff, uuid.New(), nil, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestCreateDeliveryPassesActor(t *testing.T) {
	userID := uuid.New()
	pharmacyID := uuid.New()
	clientID := uuid.New()

	var captured deliveries.CreateDeliveryInput
	svc := &stubDeliveriesService{
		createDelivery: func(ctx context.Context, input deliveries.CreateDeliveryInput) (*models.DeliveryOrder, error) {
			captured = input
			return &models.DeliveryOrder{ID: uuid.New()}, nil
		},
	}
	handler := CreateDelivery(svc, nil)

	body := fmt.Sprintf(`{"client_id":"%s","pump_codes":["PF-100","PF-101"]}`, clientID)
	req := authedRequest(http.MethodPost, "/api/v1/deliveries", body, enums.ActorRolePharmacyStaff, userID, &pharmacyID, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.PharmacyID != pharmacyID {
		t.Fatalf("expected pharmacy %s got %s", pharmacyID, captured.PharmacyID)
	}
	if captured.ClientID != clientID {
		t.Fatalf("expected client %s got %s", clientID, captured.ClientID)
	}
	if captured.Actor.UserID != userID {
		t.Fatalf("expected actor %s got %s", userID, captured.Actor.UserID)
	}
	if len(captured.PumpCodes) != 2 {
		t.Fatalf("expected 2 pump codes got %d", len(captured.PumpCodes))
	}
}

func TestDeliveryPickupRejectsMissingSignature(t *testing.T) {
	called := false
	svc := &stubDeliveriesService{
		markPickedUp: func(ctx context.Context, input deliveries.MarkPickedUpInput) error {
			called = true
			return nil
		},
	}
	handler := DeliveryPickup(svc, nil)

	sig := base64.StdEncoding.EncodeToString([]byte("signature"))
	body := fmt.Sprintf(`{"pharmacy_signature":"%s"}`, sig)
	req := authedRequest(http.MethodPost, "/api/v1/deliveries/x/pickup", body, enums.ActorRoleDriver, uuid.New(), nil, map[string]string{"orderID": uuid.NewString()})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if called {
		t.Fatal("service should not be reached with incomplete signatures")
	}
}

func TestDeliveryPickupBindsDriverToCaller(t *testing.T) {
	driverID := uuid.New()
	orderID := uuid.New()

	var captured deliveries.MarkPickedUpInput
	svc := &stubDeliveriesService{
		markPickedUp: func(ctx context.Context, input deliveries.MarkPickedUpInput) error {
			captured = input
			return nil
		},
	}
	handler := DeliveryPickup(svc, nil)

	sig := base64.StdEncoding.EncodeToString([]byte("signature"))
	body := fmt.Sprintf(`{"pharmacy_signature":"%s","driver_signature":"%s"}`, sig, sig)
	req := authedRequest(http.MethodPost, "/api/v1/deliveries/x/pickup", body, enums.ActorRoleDriver, driverID, nil, map[string]string{"orderID": orderID.String()})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.DriverID != driverID {
		t.Fatalf("expected driver %s got %s", driverID, captured.DriverID)
	}
	if captured.OrderID != orderID {
		t.Fatalf("expected order %s got %s", orderID, captured.OrderID)
	}
	if len(captured.DriverSignature) == 0 || len(captured.PharmacySignature) == 0 {
		t.Fatal("expected decoded signatures")
	}
}

func TestListDeliveriesScopesClientToSelf(t *testing.T) {
	clientID := uuid.New()

	var captured deliveries.OrderFilters
	svc := &stubDeliveriesService{
		listOrders: func(ctx context.Context, params pagination.Params, filters deliveries.OrderFilters) (*deliveries.OrderList, error) {
			captured = filters
			return &deliveries.OrderList{}, nil
		},
	}
	handler := ListDeliveries(svc, nil)

	req := authedRequest(http.MethodGet, "/api/v1/deliveries?status=created", "", enums.ActorRoleClient, clientID, nil, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.ClientID == nil || *captured.ClientID != clientID {
		t.Fatalf("expected client filter %s got %v", clientID, captured.ClientID)
	}
	if captured.Status == nil || *captured.Status != enums.OrderStatusCreated {
		t.Fatalf("expected status filter created got %v", captured.Status)
	}

	var payload struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
}
