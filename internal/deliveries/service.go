package deliveries

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/enums"
	pkgerrors "github.com/pumplink/pumplink-backend/pkg/errors"
	"github.com/pumplink/pumplink-backend/pkg/metrics"
	"github.com/pumplink/pumplink-backend/pkg/outbox"
	"github.com/pumplink/pumplink-backend/pkg/outbox/payloads"
	"github.com/pumplink/pumplink-backend/pkg/pagination"
	"github.com/pumplink/pumplink-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service drives the delivery-leg custody transitions. Every operation
// validates preconditions and mutates order plus pump rows inside one
// transaction; a failed precondition leaves no partial writes.
type Service interface {
	CreateDelivery(ctx context.Context, input CreateDeliveryInput) (*models.DeliveryOrder, error)
	MarkPickedUp(ctx context.Context, input MarkPickedUpInput) error
	MarkDelivered(ctx context.Context, input MarkDeliveredInput) error
	ConfirmClientReceipt(ctx context.Context, input ConfirmClientReceiptInput) error
	Cancel(ctx context.Context, input CancelInput) error
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.DeliveryOrder, error)
	ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	custody *metrics.CustodyMetrics
}

// NewService builds a deliveries service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, custody *metrics.CustodyMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deliveries repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outboxSvc,
		custody: custody,
	}, nil
}

func (s *service) CreateDelivery(ctx context.Context, input CreateDeliveryInput) (*models.DeliveryOrder, error) {
	if input.PharmacyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacy id required")
	}
	if input.ClientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.PumpCodes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one pump code required")
	}
	if dup := firstDuplicate(input.PumpCodes); dup != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate pump code in request").
			WithDetails(map[string]any{"code": dup})
	}

	var created *models.DeliveryOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		pumps, err := repo.FindPumpsByCodes(ctx, input.PharmacyID, input.PumpCodes)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pumps")
		}
		byCode := make(map[string]models.Pump, len(pumps))
		for _, pump := range pumps {
			byCode[pump.Code] = pump
		}
		for _, code := range input.PumpCodes {
			pump, ok := byCode[code]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "pump not found").
					WithDetails(map[string]any{"code": code})
			}
			if pump.Status != enums.PumpStatusAvailable {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "pump is not available").
					WithDetails(map[string]any{"code": code, "status": pump.Status})
			}
		}

		order := &models.DeliveryOrder{
			Type:       enums.OrderTypeDelivery,
			PharmacyID: input.PharmacyID,
			ClientID:   input.ClientID,
			Status:     enums.OrderStatusCreated,
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		orderPumps := make([]models.OrderPump, 0, len(input.PumpCodes))
		for i, code := range input.PumpCodes {
			pump := byCode[code]
			orderPumps = append(orderPumps, models.OrderPump{
				OrderID:  order.ID,
				PumpID:   pump.ID,
				Code:     pump.Code,
				Position: i,
			})
		}
		if err := repo.CreateOrderPumps(ctx, orderPumps); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order pumps")
		}
		order.Pumps = orderPumps

		created = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderCreated,
			AggregateType: outbox.AggregateDeliveryOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.OrderCreatedEvent{
				OrderID:    order.ID,
				PharmacyID: order.PharmacyID,
				ClientID:   order.ClientID,
				PumpCodes:  input.PumpCodes,
			},
		})
	})
	if err != nil {
		s.reject("create_delivery", err)
		return nil, err
	}
	s.custody.IncTransition("create_delivery")
	return created, nil
}

func (s *service) MarkPickedUp(ctx context.Context, input MarkPickedUpInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.DriverID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	if len(input.PharmacySignature) == 0 || len(input.DriverSignature) == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "pharmacy and driver signatures required for pickup")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.Type != enums.OrderTypeDelivery {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup applies to delivery orders only")
		}
		if order.Status != enums.OrderStatusCreated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup requires a created order").
				WithDetails(map[string]any{"status": order.Status})
		}

		// Drivers may still be carrying pumps from a previous stop bound
		// for this pharmacy. Those come home in the same batch.
		held, err := repo.FindDriverHeldPumps(ctx, input.DriverID, order.PharmacyID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver holdings")
		}
		autoReturned := pumpIDs(held)
		if err := repo.UpdatePumps(ctx, autoReturned, map[string]any{
			"status":            enums.PumpStatusAvailable,
			"current_driver_id": nil,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "auto-return driver holdings")
		}

		orderPumpIDs := orderPumpIDs(order.Pumps)
		if err := s.requirePumpStatus(ctx, repo, orderPumpIDs, enums.PumpStatusAvailable); err != nil {
			return err
		}
		if err := repo.UpdatePumps(ctx, orderPumpIDs, map[string]any{
			"status":            enums.PumpStatusWithDriver,
			"current_driver_id": input.DriverID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move pumps to driver")
		}

		now := time.Now()
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":             enums.OrderStatusPickedUp,
			"driver_id":          input.DriverID,
			"pharmacy_signature": input.PharmacySignature,
			"driver_signature":   input.DriverSignature,
			"picked_up_at":       now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderPickedUp,
			AggregateType: outbox.AggregateDeliveryOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.OrderPickedUpEvent{
				OrderID:             order.ID,
				PharmacyID:          order.PharmacyID,
				DriverID:            input.DriverID,
				AutoReturnedPumpIDs: autoReturned,
			},
		})
	})
	if err != nil {
		s.reject("mark_picked_up", err)
		return err
	}
	s.custody.IncTransition("mark_picked_up")
	return nil
}

func (s *service) MarkDelivered(ctx context.Context, input MarkDeliveredInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if len(input.DriverSignature) == 0 || len(input.ClientSignature) == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "driver and client signatures required for delivery")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.Type != enums.OrderTypeDelivery {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery applies to delivery orders only")
		}
		if order.Status != enums.OrderStatusPickedUp {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery requires a picked up order").
				WithDetails(map[string]any{"status": order.Status})
		}
		if order.DriverID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no attached driver")
		}

		debts, err := repo.FindClientHeldPumps(ctx, order.ClientID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load outstanding debts")
		}

		collected, missing, err := settleDebts(debts, input.DebtResolutions)
		if err != nil {
			return err
		}

		if err := repo.UpdatePumps(ctx, pumpIDs(collected), map[string]any{
			"status":            enums.PumpStatusWithDriver,
			"current_client_id": nil,
			"current_driver_id": *order.DriverID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "collect debt pumps")
		}

		orderIDs := orderPumpIDs(order.Pumps)
		if err := s.requirePumpStatus(ctx, repo, orderIDs, enums.PumpStatusWithDriver); err != nil {
			return err
		}
		if err := repo.UpdatePumps(ctx, orderIDs, map[string]any{
			"status":            enums.PumpStatusWithClient,
			"current_driver_id": nil,
			"current_client_id": order.ClientID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move pumps to client")
		}

		failedReturns := make(types.FailedReturns, 0, len(missing))
		for _, entry := range missing {
			failedReturns = append(failedReturns, types.FailedReturn{
				PumpID: entry.pump.ID,
				Code:   entry.pump.Code,
				Reason: entry.reason,
			})
		}

		now := time.Now()
		updates := map[string]any{
			"status":           enums.OrderStatusDelivered,
			"driver_signature": input.DriverSignature,
			"client_signature": input.ClientSignature,
			"delivered_at":     now,
		}
		if len(failedReturns) > 0 {
			updates["failed_returns"] = failedReturns
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderDelivered,
			AggregateType: outbox.AggregateDeliveryOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.OrderDeliveredEvent{
				OrderID:          order.ID,
				PharmacyID:       order.PharmacyID,
				ClientID:         order.ClientID,
				DriverID:         *order.DriverID,
				CollectedPumpIDs: pumpIDs(collected),
				MissingPumpIDs:   missingPumpIDs(missing),
				DeliveredAt:      now,
			},
		})
	})
	if err != nil {
		s.reject("mark_delivered", err)
		return err
	}
	s.custody.IncTransition("mark_delivered")
	return nil
}

func (s *service) ConfirmClientReceipt(ctx context.Context, input ConfirmClientReceiptInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.ClientID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to client")
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "receipt confirmation requires a delivered order").
				WithDetails(map[string]any{"status": order.Status})
		}

		return repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":              enums.OrderStatusReceivedByClient,
			"client_confirmed_at": time.Now(),
		})
	})
	if err != nil {
		s.reject("confirm_client_receipt", err)
		return err
	}
	s.custody.IncTransition("confirm_client_receipt")
	return nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		fromStatus := order.Status
		switch order.Status {
		case enums.OrderStatusCreated, enums.OrderStatusReturnRequested:
			// No custody has changed hands yet; the order row is enough.
		case enums.OrderStatusPickedUp:
			if err := repo.UpdatePumps(ctx, orderPumpIDs(order.Pumps), map[string]any{
				"status":            enums.PumpStatusAvailable,
				"current_driver_id": nil,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore pumps")
			}
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").
				WithDetails(map[string]any{"status": order.Status})
		}

		now := time.Now()
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":      enums.OrderStatusCancelled,
			"canceled_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderCanceled,
			AggregateType: outbox.AggregateDeliveryOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.OrderCanceledEvent{
				OrderID:    order.ID,
				PharmacyID: order.PharmacyID,
				FromStatus: fromStatus,
				CanceledAt: now,
			},
		})
	})
	if err != nil {
		s.reject("cancel", err)
		return err
	}
	s.custody.IncTransition("cancel")
	return nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.DeliveryOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	list, err := s.repo.ListOrders(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.DeliveryOrder, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// requirePumpStatus re-reads the pumps inside the transaction so a
// concurrent transition on the same pumps aborts instead of double-moving.
func (s *service) requirePumpStatus(ctx context.Context, repo Repository, ids []uuid.UUID, want enums.PumpStatus) error {
	pumps, err := repo.FindPumpsByIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order pumps")
	}
	if len(pumps) != len(ids) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order references missing pumps")
	}
	for _, pump := range pumps {
		if pump.Status != want {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pump is not in the expected custody state").
				WithDetails(map[string]any{"code": pump.Code, "status": pump.Status})
		}
	}
	return nil
}

type missingDebt struct {
	pump   models.Pump
	reason string
}

// settleDebts matches every outstanding debt pump against the supplied
// resolutions. Every debt must resolve to collected or missing; missing
// requires a reason.
func settleDebts(debts []models.Pump, resolutions []DebtResolutionInput) ([]models.Pump, []missingDebt, error) {
	byPump := make(map[uuid.UUID]DebtResolutionInput, len(resolutions))
	for _, res := range resolutions {
		if _, ok := byPump[res.PumpID]; ok {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate debt resolution").
				WithDetails(map[string]any{"pump_id": res.PumpID})
		}
		byPump[res.PumpID] = res
	}

	debtIDs := make(map[uuid.UUID]struct{}, len(debts))
	collected := make([]models.Pump, 0, len(debts))
	missing := make([]missingDebt, 0)
	unresolved := []string{}

	for _, pump := range debts {
		debtIDs[pump.ID] = struct{}{}
		res, ok := byPump[pump.ID]
		if !ok {
			unresolved = append(unresolved, pump.Code)
			continue
		}
		switch res.Resolution {
		case enums.DebtResolutionCollected:
			collected = append(collected, pump)
		case enums.DebtResolutionMissing:
			if res.Reason == "" {
				return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "missing debt resolution requires a reason").
					WithDetails(map[string]any{"code": pump.Code})
			}
			missing = append(missing, missingDebt{pump: pump, reason: res.Reason})
		default:
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "debt resolution must be collected or missing").
				WithDetails(map[string]any{"code": pump.Code})
		}
	}

	if len(unresolved) > 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "all outstanding debts must be resolved").
			WithDetails(map[string]any{"unresolved_codes": unresolved})
	}
	for id := range byPump {
		if _, ok := debtIDs[id]; !ok {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution references a pump the client does not owe").
				WithDetails(map[string]any{"pump_id": id})
		}
	}

	return collected, missing, nil
}

func (s *service) reject(operation string, err error) {
	code := string(pkgerrors.CodeInternal)
	if typed := pkgerrors.As(err); typed != nil {
		code = string(typed.Code())
	}
	s.custody.IncRejection(operation, code)
}

func buildActor(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:     actor.UserID,
		PharmacyID: actor.PharmacyID,
		Role:       string(actor.Role),
	}
}

func pumpIDs(pumps []models.Pump) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(pumps))
	for _, pump := range pumps {
		ids = append(ids, pump.ID)
	}
	return ids
}

func orderPumpIDs(pumps []models.OrderPump) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(pumps))
	for _, pump := range pumps {
		ids = append(ids, pump.PumpID)
	}
	return ids
}

func missingPumpIDs(missing []missingDebt) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(missing))
	for _, entry := range missing {
		ids = append(ids, entry.pump.ID)
	}
	return ids
}

func firstDuplicate(codes []string) string {
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if _, ok := seen[code]; ok {
			return code
		}
		seen[code] = struct{}{}
	}
	return ""
}
