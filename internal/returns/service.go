package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pumplink/pumplink-backend/pkg/db"
	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/enums"
	pkgerrors "github.com/pumplink/pumplink-backend/pkg/errors"
	"github.com/pumplink/pumplink-backend/pkg/metrics"
	"github.com/pumplink/pumplink-backend/pkg/outbox"
	"github.com/pumplink/pumplink-backend/pkg/outbox/payloads"
	"github.com/pumplink/pumplink-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service drives the return leg: request, driver pickup, pharmacy receipt.
type Service interface {
	RequestReturn(ctx context.Context, input RequestReturnInput) (*models.DeliveryOrder, error)
	MarkReturnPickedUp(ctx context.Context, input MarkReturnPickedUpInput) error
	ConfirmPharmacyReceipt(ctx context.Context, input ConfirmPharmacyReceiptInput) error
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	custody *metrics.CustodyMetrics
}

// NewService builds a returns service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, custody *metrics.CustodyMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
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

func (s *service) RequestReturn(ctx context.Context, input RequestReturnInput) (*models.DeliveryOrder, error) {
	if input.OriginalDeliveryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "original delivery id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.SelectedPumpCodes)+len(input.ExtraPumpCodes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one pump code required")
	}
	if dup := firstDuplicate(append(append([]string{}, input.SelectedPumpCodes...), input.ExtraPumpCodes...)); dup != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate pump code in request").
			WithDetails(map[string]any{"code": dup})
	}

	var created *models.DeliveryOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		original, err := s.loadOrder(ctx, repo, input.OriginalDeliveryID)
		if err != nil {
			return err
		}
		if original.Type != enums.OrderTypeDelivery {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "returns reference delivery orders only")
		}
		if original.Status != enums.OrderStatusReceivedByClient {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return requires a client-confirmed delivery").
				WithDetails(map[string]any{"status": original.Status})
		}
		if input.Actor.Role == enums.ActorRoleClient && input.Actor.UserID != original.ClientID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "delivery does not belong to client")
		}

		if existing, err := repo.FindActiveReturn(ctx, original.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active returns")
		} else if existing != nil {
			return pkgerrors.New(pkgerrors.CodeDuplicateReturn, "a return is already open for this delivery").
				WithDetails(map[string]any{"return_order_id": existing.ID})
		}

		originalByCode := make(map[string]models.OrderPump, len(original.Pumps))
		for _, op := range original.Pumps {
			originalByCode[op.Code] = op
		}
		for _, code := range input.SelectedPumpCodes {
			if _, ok := originalByCode[code]; !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "selected pump is not part of the original delivery").
					WithDetails(map[string]any{"code": code})
			}
		}

		missing := missingCodes(original.Pumps, input.SelectedPumpCodes)
		if len(missing) > 0 && input.MissingReason == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "partial return requires a reason for the missing pumps").
				WithDetails(map[string]any{"missing": missing})
		}

		extraPumps, err := s.resolveExtraPumps(ctx, repo, original, input.ExtraPumpCodes)
		if err != nil {
			return err
		}

		order := &models.DeliveryOrder{
			Type:               enums.OrderTypeReturn,
			PharmacyID:         original.PharmacyID,
			ClientID:           original.ClientID,
			Status:             enums.OrderStatusReturnRequested,
			OriginalDeliveryID: &original.ID,
		}
		if len(missing) > 0 {
			order.MissingPumpsInfo = &types.MissingPumpsInfo{
				Missing: missing,
				Reason:  input.MissingReason,
			}
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			// The partial unique index closes the race two concurrent
			// requests would otherwise win together.
			if db.IsUniqueViolation(err, "idx_delivery_orders_active_return") {
				return pkgerrors.New(pkgerrors.CodeDuplicateReturn, "a return is already open for this delivery")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return order")
		}

		orderPumps := make([]models.OrderPump, 0, len(input.SelectedPumpCodes)+len(extraPumps))
		for _, code := range input.SelectedPumpCodes {
			op := originalByCode[code]
			orderPumps = append(orderPumps, models.OrderPump{
				OrderID:  order.ID,
				PumpID:   op.PumpID,
				Code:     op.Code,
				Position: len(orderPumps),
			})
		}
		for _, pump := range extraPumps {
			orderPumps = append(orderPumps, models.OrderPump{
				OrderID:  order.ID,
				PumpID:   pump.ID,
				Code:     pump.Code,
				Position: len(orderPumps),
			})
		}
		if err := repo.CreateOrderPumps(ctx, orderPumps); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return order pumps")
		}
		order.Pumps = orderPumps

		created = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventReturnRequested,
			AggregateType: outbox.AggregateDeliveryOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.ReturnRequestedEvent{
				ReturnOrderID:      order.ID,
				OriginalDeliveryID: original.ID,
				PharmacyID:         order.PharmacyID,
				ClientID:           order.ClientID,
				PumpCodes:          orderPumpCodes(orderPumps),
				MissingReason:      input.MissingReason,
			},
		})
	})
	if err != nil {
		s.reject("request_return", err)
		return nil, err
	}
	s.custody.IncTransition("request_return")
	return created, nil
}

// resolveExtraPumps validates codes the client hands back beyond the original
// delivery. A code already pinned to any order means the pump is being
// tracked elsewhere and must not be absorbed into this return. Codes on the
// original delivery belong in the selection, not here; accepting them would
// record the pump as missing and returned at once.
func (s *service) resolveExtraPumps(ctx context.Context, repo Repository, original *models.DeliveryOrder, extraCodes []string) ([]models.Pump, error) {
	if len(extraCodes) == 0 {
		return nil, nil
	}

	onOriginal := make(map[string]struct{}, len(original.Pumps))
	for _, op := range original.Pumps {
		onOriginal[op.Code] = struct{}{}
	}
	for _, code := range extraCodes {
		if _, ok := onOriginal[code]; ok {
			return nil, pkgerrors.New(pkgerrors.CodeDuplicateAsset, "pump code belongs to the original delivery").
				WithDetails(map[string]any{"code": code})
		}
	}

	colliding, err := repo.FindCollidingCodes(ctx, extraCodes, original.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check code collisions")
	}
	if len(colliding) > 0 {
		collides := make(map[string]struct{}, len(colliding))
		for _, code := range colliding {
			collides[code] = struct{}{}
		}
		for _, code := range extraCodes {
			if _, ok := collides[code]; ok {
				return nil, pkgerrors.New(pkgerrors.CodeDuplicateAsset, "pump code belongs to another delivery").
					WithDetails(map[string]any{"code": code})
			}
		}
	}

	pumps, err := repo.FindPumpsByCodes(ctx, original.PharmacyID, extraCodes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load extra pumps")
	}
	byCode := make(map[string]models.Pump, len(pumps))
	for _, pump := range pumps {
		byCode[pump.Code] = pump
	}
	ordered := make([]models.Pump, 0, len(extraCodes))
	for _, code := range extraCodes {
		pump, ok := byCode[code]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pump not found").
				WithDetails(map[string]any{"code": code})
		}
		ordered = append(ordered, pump)
	}
	return ordered, nil
}

func (s *service) MarkReturnPickedUp(ctx context.Context, input MarkReturnPickedUpInput) error {
	if input.ReturnOrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "return order id required")
	}
	if input.DriverID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}
	if len(input.DriverSignature) == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "driver signature required for return pickup")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.ReturnOrderID)
		if err != nil {
			return err
		}
		if order.Type != enums.OrderTypeReturn {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup applies to return orders only")
		}
		if order.Status != enums.OrderStatusReturnRequested {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup requires a requested return").
				WithDetails(map[string]any{"status": order.Status})
		}

		ids := orderPumpIDs(order.Pumps)
		if err := s.requirePumpStatus(ctx, repo, ids, enums.PumpStatusWithClient); err != nil {
			return err
		}
		if err := repo.UpdatePumps(ctx, ids, map[string]any{
			"status":            enums.PumpStatusWithDriver,
			"current_client_id": nil,
			"current_driver_id": input.DriverID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move pumps to driver")
		}

		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":           enums.OrderStatusReturnedToPharmacy,
			"driver_id":        input.DriverID,
			"driver_signature": input.DriverSignature,
			"picked_up_at":     time.Now(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventReturnPickedUp,
			AggregateType: outbox.AggregateDeliveryOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.ReturnPickedUpEvent{
				ReturnOrderID: order.ID,
				PharmacyID:    order.PharmacyID,
				DriverID:      input.DriverID,
			},
		})
	})
	if err != nil {
		s.reject("mark_return_picked_up", err)
		return err
	}
	s.custody.IncTransition("mark_return_picked_up")
	return nil
}

func (s *service) ConfirmPharmacyReceipt(ctx context.Context, input ConfirmPharmacyReceiptInput) error {
	if input.ReturnOrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "return order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, input.ReturnOrderID)
		if err != nil {
			return err
		}
		if order.Type != enums.OrderTypeReturn {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "receipt applies to return orders only")
		}
		if order.Status != enums.OrderStatusReturnedToPharmacy {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "receipt requires a returned order").
				WithDetails(map[string]any{"status": order.Status})
		}

		now := time.Now()
		// TODO: release the pumps back to available here once the intake
		// inspection flow lands; today they stay in driver custody until a
		// staff member edits them.
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":      enums.OrderStatusReceivedByPharmacy,
			"received_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventReturnCompleted,
			AggregateType: outbox.AggregateDeliveryOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.ReturnCompletedEvent{
				ReturnOrderID: order.ID,
				PharmacyID:    order.PharmacyID,
				ClientID:      order.ClientID,
				DriverID:      order.DriverID,
				ReceivedAt:    now,
			},
		})
	})
	if err != nil {
		s.reject("confirm_pharmacy_receipt", err)
		return err
	}
	s.custody.IncTransition("confirm_pharmacy_receipt")
	return nil
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

// missingCodes lists original delivery codes absent from the selection,
// preserving the delivery's pump order.
func missingCodes(originalPumps []models.OrderPump, selected []string) []string {
	chosen := make(map[string]struct{}, len(selected))
	for _, code := range selected {
		chosen[code] = struct{}{}
	}
	var missing []string
	for _, op := range originalPumps {
		if _, ok := chosen[op.Code]; !ok {
			missing = append(missing, op.Code)
		}
	}
	return missing
}

func orderPumpIDs(pumps []models.OrderPump) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(pumps))
	for _, pump := range pumps {
		ids = append(ids, pump.PumpID)
	}
	return ids
}

func orderPumpCodes(pumps []models.OrderPump) []string {
	codes := make([]string, 0, len(pumps))
	for _, pump := range pumps {
		codes = append(codes, pump.Code)
	}
	return codes
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
