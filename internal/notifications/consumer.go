package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/enums"
	"github.com/pumplink/pumplink-backend/pkg/logger"
	"github.com/pumplink/pumplink-backend/pkg/metrics"
	"github.com/pumplink/pumplink-backend/pkg/outbox"
	"github.com/pumplink/pumplink-backend/pkg/outbox/idempotency"
	"github.com/pumplink/pumplink-backend/pkg/outbox/payloads"
)

const custodyConsumer = "custody-worker"

type batchRepository interface {
	CreateBatch(ctx context.Context, notifications []models.Notification) error
}

type userDirectory interface {
	FindByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ListByRole(ctx context.Context, role enums.ActorRole, pharmacyID *uuid.UUID) ([]models.User, error)
}

type mailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Consumer turns custody events into in-app notifications and emails.
type Consumer struct {
	repo         batchRepository
	users        userDirectory
	mail         mailSender
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	worker       *metrics.WorkerMetrics
	logg         *logger.Logger
}

// NewConsumer builds the custody notification consumer.
func NewConsumer(
	repo batchRepository,
	users userDirectory,
	mail mailSender,
	subscription *pubsub.Subscriber,
	manager *idempotency.Manager,
	worker *metrics.WorkerMetrics,
	logg *logger.Logger,
) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("custody subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		users:        users,
		mail:         mail,
		subscription: subscription,
		idempotency:  manager,
		worker:       worker,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	handler, handled := c.handlerFor(enums.OutboxEventType(eventType))
	if !handled {
		c.logg.Info(logCtx, "skipping unhandled event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, custodyConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		c.worker.IncSkipped(eventType)
		return processResult{ack: true}
	}

	started := time.Now()
	if err := handler(ctx, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "event handling failed", err)
		c.worker.IncFailed(eventType)
		_ = c.idempotency.Delete(ctx, custodyConsumer, eventID)
		return processResult{nack: true}
	}
	c.worker.IncProcessed(eventType)
	c.worker.ObserveDuration(eventType, time.Since(started))
	return processResult{ack: true}
}

type eventHandler func(ctx context.Context, data json.RawMessage, logCtx context.Context) error

func (c *Consumer) handlerFor(eventType enums.OutboxEventType) (eventHandler, bool) {
	switch eventType {
	case enums.OutboxEventReturnRequested:
		return c.handleReturnRequested, true
	case enums.OutboxEventReturnCompleted:
		return c.handleReturnCompleted, true
	case enums.OutboxEventOrderDelivered:
		return c.handleOrderDelivered, true
	case enums.OutboxEventUserRegistered:
		return c.handleUserRegistered, true
	default:
		return nil, false
	}
}

// handleReturnRequested notifies the pharmacy's staff and broadcasts a
// pickup opportunity to every driver with one bulk insert.
func (c *Consumer) handleReturnRequested(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.ReturnRequestedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse return.requested payload: %w", err)
	}
	if payload.PharmacyID == uuid.Nil {
		return fmt.Errorf("pharmacy id missing")
	}

	staff, err := c.users.ListByRole(ctx, enums.ActorRolePharmacyStaff, &payload.PharmacyID)
	if err != nil {
		return fmt.Errorf("list pharmacy staff: %w", err)
	}
	drivers, err := c.users.ListByRole(ctx, enums.ActorRoleDriver, nil)
	if err != nil {
		return fmt.Errorf("list drivers: %w", err)
	}

	codes := strings.Join(payload.PumpCodes, ", ")
	rows := make([]models.Notification, 0, len(staff)+len(drivers))
	for _, user := range staff {
		rows = append(rows, models.Notification{
			UserID:  user.ID,
			Role:    enums.ActorRolePharmacyStaff,
			Type:    enums.NotificationTypeReturnRequested,
			Title:   "Return requested",
			Message: fmt.Sprintf("A client requested a return of pumps %s.", codes),
			OrderID: &payload.ReturnOrderID,
		})
	}
	for _, user := range drivers {
		rows = append(rows, models.Notification{
			UserID:  user.ID,
			Role:    enums.ActorRoleDriver,
			Type:    enums.NotificationTypeReturnRequested,
			Title:   "Return pickup available",
			Message: fmt.Sprintf("A return of %d pump(s) is waiting for pickup.", len(payload.PumpCodes)),
			OrderID: &payload.ReturnOrderID,
		})
	}
	if err := c.repo.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{"rows": len(rows)}), "return request broadcast")
	return nil
}

// handleReturnCompleted notifies the client and the driver who carried the
// pumps back.
func (c *Consumer) handleReturnCompleted(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.ReturnCompletedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse return.completed payload: %w", err)
	}
	if payload.ClientID == uuid.Nil {
		return fmt.Errorf("client id missing")
	}

	rows := []models.Notification{
		{
			UserID:  payload.ClientID,
			Role:    enums.ActorRoleClient,
			Type:    enums.NotificationTypeReturnCompleted,
			Title:   "Return received",
			Message: "The pharmacy confirmed receipt of your returned pumps.",
			OrderID: &payload.ReturnOrderID,
		},
	}
	if payload.DriverID != nil {
		rows = append(rows, models.Notification{
			UserID:  *payload.DriverID,
			Role:    enums.ActorRoleDriver,
			Type:    enums.NotificationTypeReturnCompleted,
			Title:   "Return completed",
			Message: "The pharmacy confirmed receipt of the pumps you delivered.",
			OrderID: &payload.ReturnOrderID,
		})
	}
	if err := c.repo.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	c.logg.Info(logCtx, "return completion notified")
	return nil
}

// handleOrderDelivered stores the in-app notification and sends the
// signature receipt email when the client has an address on file. The email
// is best-effort; a send failure never fails the event.
func (c *Consumer) handleOrderDelivered(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.OrderDeliveredEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse order.delivered payload: %w", err)
	}
	if payload.ClientID == uuid.Nil {
		return fmt.Errorf("client id missing")
	}

	rows := []models.Notification{
		{
			UserID:  payload.ClientID,
			Role:    enums.ActorRoleClient,
			Type:    enums.NotificationTypeOrderDelivered,
			Title:   "Pumps delivered",
			Message: "Your infusion pumps were delivered. Please confirm receipt in the app.",
			OrderID: &payload.OrderID,
		},
	}
	if err := c.repo.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}

	client, err := c.users.FindByID(ctx, payload.ClientID)
	if err != nil {
		c.logg.Error(logCtx, "receipt email skipped, client lookup failed", err)
		return nil
	}
	if client.Email == nil || *client.Email == "" {
		c.logg.Info(logCtx, "receipt email skipped, no address on file")
		return nil
	}
	body := fmt.Sprintf(
		"Dear %s,\n\nyour delivery was completed on %s. Both signatures were captured on the courier device.\n",
		client.Name, payload.DeliveredAt.Format("2 January 2006 15:04"),
	)
	if err := c.mail.Send(ctx, *client.Email, "Your delivery receipt", body); err != nil {
		c.logg.Error(logCtx, "receipt email failed", err)
	}
	return nil
}

// handleUserRegistered emails the login PIN. Best-effort only; the account
// exists either way and staff can reissue a PIN.
func (c *Consumer) handleUserRegistered(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.UserRegisteredEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse user.registered payload: %w", err)
	}
	if payload.Email == nil || *payload.Email == "" {
		c.logg.Info(logCtx, "pin email skipped, no address on file")
		return nil
	}
	body := fmt.Sprintf(
		"Welcome %s,\n\nyour PumpLink login PIN is %s. Sign in with your phone number %s.\n",
		payload.Name, payload.PIN, payload.Phone,
	)
	if err := c.mail.Send(ctx, *payload.Email, "Your PumpLink login PIN", body); err != nil {
		c.logg.Error(logCtx, "pin email failed", err)
	}
	return nil
}
