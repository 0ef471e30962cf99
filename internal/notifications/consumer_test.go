package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/enums"
	"github.com/pumplink/pumplink-backend/pkg/logger"
	"github.com/pumplink/pumplink-backend/pkg/outbox/payloads"
)

type fakeDirectory struct {
	byID   map[uuid.UUID]*models.User
	byRole map[enums.ActorRole][]models.User
}

func (f *fakeDirectory) FindByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if user, ok := f.byID[userID]; ok {
		return user, nil
	}
	return nil, io.EOF
}

func (f *fakeDirectory) ListByRole(ctx context.Context, role enums.ActorRole, pharmacyID *uuid.UUID) ([]models.User, error) {
	return f.byRole[role], nil
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

type sentMail struct {
	to      string
	subject string
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject})
	return nil
}

func newTestConsumer(repo *fakeRepository, users *fakeDirectory, mail *fakeMailer) *Consumer {
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	return &Consumer{
		repo:  repo,
		users: users,
		mail:  mail,
		logg:  logg,
	}
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestHandleReturnRequested_Broadcast(t *testing.T) {
	pharmacyID := uuid.New()
	staff := []models.User{
		{ID: uuid.New(), Role: enums.ActorRolePharmacyStaff},
		{ID: uuid.New(), Role: enums.ActorRolePharmacyStaff},
	}
	drivers := []models.User{
		{ID: uuid.New(), Role: enums.ActorRoleDriver},
		{ID: uuid.New(), Role: enums.ActorRoleDriver},
		{ID: uuid.New(), Role: enums.ActorRoleDriver},
	}
	repo := &fakeRepository{}
	consumer := newTestConsumer(repo, &fakeDirectory{byRole: map[enums.ActorRole][]models.User{
		enums.ActorRolePharmacyStaff: staff,
		enums.ActorRoleDriver:        drivers,
	}}, &fakeMailer{})

	payload := mustMarshal(t, payloads.ReturnRequestedEvent{
		ReturnOrderID: uuid.New(),
		PharmacyID:    pharmacyID,
		ClientID:      uuid.New(),
		PumpCodes:     []string{"PMP-001", "PMP-002"},
	})
	if err := consumer.handleReturnRequested(context.Background(), payload, context.Background()); err != nil {
		t.Fatalf("expected success got %v", err)
	}

	// Staff and driver rows land in one bulk insert.
	if len(repo.batches) != 1 {
		t.Fatalf("expected a single batch insert, got %d", len(repo.batches))
	}
	if len(repo.batches[0]) != len(staff)+len(drivers) {
		t.Fatalf("expected %d rows, got %d", len(staff)+len(drivers), len(repo.batches[0]))
	}
	for _, row := range repo.batches[0] {
		if row.Type != enums.NotificationTypeReturnRequested {
			t.Fatalf("unexpected notification type %s", row.Type)
		}
	}
}

func TestHandleReturnCompleted(t *testing.T) {
	driverID := uuid.New()
	clientID := uuid.New()
	repo := &fakeRepository{}
	consumer := newTestConsumer(repo, &fakeDirectory{}, &fakeMailer{})

	payload := mustMarshal(t, payloads.ReturnCompletedEvent{
		ReturnOrderID: uuid.New(),
		PharmacyID:    uuid.New(),
		ClientID:      clientID,
		DriverID:      &driverID,
	})
	if err := consumer.handleReturnCompleted(context.Background(), payload, context.Background()); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.batches) != 1 || len(repo.batches[0]) != 2 {
		t.Fatalf("expected client and driver rows, got %+v", repo.batches)
	}
	if repo.batches[0][0].UserID != clientID || repo.batches[0][1].UserID != driverID {
		t.Fatalf("unexpected recipients %+v", repo.batches[0])
	}
}

func TestHandleOrderDelivered_SendsReceipt(t *testing.T) {
	clientID := uuid.New()
	email := "maria@example.com"
	repo := &fakeRepository{}
	mail := &fakeMailer{}
	consumer := newTestConsumer(repo, &fakeDirectory{byID: map[uuid.UUID]*models.User{
		clientID: {ID: clientID, Name: "Maria", Email: &email},
	}}, mail)

	payload := mustMarshal(t, payloads.OrderDeliveredEvent{
		OrderID:  uuid.New(),
		ClientID: clientID,
	})
	if err := consumer.handleOrderDelivered(context.Background(), payload, context.Background()); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.batches) != 1 || len(repo.batches[0]) != 1 {
		t.Fatalf("expected client notification, got %+v", repo.batches)
	}
	if len(mail.sent) != 1 || mail.sent[0].to != email {
		t.Fatalf("expected receipt email, got %+v", mail.sent)
	}
}

func TestHandleOrderDelivered_MailFailureIsBestEffort(t *testing.T) {
	clientID := uuid.New()
	email := "maria@example.com"
	repo := &fakeRepository{}
	consumer := newTestConsumer(repo, &fakeDirectory{byID: map[uuid.UUID]*models.User{
		clientID: {ID: clientID, Name: "Maria", Email: &email},
	}}, &fakeMailer{err: io.ErrClosedPipe})

	payload := mustMarshal(t, payloads.OrderDeliveredEvent{
		OrderID:  uuid.New(),
		ClientID: clientID,
	})
	if err := consumer.handleOrderDelivered(context.Background(), payload, context.Background()); err != nil {
		t.Fatalf("mail failure must not fail the event, got %v", err)
	}
}

func TestHandleUserRegistered_PINEmail(t *testing.T) {
	email := "driver@example.com"
	mail := &fakeMailer{}
	consumer := newTestConsumer(&fakeRepository{}, &fakeDirectory{}, mail)

	payload := mustMarshal(t, payloads.UserRegisteredEvent{
		UserID: uuid.New(),
		Role:   enums.ActorRoleDriver,
		Name:   "Driver",
		Phone:  "+31600000001",
		Email:  &email,
		PIN:    "123456",
	})
	if err := consumer.handleUserRegistered(context.Background(), payload, context.Background()); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(mail.sent) != 1 || mail.sent[0].to != email {
		t.Fatalf("expected pin email, got %+v", mail.sent)
	}
}

func TestHandleUserRegistered_NoEmail(t *testing.T) {
	mail := &fakeMailer{}
	consumer := newTestConsumer(&fakeRepository{}, &fakeDirectory{}, mail)

	payload := mustMarshal(t, payloads.UserRegisteredEvent{
		UserID: uuid.New(),
		Name:   "Driver",
		Phone:  "+31600000001",
		PIN:    "123456",
	})
	if err := consumer.handleUserRegistered(context.Background(), payload, context.Background()); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(mail.sent) != 0 {
		t.Fatalf("expected no email, got %+v", mail.sent)
	}
}
