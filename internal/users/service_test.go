package users

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pumplink/pumplink-backend/pkg/config"
	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/enums"
	pkgerrors "github.com/pumplink/pumplink-backend/pkg/errors"
	"github.com/pumplink/pumplink-backend/pkg/outbox"
	"github.com/pumplink/pumplink-backend/pkg/outbox/payloads"
	"github.com/pumplink/pumplink-backend/pkg/security"
)

type stubUsersRepo struct {
	users     map[string]*models.User
	createErr error
}

func (s *stubUsersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user.ID = uuid.New()
	if s.users == nil {
		s.users = map[string]*models.User{}
	}
	s.users[user.Phone] = user
	return user, nil
}

func (s *stubUsersRepo) FindByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	for _, user := range s.users {
		if user.ID == userID {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUsersRepo) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	if user, ok := s.users[phone]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUsersRepo) ListByRole(ctx context.Context, role enums.ActorRole, pharmacyID *uuid.UUID) ([]models.User, error) {
	var out []models.User
	for _, user := range s.users {
		if user.Role == role {
			out = append(out, *user)
		}
	}
	return out, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubLimiter struct {
	denyScopes map[string]bool
	calls      []string
}

func (s *stubLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	s.calls = append(s.calls, scope)
	if s.denyScopes[scope] {
		return false, limit + 1, nil
	}
	return true, 1, nil
}

func testConfigs() (config.JWTConfig, config.PINConfig, config.AuthRateLimitConfig) {
	jwtCfg := config.JWTConfig{Secret: "test-secret", Issuer: "pumplink-test", ExpirationMinutes: 30}
	// Weak parameters keep the Argon2id work factor test-friendly.
	pinCfg := config.PINConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16}
	rlCfg := config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginPhoneLimit: 5, LoginIPLimit: 20}
	return jwtCfg, pinCfg, rlCfg
}

func newTestService(t *testing.T, repo *stubUsersRepo, publisher *stubOutboxPublisher, limiter *stubLimiter) Service {
	t.Helper()
	jwtCfg, pinCfg, rlCfg := testConfigs()
	svc, err := NewService(repo, stubTxRunner{}, publisher, limiter, jwtCfg, pinCfg, rlCfg)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected code %s, got %v", code, err)
	}
}

func TestRegisterClient(t *testing.T) {
	repo := &stubUsersRepo{}
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, repo, publisher, &stubLimiter{})

	email := "maria@example.com"
	user, err := svc.RegisterClient(context.Background(), RegisterInput{
		Name:  " Maria Lopez ",
		Phone: "+31612345678",
		Email: &email,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if user.Role != enums.ActorRoleClient {
		t.Fatalf("unexpected role %s", user.Role)
	}
	if user.Name != "Maria Lopez" {
		t.Fatalf("name not trimmed: %q", user.Name)
	}
	if !strings.HasPrefix(user.PINHash, "$argon2id$") {
		t.Fatalf("pin hash not argon2id: %q", user.PINHash)
	}

	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.OutboxEventUserRegistered {
		t.Fatalf("expected user.registered event, got %+v", publisher.events)
	}
	payload, ok := publisher.events[0].Data.(payloads.UserRegisteredEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", publisher.events[0].Data)
	}
	if len(payload.PIN) != generatedPINLength {
		t.Fatalf("unexpected pin length %d", len(payload.PIN))
	}
	// The event PIN must verify against the stored hash.
	ok, err = security.VerifyPIN(payload.PIN, user.PINHash)
	if err != nil || !ok {
		t.Fatalf("event pin does not verify: ok=%v err=%v", ok, err)
	}
}

func TestRegisterDriver_RequiresPharmacy(t *testing.T) {
	svc := newTestService(t, &stubUsersRepo{}, &stubOutboxPublisher{}, &stubLimiter{})

	_, err := svc.RegisterDriver(context.Background(), RegisterInput{
		Name:  "Driver",
		Phone: "+31600000001",
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestRegisterStaff(t *testing.T) {
	svc := newTestService(t, &stubUsersRepo{}, &stubOutboxPublisher{}, &stubLimiter{})

	pharmacyID := uuid.New()
	user, err := svc.RegisterStaff(context.Background(), RegisterInput{
		Name:       "Staff",
		Phone:      "+31600000002",
		PharmacyID: &pharmacyID,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if user.Role != enums.ActorRolePharmacyStaff {
		t.Fatalf("unexpected role %s", user.Role)
	}
}

func TestLoginWithPIN(t *testing.T) {
	repo := &stubUsersRepo{}
	publisher := &stubOutboxPublisher{}
	limiter := &stubLimiter{}
	svc := newTestService(t, repo, publisher, limiter)

	user, err := svc.RegisterClient(context.Background(), RegisterInput{
		Name:  "Maria",
		Phone: "+31612345678",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	pin := publisher.events[0].Data.(payloads.UserRegisteredEvent).PIN

	result, err := svc.LoginWithPIN(context.Background(), LoginInput{
		Phone:    "+31612345678",
		PIN:      pin,
		ClientIP: "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.AccessToken == "" {
		t.Fatalf("empty access token")
	}
	if result.User.ID != user.ID {
		t.Fatalf("user mismatch")
	}
	if len(limiter.calls) != 2 {
		t.Fatalf("expected phone and ip limit checks, got %v", limiter.calls)
	}
}

func TestLoginWithPIN_WrongPIN(t *testing.T) {
	repo := &stubUsersRepo{}
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, repo, publisher, &stubLimiter{})

	if _, err := svc.RegisterClient(context.Background(), RegisterInput{Name: "Maria", Phone: "+31612345678"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, err := svc.LoginWithPIN(context.Background(), LoginInput{Phone: "+31612345678", PIN: "000000x"})
	expectCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLoginWithPIN_UnknownPhone(t *testing.T) {
	svc := newTestService(t, &stubUsersRepo{}, &stubOutboxPublisher{}, &stubLimiter{})

	_, err := svc.LoginWithPIN(context.Background(), LoginInput{Phone: "+31699999999", PIN: "123456"})
	expectCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLoginWithPIN_RateLimited(t *testing.T) {
	limiter := &stubLimiter{denyScopes: map[string]bool{
		"login:phone:+31612345678": true,
	}}
	svc := newTestService(t, &stubUsersRepo{}, &stubOutboxPublisher{}, limiter)

	_, err := svc.LoginWithPIN(context.Background(), LoginInput{Phone: "+31612345678", PIN: "123456"})
	expectCode(t, err, pkgerrors.CodeRateLimit)
}
