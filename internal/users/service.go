package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pumplink/pumplink-backend/pkg/auth"
	"github.com/pumplink/pumplink-backend/pkg/config"
	"github.com/pumplink/pumplink-backend/pkg/db"
	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/enums"
	pkgerrors "github.com/pumplink/pumplink-backend/pkg/errors"
	"github.com/pumplink/pumplink-backend/pkg/outbox"
	"github.com/pumplink/pumplink-backend/pkg/outbox/payloads"
	"github.com/pumplink/pumplink-backend/pkg/security"
)

const generatedPINLength = 6

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Service handles registration and PIN login. Registration mints a random
// PIN, stores only its Argon2id hash, and hands the clear PIN to the worker
// through the outbox for the welcome email.
type Service interface {
	RegisterClient(ctx context.Context, input RegisterInput) (*models.User, error)
	RegisterDriver(ctx context.Context, input RegisterInput) (*models.User, error)
	RegisterStaff(ctx context.Context, input RegisterInput) (*models.User, error)
	LoginWithPIN(ctx context.Context, input LoginInput) (*LoginResult, error)
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	limiter rateLimiter
	jwtCfg  config.JWTConfig
	pinCfg  config.PINConfig
	rlCfg   config.AuthRateLimitConfig
}

// NewService builds a users service with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	outboxSvc outboxPublisher,
	limiter rateLimiter,
	jwtCfg config.JWTConfig,
	pinCfg config.PINConfig,
	rlCfg config.AuthRateLimitConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outboxSvc,
		limiter: limiter,
		jwtCfg:  jwtCfg,
		pinCfg:  pinCfg,
		rlCfg:   rlCfg,
	}, nil
}

func (s *service) RegisterClient(ctx context.Context, input RegisterInput) (*models.User, error) {
	return s.register(ctx, enums.ActorRoleClient, input)
}

func (s *service) RegisterDriver(ctx context.Context, input RegisterInput) (*models.User, error) {
	return s.register(ctx, enums.ActorRoleDriver, input)
}

func (s *service) RegisterStaff(ctx context.Context, input RegisterInput) (*models.User, error) {
	return s.register(ctx, enums.ActorRolePharmacyStaff, input)
}

func (s *service) register(ctx context.Context, role enums.ActorRole, input RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	phone := strings.TrimSpace(input.Phone)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone required")
	}
	// Staff and drivers operate on behalf of a pharmacy.
	if role != enums.ActorRoleClient && (input.PharmacyID == nil || *input.PharmacyID == uuid.Nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacy id required for this role")
	}

	pin, err := security.GeneratePIN(generatedPINLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate pin")
	}
	hash, err := security.HashPIN(pin, s.pinCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash pin")
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user := &models.User{
			Role:       role,
			Name:       name,
			Phone:      phone,
			Email:      input.Email,
			PINHash:    hash,
			PharmacyID: input.PharmacyID,
		}
		if _, err := repo.Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "idx_users_phone") {
				return pkgerrors.New(pkgerrors.CodeConflict, "phone already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}

		created = user
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventUserRegistered,
			AggregateType: outbox.AggregateUser,
			AggregateID:   user.ID,
			Version:       1,
			Data: payloads.UserRegisteredEvent{
				UserID: user.ID,
				Role:   user.Role,
				Name:   user.Name,
				Phone:  user.Phone,
				Email:  user.Email,
				PIN:    pin,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) LoginWithPIN(ctx context.Context, input LoginInput) (*LoginResult, error) {
	phone := strings.TrimSpace(input.Phone)
	if phone == "" || input.PIN == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone and pin required")
	}

	if err := s.allowLogin(ctx, phone, input.ClientIP); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid phone or pin")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	ok, err := security.VerifyPIN(input.PIN, user.PINHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify pin")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid phone or pin")
	}

	token, err := auth.MintAccessToken(s.jwtCfg, time.Now(), auth.AccessTokenPayload{
		UserID:     user.ID,
		Role:       user.Role,
		PharmacyID: user.PharmacyID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &LoginResult{AccessToken: token, User: user}, nil
}

func (s *service) allowLogin(ctx context.Context, phone, clientIP string) error {
	allowed, _, err := s.limiter.FixedWindowAllow(ctx, "login:phone:"+phone, int64(s.rlCfg.LoginPhoneLimit), s.rlCfg.LoginWindow)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit check")
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts for this phone")
	}
	if clientIP != "" {
		allowed, _, err = s.limiter.FixedWindowAllow(ctx, "login:ip:"+clientIP, int64(s.rlCfg.LoginIPLimit), s.rlCfg.LoginWindow)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit check")
		}
		if !allowed {
			return pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts from this address")
		}
	}
	return nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
