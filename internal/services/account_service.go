package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	stderrors "errors"

	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/auth"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/kafka"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/redis"
	"github.com/honeynil/PaymentLedgerService/internal/models"
	"github.com/honeynil/PaymentLedgerService/internal/repository"
	pkgerrors "github.com/honeynil/PaymentLedgerService/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

//go:generate mockgen -source=account_service.go -destination=mocks/mock_account_service.go -package=mocks

type AccountService interface {
	Register(ctx context.Context, role models.Role, in models.RegisterInput) (*models.User, error)
	Login(ctx context.Context, role models.Role, email, password string) (string, *models.User, error)
}

type accountService struct {
	userRepo    repository.UserRepository
	redisClient redis.RedisClient
	events      *eventPublisher
	tokens      *auth.JWTManager
}

func NewAccountService(
	userRepo repository.UserRepository,
	redisClient redis.RedisClient,
	producer kafka.KafkaProducer,
	eventsTopic string,
	tokens *auth.JWTManager,
) *accountService {
	return &accountService{
		userRepo:    userRepo,
		redisClient: redisClient,
		events:      newEventPublisher(producer, eventsTopic),
		tokens:      tokens,
	}
}

// Register creates a user or admin account. Emails are unique per role.
func (s *accountService) Register(ctx context.Context, role models.Role, in models.RegisterInput) (*models.User, error) {
	tracer := otel.Tracer("account-service")
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	if err := checkInput(in); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	existing, err := s.userRepo.GetByEmail(ctx, email, role)
	if existing != nil {
		span.SetStatus(codes.Error, "email already registered")
		slog.Warn("email already registered", "email", email, "role", role, "existing_id", existing.ID)
		return nil, pkgerrors.ErrUserAlreadyExists
	}
	if err != nil && !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user check failed")
		slog.Error("failed to check user existence", "email", email, "error", err)
		return nil, fmt.Errorf("%w: failed to check user existence", pkgerrors.ErrInternal)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		slog.Error("failed to hash password", "email", email, "error", err)
		return nil, fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user creation failed")
		if stderrors.Is(err, pkgerrors.ErrUserAlreadyExists) {
			return nil, err
		}
		slog.Error("failed to create user in DB", "email", email, "error", err)
		return nil, fmt.Errorf("%w: failed to create user", pkgerrors.ErrInternal)
	}

	s.events.publish(ctx, user.ID.String(), models.PaymentEvent{
		EventType:  models.EventUserRegistered,
		UserID:     user.ID,
		Role:       user.Role,
		OccurredAt: user.CreatedAt,
	})

	slog.Info("user registered successfully", "user_id", user.ID, "role", role)
	return user, nil
}

// Login checks the password and issues a token. Only the latest token of a
// user is accepted by the auth middleware.
func (s *accountService) Login(ctx context.Context, role models.Role, email, password string) (string, *models.User, error) {
	tracer := otel.Tracer("account-service")
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email), role)
	if err != nil {
		span.SetStatus(codes.Error, "user lookup failed")
		slog.Error("failed to login", "email", email, "role", role, "error", err)
		return "", nil, pkgerrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		span.SetStatus(codes.Error, "invalid password")
		slog.Error("invalid password", "email", email, "role", role)
		return "", nil, pkgerrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to generate JWT", "error", err)
		return "", nil, fmt.Errorf("%w: failed to generate token", pkgerrors.ErrInternal)
	}

	if err := s.redisClient.Set(ctx, auth.TokenKey(user.ID), token, s.tokens.TTL()); err != nil {
		span.RecordError(err)
		slog.Error("failed to cache JWT", "user_id", user.ID, "error", err)
		return "", nil, fmt.Errorf("%w: failed to store session", pkgerrors.ErrInternal)
	}

	slog.Info("user logged in", "user_id", user.ID, "role", role)
	return token, user, nil
}
