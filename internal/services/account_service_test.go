package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/auth"
	kafkamocks "github.com/honeynil/PaymentLedgerService/internal/infrastructure/kafka/mocks"
	redismocks "github.com/honeynil/PaymentLedgerService/internal/infrastructure/redis/mocks"
	"github.com/honeynil/PaymentLedgerService/internal/models"
	repositorymocks "github.com/honeynil/PaymentLedgerService/internal/repository/mocks"
	pkgerrors "github.com/honeynil/PaymentLedgerService/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccountService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userRepo := repositorymocks.NewMockUserRepository(ctrl)
	redisClient := redismocks.NewMockRedisClient(ctrl)
	kafkaProducer := kafkamocks.NewMockKafkaProducer(ctrl)
	tokens := auth.NewJWTManager("secret", time.Hour)

	ctx := context.Background()
	service := NewAccountService(userRepo, redisClient, kafkaProducer, "payments", tokens)

	t.Run("successful login", func(t *testing.T) {
		email := "admin@example.com"
		password := "testpass"
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		user := &models.User{
			ID:           uuid.New(),
			Email:        email,
			PasswordHash: string(hashedPassword),
			Role:         models.RoleAdmin,
		}

		userRepo.EXPECT().GetByEmail(gomock.Any(), email, models.RoleAdmin).Return(user, nil)
		redisClient.EXPECT().Set(gomock.Any(), "user:"+user.ID.String()+":token", gomock.Any(), time.Hour).Return(nil)

		token, got, err := service.Login(ctx, models.RoleAdmin, email, password)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, user.ID, got.ID)

		claims, err := tokens.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, claims.Role)
	})

	t.Run("unknown account", func(t *testing.T) {
		userRepo.EXPECT().GetByEmail(gomock.Any(), "nobody@example.com", models.RoleUser).Return(nil, pkgerrors.ErrUserNotFound)

		token, _, err := service.Login(ctx, models.RoleUser, "nobody@example.com", "x")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidCredentials)
		assert.Empty(t, token)
	})

	t.Run("wrong password", func(t *testing.T) {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
		userRepo.EXPECT().GetByEmail(gomock.Any(), "u@example.com", models.RoleUser).
			Return(&models.User{ID: uuid.New(), PasswordHash: string(hashedPassword)}, nil)

		_, _, err := service.Login(ctx, models.RoleUser, "u@example.com", "wrong")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidCredentials)
	})

	t.Run("session store unavailable", func(t *testing.T) {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("pass"), bcrypt.MinCost)
		userRepo.EXPECT().GetByEmail(gomock.Any(), "u@example.com", models.RoleUser).
			Return(&models.User{ID: uuid.New(), PasswordHash: string(hashedPassword), Role: models.RoleUser}, nil)
		redisClient.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), time.Hour).Return(errors.New("redis down"))

		_, _, err := service.Login(ctx, models.RoleUser, "u@example.com", "pass")
		assert.ErrorIs(t, err, pkgerrors.ErrInternal)
	})
}

func TestAccountService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userRepo := repositorymocks.NewMockUserRepository(ctrl)
	redisClient := redismocks.NewMockRedisClient(ctrl)
	kafkaProducer := kafkamocks.NewMockKafkaProducer(ctrl)

	ctx := context.Background()
	service := NewAccountService(userRepo, redisClient, kafkaProducer, "payments", auth.NewJWTManager("secret", time.Hour))

	t.Run("successful register", func(t *testing.T) {
		in := models.RegisterInput{Name: "Asha", Email: "Asha@Example.com", Password: "secret1"}

		userRepo.EXPECT().GetByEmail(gomock.Any(), "asha@example.com", models.RoleUser).Return(nil, pkgerrors.ErrUserNotFound)
		userRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
			assert.Equal(t, "asha@example.com", u.Email)
			assert.Equal(t, models.RoleUser, u.Role)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")))
			u.ID = uuid.New()
			return nil
		})
		kafkaProducer.EXPECT().Send(gomock.Any(), "payments", gomock.Any(), gomock.Any()).Return(nil)

		user, err := service.Register(ctx, models.RoleUser, in)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, user.ID)
	})

	t.Run("email exists", func(t *testing.T) {
		in := models.RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "secret1"}
		userRepo.EXPECT().GetByEmail(gomock.Any(), "asha@example.com", models.RoleAdmin).
			Return(&models.User{ID: uuid.New()}, nil)

		user, err := service.Register(ctx, models.RoleAdmin, in)
		assert.ErrorIs(t, err, pkgerrors.ErrUserAlreadyExists)
		assert.Nil(t, user)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := service.Register(ctx, models.RoleUser, models.RegisterInput{Name: "A", Email: "not-an-email", Password: "123"})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
		assert.Contains(t, err.Error(), "Email")
		assert.Contains(t, err.Error(), "Password")
	})

	t.Run("lost race on unique email", func(t *testing.T) {
		in := models.RegisterInput{Name: "Asha", Email: "race@example.com", Password: "secret1"}
		userRepo.EXPECT().GetByEmail(gomock.Any(), "race@example.com", models.RoleUser).Return(nil, pkgerrors.ErrUserNotFound)
		userRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(pkgerrors.ErrUserAlreadyExists)

		_, err := service.Register(ctx, models.RoleUser, in)
		assert.ErrorIs(t, err, pkgerrors.ErrUserAlreadyExists)
	})
}
