package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/honeynil/PaymentLedgerService/internal/models"
)

//go:generate mockgen -source=user_repository.go -destination=mocks/mock_user_repository.go -package=mocks

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string, role models.Role) (*models.User, error)
}
