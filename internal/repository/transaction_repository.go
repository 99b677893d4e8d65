package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/honeynil/PaymentLedgerService/internal/ledger"
	"github.com/honeynil/PaymentLedgerService/internal/models"
)

//go:generate mockgen -source=transaction_repository.go -destination=mocks/mock_transaction_repository.go -package=mocks

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, filter models.ListFilter) ([]models.Transaction, int, error)
	Transition(ctx context.Context, id uuid.UUID, status ledger.Status, remarks string, at time.Time) (*models.TransitionResult, error)
	Summary(ctx context.Context, userID *uuid.UUID) (*models.Summary, error)
	Recompute(ctx context.Context, userID uuid.UUID, at time.Time) ([]models.Transaction, error)
}
