package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTransactionCreated = "transaction_created"
	EventStatusChanged      = "status_changed"
	EventWalletRecomputed   = "wallet_recomputed"
	EventUserRegistered     = "user_registered"
)

// PaymentEvent is published to the events topic after every committed write.
type PaymentEvent struct {
	EventType      string           `json:"event_type"`
	TransactionID  *uuid.UUID       `json:"transaction_id,omitempty"`
	TrnID          string           `json:"trn_id,omitempty"`
	UserID         uuid.UUID        `json:"user_id"`
	Role           Role             `json:"role,omitempty"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	Status         string           `json:"status,omitempty"`
	PreviousStatus string           `json:"previous_status,omitempty"`
	Delta          *decimal.Decimal `json:"delta,omitempty"`
	Wallet         *decimal.Decimal `json:"wallet,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
}
