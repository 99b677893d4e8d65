package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeBank TransactionType = "bank"
	TypeUPI  TransactionType = "upi"
)

type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	TrnID           string          `json:"trnId"`
	UserID          uuid.UUID       `json:"userId"`
	Amount          decimal.Decimal `json:"amount"`
	AccountHolder   string          `json:"accountHolder"`
	TransactionType TransactionType `json:"transactionType"`
	AccountNumber   string          `json:"accountNumber,omitempty"`
	BankName        string          `json:"bankName,omitempty"`
	IFSC            string          `json:"ifsc,omitempty"`
	UPI             string          `json:"upi,omitempty"`
	Status          string          `json:"status"`
	Remarks         string          `json:"remarks,omitempty"`
	Image           string          `json:"image"`
	PaymentLogs     []PaymentLog    `json:"paymentLogs"`

	// Snapshot of the owner's totals, written only by the wallet recompute.
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PendingAmount  decimal.Decimal `json:"pendingAmount"`
	DeclinedAmount decimal.Decimal `json:"declinedAmount"`
	ApprovedAmount decimal.Decimal `json:"approvedAmount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PaymentLog struct {
	Status  string    `json:"status"`
	Date    time.Time `json:"date"`
	Remarks string    `json:"remarks"`
}

// CreateTransactionInput is checked once by the service before anything is stored.
type CreateTransactionInput struct {
	UserID          string          `validate:"required,uuid"`
	Amount          decimal.Decimal `validate:"-"`
	AccountHolder   string          `validate:"required"`
	TransactionType TransactionType `validate:"required"`
	Status          string          `validate:"required"`
	AccountNumber   string          `validate:"required_if=TransactionType bank"`
	BankName        string
	IFSC            string `validate:"required_if=TransactionType bank"`
	UPI             string `validate:"required_if=TransactionType upi"`
	Evidence        []byte `validate:"-"`
	EvidenceName    string
}

type ListQuery struct {
	Status    string
	StartDate string
	EndDate   string
	Page      int
}

type ListFilter struct {
	UserID *uuid.UUID
	Status string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

type Page struct {
	Items []Transaction `json:"data"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Pages int           `json:"pages"`
}
