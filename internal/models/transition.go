package models

import "github.com/shopspring/decimal"

type TransitionResult struct {
	Transaction    *Transaction
	PreviousStatus string
	Delta          decimal.Decimal
	Wallet         decimal.Decimal
}
