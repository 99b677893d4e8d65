package models

import "github.com/shopspring/decimal"

type Summary struct {
	PendingAmount  decimal.Decimal `json:"pendingAmount"`
	PendingCount   int64           `json:"pendingCount"`
	ApprovedAmount decimal.Decimal `json:"approvedAmount"`
	ApprovedCount  int64           `json:"approvedCount"`
	DeclinedAmount decimal.Decimal `json:"declinedAmount"`
	DeclinedCount  int64           `json:"declinedCount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	TotalCount     int64           `json:"totalCount"`
}
