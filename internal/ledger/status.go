// Package ledger holds the wallet rules that do not depend on storage:
// the status enumeration, the balance delta of a transition, reference
// numbers and calendar-day ranges.
package ledger

import (
	"strings"

	pkgerrors "github.com/honeynil/PaymentLedgerService/pkg/errors"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusDeclined Status = "Declined"
)

var statusAliases = map[string]Status{
	"pending":  StatusPending,
	"approve":  StatusApproved,
	"approved": StatusApproved,
	"decline":  StatusDeclined,
	"declined": StatusDeclined,
	"rejected": StatusDeclined,
}

// ParseStatus returns the canonical status for known spellings. Any other
// non-empty value is an administrator's free-text status and is kept as is.
func ParseStatus(raw string) (Status, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", pkgerrors.ErrInvalidStatus
	}
	if canonical, ok := statusAliases[strings.ToLower(s)]; ok {
		return canonical, nil
	}
	return Status(s), nil
}

func (s Status) String() string { return string(s) }

func (s Status) IsApproved() bool { return s == StatusApproved }

// Delta is the signed wallet adjustment for moving a transaction of the given
// amount from old to next. Only the edges into and out of Approved move money,
// so repeating a transition is a no-op for the balance.
func Delta(old, next Status, amount decimal.Decimal) decimal.Decimal {
	switch {
	case next.IsApproved() && !old.IsApproved():
		return amount
	case old.IsApproved() && !next.IsApproved():
		return amount.Neg()
	default:
		return decimal.Zero
	}
}

// Normalize reads a stored status, mapping legacy spellings onto the
// canonical values. A blank stored status is treated as Pending.
func Normalize(raw string) Status {
	s, err := ParseStatus(raw)
	if err != nil {
		return StatusPending
	}
	return s
}
