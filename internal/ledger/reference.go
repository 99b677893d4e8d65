package ledger

import "fmt"

const (
	PaymentCounter = "payment"
	trnPrefix      = "TRN"
)

func FormatTrnID(seq int64) string {
	return fmt.Sprintf("%s%04d", trnPrefix, seq)
}
