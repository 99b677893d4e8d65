package ledger

import (
	"fmt"
	"time"

	pkgerrors "github.com/honeynil/PaymentLedgerService/pkg/errors"
)

const dateLayout = "2006-01-02"

// DayRange turns YYYY-MM-DD bounds into an inclusive time range in loc. The
// end bound is pushed to the last instant of its day so that start == end
// covers the whole calendar day. Empty bounds stay open (nil).
func DayRange(start, end string, loc *time.Location) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if start != "" {
		d, err := time.ParseInLocation(dateLayout, start, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: startDate %q", pkgerrors.ErrInvalidInput, start)
		}
		from = &d
	}
	if end != "" {
		d, err := time.ParseInLocation(dateLayout, end, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: endDate %q", pkgerrors.ErrInvalidInput, end)
		}
		last := d.AddDate(0, 0, 1).Add(-time.Nanosecond)
		to = &last
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("%w: endDate before startDate", pkgerrors.ErrInvalidInput)
	}
	return from, to, nil
}

// Pages is ceil(total/limit).
func Pages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
