// Package trend provides the ranking aggregation period.
package trend

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Period is the aggregation window a ranking is computed over.
type Period string

const (
	PeriodAll   Period = "all"
	PeriodMonth Period = "month"
	PeriodWeek  Period = "week"
	PeriodDay   Period = "day"
)

// ErrInvalidPeriod is returned when a period string is not recognised.
var ErrInvalidPeriod = errors.New("invalid trend period")

// Periods returns every period in display order.
func Periods() []Period {
	return []Period{PeriodAll, PeriodMonth, PeriodWeek, PeriodDay}
}

// ParsePeriod parses a period name (case-insensitive).
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", errors.Wrapf(ErrInvalidPeriod, "%q", s)
	}
	return p, nil
}

// Valid reports whether p is one of the known periods.
func (p Period) Valid() bool {
	switch p {
	case PeriodAll, PeriodMonth, PeriodWeek, PeriodDay:
		return true
	default:
		return false
	}
}

// String returns the period name.
func (p Period) String() string {
	return string(p)
}

// Window returns the length of the aggregation window.
// PeriodAll has no window and returns 0.
func (p Period) Window() time.Duration {
	switch p {
	case PeriodMonth:
		return 30 * 24 * time.Hour
	case PeriodWeek:
		return 7 * 24 * time.Hour
	case PeriodDay:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Since returns the lower bound of the window ending at now.
// PeriodAll returns the zero time.
func (p Period) Since(now time.Time) time.Time {
	w := p.Window()
	if w == 0 {
		return time.Time{}
	}
	return now.Add(-w)
}
