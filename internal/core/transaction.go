package core

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrMissingField    = errors.New("missing required field")
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrBadGranularity  = errors.New("invalid time period option")
	ErrBadPeriod       = errors.New("invalid period key")
)

type (
	// Date is a calendar date. The time-of-day part is ignored by the
	// pipeline; uploads may carry either plain dates or full timestamps.
	Date struct {
		time.Time
	}

	// Transaction is the canonical upload record. Amount is in cents of
	// Currency; the pipeline derives base-currency values from it on every
	// recomputation rather than mutating it.
	Transaction struct {
		Date        Date
		Description string
		Category    string
		Amount      Money
		Currency    string
	}
)

// dateLayouts are the accepted upload date formats, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseDate parses an upload date string.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, ErrInvalidDate
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// String renders the date in the wire format used everywhere in responses.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return errors.New("empty category")
	}
	if _, err := Rate(t.Currency); err != nil {
		return err
	}
	return nil
}
