package core

import (
	"fmt"
	"time"
)

// Granularity selects the time-bucketing resolution for aggregation.
type Granularity string

const (
	Yearly  Granularity = "year"
	Monthly Granularity = "month"
	Weekly  Granularity = "week"
)

// ParseGranularity validates a time_period option. The empty string defaults
// to monthly, matching the upload form default.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "":
		return Monthly, nil
	case Yearly, Monthly, Weekly:
		return Granularity(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrBadGranularity, s)
	}
}

// Bucket derives the calendar year and the period key for a date under the
// given granularity. It is a pure function of its inputs; dates are taken in
// their own location, no dependence on the current time or locale.
//
// Key formats: yearly "2006", monthly "2006-01", weekly the Monday-of-week
// date "2006-01-02". All three sort lexically in chronological order.
func Bucket(date time.Time, g Granularity) (year int, period string) {
	year = date.Year()
	switch g {
	case Yearly:
		period = date.Format("2006")
	case Weekly:
		period = WeekStart(date).Format("2006-01-02")
	default:
		period = date.Format("2006-01")
	}
	return year, period
}

// WeekStart returns the Monday of the ISO week containing date, truncated to
// midnight.
func WeekStart(date time.Time) time.Time {
	days := (int(date.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	monday := date.AddDate(0, 0, -days)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, date.Location())
}

// InferGranularity derives the granularity from a period key as produced by
// Bucket: "2006" yearly, "2006-01" monthly, "2006-01-02" weekly. The detail
// endpoints receive only the key, so the resolution travels in its shape.
func InferGranularity(period string) (Granularity, error) {
	switch len(period) {
	case 4:
		if _, err := time.Parse("2006", period); err == nil {
			return Yearly, nil
		}
	case 7:
		if _, err := time.Parse("2006-01", period); err == nil {
			return Monthly, nil
		}
	case 10:
		if _, err := time.Parse("2006-01-02", period); err == nil {
			return Weekly, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrBadPeriod, period)
}
