package calendar

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDate is returned for calendar dates that do not exist.
var ErrInvalidDate = errors.New("invalid calendar date")

// ErrInvalidRange is returned when a range's end precedes its start.
var ErrInvalidRange = errors.New("range end before start")

// Date is a timezone-naive civil date. Assignments are due on a date, not at
// an instant, so time-of-day and zone never enter the arithmetic.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New validates the components and returns the date. Out-of-range days
// (e.g. February 30) are rejected rather than normalized.
func New(year int, month time.Month, day int) (Date, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, int(month), day)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// Parse parses a date in YYYY-MM-DD form.
func Parse(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// FromTime truncates a time to its civil date in the time's location.
func FromTime(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Weekday returns the day of week indexed 0=Sunday..6=Saturday.
func (d Date) Weekday() int {
	return int(d.Time().Weekday())
}

// ISOWeek returns the ISO-8601 week number.
func (d Date) ISOWeek() int {
	_, week := d.Time().ISOWeek()
	return week
}

// IsOddWeek reports whether the date falls in an odd ISO week.
func (d Date) IsOddWeek() bool {
	return d.ISOWeek()%2 == 1
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// Range returns every date from start through end inclusive, ascending.
func Range(start, end Date) ([]Date, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, start, end)
	}
	var dates []Date
	for d := start; !end.Before(d); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates, nil
}
