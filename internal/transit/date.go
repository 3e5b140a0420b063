package transit

import (
	"fmt"
	"time"
)

// Date is a calendar day without a time or a zone. Service calendars and dated
// vehicle journeys are keyed by Date, so it must be comparable.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf truncates a time to its calendar day, in the time's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses the GTFS "YYYYMMDD" form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Midnight returns the naive local datetime at the start of the day. Naive
// datetimes are represented throughout as time.Time values in the UTC location
// holding the local wall-clock reading.
func (d Date) Midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days later (earlier when n is negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Midnight().AddDate(0, 0, n))
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Midnight().Before(other.Midnight())
}

func (d Date) String() string {
	return d.Midnight().Format("2006-01-02")
}

// NaiveLocal converts an absolute instant to the naive local datetime in the
// given zone: the wall-clock reading re-stamped with the UTC location, per the
// convention described on Midnight.
func NaiveLocal(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	y, m, day := local.Date()
	return time.Date(y, m, day, local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), time.UTC)
}
