package core

import (
	"time"
)

// Month identifies one fee-schedule month in YYYY-MM form.
//
// The textual form is the canonical one: it is the schedule key, the
// payment foreign key, and the panel column header. Lexicographic order of
// valid months is also chronological order, so sorting the raw strings is
// enough everywhere.
type Month string

// ParseMonth validates and canonicalizes a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return "", ErrUnknownMonth
	}
	return Month(t.Format("2006-01")), nil
}

// MonthOf returns the Month containing t.
func MonthOf(t time.Time) Month {
	return Month(t.Format("2006-01"))
}

func (m Month) Validate() error {
	if _, err := time.Parse("2006-01", string(m)); err != nil {
		return ErrUnknownMonth
	}
	return nil
}

func (m Month) String() string {
	return string(m)
}

// Year returns the calendar year of the month.
func (m Month) Year() int {
	t, err := time.Parse("2006-01", string(m))
	if err != nil {
		return 0
	}
	return t.Year()
}

// Before reports whether m is chronologically before other.
func (m Month) Before(other Month) bool {
	return string(m) < string(other)
}
