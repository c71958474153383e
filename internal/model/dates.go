package model

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the civil date format used by inputs and CLI flags.
	DateLayout = "2006-01-02"

	// TimestampLayout is the snapshot timestamp format. Chronological order
	// equals lexicographic order, so timestamps sort as plain strings.
	TimestampLayout = "20060102_150405"
)

// ParseDate parses a YYYY-MM-DD civil date into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatDate renders t as a YYYY-MM-DD civil date.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// MidnightUTC truncates t to 00:00:00 UTC of the same calendar day.
func MidnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatTimestamp renders t as a snapshot timestamp.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a snapshot timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// ValidTimestamp reports whether s is a well-formed snapshot timestamp.
func ValidTimestamp(s string) bool {
	if len(s) != len(TimestampLayout) {
		return false
	}
	_, err := time.Parse(TimestampLayout, s)
	return err == nil
}

// DayTimestamp is the snapshot timestamp for a daily build of date d.
// Rebuilding the same date overwrites the same snapshot.
func DayTimestamp(d time.Time) string {
	return FormatTimestamp(MidnightUTC(d))
}
