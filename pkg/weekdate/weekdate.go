// Package weekdate handles the canonical week-ending date used across all
// weekly metrics: every week is keyed by its Saturday.
package weekdate

import (
	"fmt"
	"strings"
	"time"
)

// MaxDriftDays is the furthest a date may sit from a Saturday before it is
// rejected rather than corrected.
const MaxDriftDays = 3

// IsSaturday reports whether t falls on a Saturday.
func IsSaturday(t time.Time) bool {
	return t.Weekday() == time.Saturday
}

// ToSaturday snaps t to the nearest Saturday. A date already on Saturday is
// returned unchanged; otherwise it moves to whichever Saturday is at most
// three days away. Idempotent.
func ToSaturday(t time.Time) time.Time {
	t = Truncate(t)
	since := daysSinceSaturday(t)
	if since == 0 {
		return t
	}
	if since <= MaxDriftDays {
		return t.AddDate(0, 0, -since)
	}
	return t.AddDate(0, 0, 7-since)
}

// Correct returns the Saturday-corrected week ending for t and whether a
// correction was applied. ok is false when t is further than MaxDriftDays
// from the Saturday it would snap to.
func Correct(t time.Time) (corrected time.Time, changed bool, ok bool) {
	t = Truncate(t)
	if IsSaturday(t) {
		return t, false, true
	}
	snapped := ToSaturday(t)
	drift := snapped.Sub(t) / (24 * time.Hour)
	if drift < 0 {
		drift = -drift
	}
	if drift > MaxDriftDays {
		return t, false, false
	}
	return snapped, true, true
}

// DriftDays returns the absolute distance in days between t and its snapped
// Saturday.
func DriftDays(t time.Time) int {
	t = Truncate(t)
	since := daysSinceSaturday(t)
	if since <= MaxDriftDays {
		return since
	}
	return 7 - since
}

// Parse accepts the date shapes seen in the source files: Australian
// day-first (31/1/2024, 31-01-24) and ISO (2024-01-31), with or without a
// time component.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	formats := []string{
		"2/1/2006",
		"02/01/2006",
		"2/1/06",
		"2-1-2006",
		"02-01-2006",
		"2006-01-02",
		"2006/01/02",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2/1/2006 15:04",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return Truncate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", s)
}

// daysSinceSaturday maps Saturday to 0, Sunday to 1, ... Friday to 6.
func daysSinceSaturday(t time.Time) int {
	return (int(t.Weekday()) + 1) % 7
}

// Truncate drops the time component and rehomes the calendar date at UTC
// midnight, the canonical form every week-ending comparison uses.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
