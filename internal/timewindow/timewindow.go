// Package timewindow holds the pure time arithmetic shared by validation and
// status derivation: instant parsing, interval overlap and the vendor wire
// format. Nothing here reads the clock; callers pass "now" explicitly.
package timewindow

import (
	"errors"
	"fmt"
	"time"
)

// WireLayout is the vendor's timestamp format for entry windows and container
// modification times: minute precision, no seconds, no offset, implicit UTC.
const WireLayout = "2006-01-02T15:04"

// ErrInvalidTimestamp reports an unparsable timestamp value.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// parseLayouts are tried in order. Offset-less layouts are interpreted as UTC.
var parseLayouts = []string{
	WireLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseInstant parses a timestamp in the vendor wire format, RFC3339, or
// RFC3339 without an offset, and returns the instant normalized to UTC.
func ParseInstant(value string) (time.Time, error) {
	for _, layout := range parseLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
}

// FormatWire renders an instant in the vendor wire format, UTC-normalized.
func FormatWire(t time.Time) string {
	return t.UTC().Format(WireLayout)
}

// IsWire reports whether value is already in exact wire form. Values with
// seconds, an offset, or a different separator must be reformatted before
// submission to the vendor.
func IsWire(value string) bool {
	if len(value) != len(WireLayout) {
		return false
	}
	_, err := time.Parse(WireLayout, value)
	return err == nil
}

// Overlaps reports strict half-open overlap between [aStart, aEnd) and
// [bStart, bEnd): each window starts before the other ends. Two windows that
// merely touch at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// IsWithin reports inclusive membership of t in [start, end].
func IsWithin(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
