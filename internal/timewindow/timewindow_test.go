package timewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datetime(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestParseInstant_WireFormat(t *testing.T) {
	got, err := ParseInstant("2026-03-15T09:30")
	require.NoError(t, err)
	assert.Equal(t, datetime(2026, time.March, 15, 9, 30), got)
}

func TestParseInstant_RFC3339(t *testing.T) {
	got, err := ParseInstant("2026-03-15T09:30:00+02:00")
	require.NoError(t, err)
	// Normalized to UTC.
	assert.Equal(t, datetime(2026, time.March, 15, 7, 30), got)
}

func TestParseInstant_NoOffsetWithSeconds(t *testing.T) {
	got, err := ParseInstant("2026-03-15T09:30:45")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 15, 9, 30, 45, 0, time.UTC), got)
}

func TestParseInstant_Invalid(t *testing.T) {
	for _, value := range []string{"", "not-a-date", "2026-03-15", "15.03.2026 09:30"} {
		_, err := ParseInstant(value)
		assert.ErrorIs(t, err, ErrInvalidTimestamp, "value %q", value)
	}
}

func TestFormatWire(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	local := time.Date(2026, time.March, 15, 11, 30, 45, 0, loc)
	assert.Equal(t, "2026-03-15T09:30", FormatWire(local))
}

func TestIsWire(t *testing.T) {
	assert.True(t, IsWire("2026-03-15T09:30"))
	assert.False(t, IsWire("2026-03-15T09:30:00"))
	assert.False(t, IsWire("2026-03-15T09:30:00Z"))
	assert.False(t, IsWire("2026-03-15 09:30"))
}

func TestOverlaps(t *testing.T) {
	aStart := datetime(2026, 1, 15, 8, 0)
	aEnd := datetime(2026, 1, 15, 16, 0)

	tests := []struct {
		name   string
		bStart time.Time
		bEnd   time.Time
		want   bool
	}{
		{"disjoint before", datetime(2026, 1, 15, 5, 0), datetime(2026, 1, 15, 7, 0), false},
		{"disjoint after", datetime(2026, 1, 15, 17, 0), datetime(2026, 1, 15, 19, 0), false},
		{"touching end to start", datetime(2026, 1, 15, 16, 0), datetime(2026, 1, 15, 20, 0), false},
		{"touching start to end", datetime(2026, 1, 15, 6, 0), datetime(2026, 1, 15, 8, 0), false},
		{"partial overlap", datetime(2026, 1, 15, 12, 0), datetime(2026, 1, 15, 20, 0), true},
		{"contained", datetime(2026, 1, 15, 10, 0), datetime(2026, 1, 15, 12, 0), true},
		{"containing", datetime(2026, 1, 15, 6, 0), datetime(2026, 1, 15, 20, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(aStart, aEnd, tt.bStart, tt.bEnd))
			// Symmetry.
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bEnd, aStart, aEnd))
		})
	}
}

func TestOverlaps_SelfOverlap(t *testing.T) {
	start := datetime(2026, 1, 15, 8, 0)
	end := datetime(2026, 1, 15, 16, 0)
	assert.True(t, Overlaps(start, end, start, end))
}

func TestIsWithin(t *testing.T) {
	start := datetime(2026, 1, 15, 8, 0)
	end := datetime(2026, 1, 15, 16, 0)

	assert.True(t, IsWithin(start, start, end), "inclusive at start")
	assert.True(t, IsWithin(end, start, end), "inclusive at end")
	assert.True(t, IsWithin(datetime(2026, 1, 15, 12, 0), start, end))
	assert.False(t, IsWithin(datetime(2026, 1, 15, 7, 59), start, end))
	assert.False(t, IsWithin(datetime(2026, 1, 15, 16, 1), start, end))
}
