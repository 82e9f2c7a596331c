package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekStartUTC(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "midweek",
			in:   time.Date(2024, 5, 15, 12, 30, 0, 0, time.UTC), // Wednesday
			want: time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "monday midnight maps to itself",
			in:   time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday maps to previous monday",
			in:   time.Date(2024, 5, 19, 23, 59, 59, 0, time.UTC),
			want: time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "non-UTC input is converted first",
			// Monday 01:00 +03:00 is still Sunday 22:00 UTC.
			in:   time.Date(2024, 5, 20, 1, 0, 0, 0, time.FixedZone("MSK", 3*3600)),
			want: time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "year boundary",
			in:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), // Wednesday
			want: time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekStartUTC(tt.in))
		})
	}
}

func TestWeekStartUTCIsStable(t *testing.T) {
	// Every instant inside one ISO week buckets to the same key.
	start := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	for d := time.Duration(0); d < 7*24*time.Hour; d += 11 * time.Hour {
		assert.Equal(t, start, WeekStartUTC(start.Add(d)))
	}
}
