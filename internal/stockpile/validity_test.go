package stockpile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidityColor(t *testing.T) {
	day0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := day0.AddDate(0, 0, 14)

	cases := []struct {
		name string
		now  time.Time
		want Color
	}{
		{"one day in", day0.AddDate(0, 0, 1), ColorNormal},
		{"nine days in", day0.AddDate(0, 0, 9), ColorWarning},
		{"thirteen days in", day0.AddDate(0, 0, 13), ColorCritical},
		{"past end", end.AddDate(0, 0, 2), ColorCritical},
		{"at start", day0, ColorNormal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidityColor(day0, end, tc.now))
		})
	}
}

func TestValidityColorMissingDates(t *testing.T) {
	now := time.Now()
	assert.Equal(t, ColorNeutral, ValidityColor(time.Time{}, now.Add(time.Hour), now))
	assert.Equal(t, ColorNeutral, ValidityColor(now, time.Time{}, now))
	assert.Equal(t, ColorNeutral, ValidityColor(time.Time{}, time.Time{}, now))
}

func TestValidityColorThresholdBoundaries(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(100 * time.Hour)

	assert.Equal(t, ColorNormal, ValidityColor(start, end, start.Add(59*time.Hour)))
	assert.Equal(t, ColorWarning, ValidityColor(start, end, start.Add(60*time.Hour)))
	assert.Equal(t, ColorWarning, ValidityColor(start, end, start.Add(84*time.Hour)))
	assert.Equal(t, ColorCritical, ValidityColor(start, end, start.Add(85*time.Hour)))
}
