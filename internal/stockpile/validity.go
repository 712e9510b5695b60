package stockpile

import "time"

// Color is the urgency shade for a pile's remaining window.
type Color string

const (
	ColorNeutral  Color = "neutral"
	ColorNormal   Color = "normal"
	ColorWarning  Color = "warning"
	ColorCritical Color = "critical"
)

// Elapsed fractions at which the shade escalates.
const (
	criticalFraction = 0.85
	warningFraction  = 0.60
)

// ValidityColor shades a pile window by how much of it has elapsed.
// Neutral when either bound is missing. Callers must not pass
// start >= end.
func ValidityColor(start, end, now time.Time) Color {
	if start.IsZero() || end.IsZero() {
		return ColorNeutral
	}

	elapsed := now.Sub(start).Seconds() / end.Sub(start).Seconds()
	switch {
	case elapsed >= criticalFraction:
		return ColorCritical
	case elapsed >= warningFraction:
		return ColorWarning
	default:
		return ColorNormal
	}
}
