package utils

import (
	"math"
	"strconv"

	"github.com/yukikurage/timesheet-management-api/internal/constants"
)

const quartersPerHour = 4

// IsQuarterHour reports whether v lies on the 0.25 lattice within the allowed range.
func IsQuarterHour(v float64) bool {
	q := v * quartersPerHour
	r := math.Round(q)
	if math.Abs(q-r) > 1e-9 {
		return false
	}
	return r >= constants.MinHoursWorked*quartersPerHour && r <= constants.MaxHoursWorked*quartersPerHour
}

// AdjustHours rewrites a quarter-hour value so its fraction reads as clock
// minutes: 1.25 -> 1.15, 1.5 -> 1.30, 1.75 -> 1.45. Off-lattice values are
// returned as is.
func AdjustHours(v float64) float64 {
	if !IsQuarterHour(v) {
		return v
	}
	quarters := int(math.Round(v * quartersPerHour))
	whole := quarters / quartersPerHour
	minutes := (quarters % quartersPerHour) * 15
	return float64(whole*100+minutes) / 100
}

// FormatHours renders hours without trailing zeros ("2", "2.15").
func FormatHours(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
