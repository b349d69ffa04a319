package callout

import (
	"fmt"
	"math"
	"strconv"
)

// FormatNumber renders a value with a K/M magnitude suffix for callout
// text. The raw value field is never formatted this way.
func FormatNumber(value float64) string {
	switch {
	case value >= 1_000_000:
		return fmt.Sprintf("%.1fM", value/1_000_000)
	case value >= 1_000:
		return fmt.Sprintf("%.1fK", value/1_000)
	case value >= 1:
		return fmt.Sprintf("%.0f", value)
	default:
		return fmt.Sprintf("%.2f", value)
	}
}

func rawValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
