// Package units converts provider measurements into the units the client
// application displays.
package units

import (
	"math"
	"strconv"
)

func MetersToKm(meters float64) float64 {
	return meters / 1000
}

// PaceSecondsPerKm returns seconds per kilometer, or 0 when km is not positive.
func PaceSecondsPerKm(durationSec, km float64) float64 {
	if !(km > 0) || math.IsInf(km, 0) {
		return 0
	}
	pace := durationSec / km
	if math.IsNaN(pace) || math.IsInf(pace, 0) {
		return 0
	}
	return pace
}

// FormatKm renders km with exactly two decimal places.
func FormatKm(km float64) string {
	if !(km > 0) || math.IsInf(km, 0) {
		return "0.00"
	}
	return strconv.FormatFloat(km, 'f', 2, 64)
}
