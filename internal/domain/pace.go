package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CalculatePace converts a distance in kilometers and an elapsed time in
// H:MM:SS or MM:SS form into a minutes-per-kilometer pace formatted as MM:SS.
// It returns false when the inputs cannot produce a pace.
//
// Both components are truncated, not rounded, and the minute field is never
// clamped: a pace slower than 99 minutes per kilometer prints all its digits.
func CalculatePace(distanceKm float64, elapsed string) (string, bool) {
	if distanceKm <= 0 || math.IsNaN(distanceKm) || elapsed == "" {
		return "", false
	}

	totalMinutes, ok := elapsedMinutes(elapsed)
	if !ok {
		return "", false
	}

	pace := totalMinutes / distanceKm
	if math.IsInf(pace, 0) || math.IsNaN(pace) {
		return "", false
	}

	mins := int(pace)
	secs := int((pace - float64(mins)) * 60)

	return fmt.Sprintf("%02d:%02d", mins, secs), true
}

// PacePtr is CalculatePace for nullable record fields.
func PacePtr(distanceKm *float64, elapsed *string) *string {
	if distanceKm == nil || elapsed == nil {
		return nil
	}
	pace, ok := CalculatePace(*distanceKm, *elapsed)
	if !ok {
		return nil
	}
	return &pace
}

func elapsedMinutes(elapsed string) (float64, bool) {
	parts := strings.Split(elapsed, ":")
	values := make([]int, len(parts))
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0, false
		}
		values[i] = v
	}

	switch len(values) {
	case 3:
		return float64(values[0]*60+values[1]) + float64(values[2])/60, true
	case 2:
		return float64(values[0]) + float64(values[1])/60, true
	default:
		return 0, false
	}
}

// FormatDuration renders whole seconds as HH:MM:SS. Hours are not wrapped at 24.
func FormatDuration(totalSeconds int) string {
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
