package services

import (
	"errors"
	"math"
	"time"
)

// ErrZeroDistance is returned when a split time is requested for a zero
// distance. The domain guarantees distance > 0, so hitting this means the
// caller skipped validation.
var ErrZeroDistance = errors.New("cannot calculate split time for zero distance")

// The Concept2 API reports dates as "YYYY-MM-DD HH:MM:SS".
const c2DateLayout = "2006-01-02 15:04:05"

// FormatDuration converts a Concept2 time value (tenths of a second) into a
// duration rounded to whole seconds. Halves round to even.
func FormatDuration(tenths int64) time.Duration {
	secs := math.RoundToEven(float64(tenths) / 10)
	return time.Duration(secs) * time.Second
}

// CalculateSplitTime computes the pace per 500m for a workout given its total
// time in tenths of a second and its distance in meters.
func CalculateSplitTime(totalTenths int64, distance uint) (time.Duration, error) {
	if distance == 0 {
		return 0, ErrZeroDistance
	}
	splitSecs := 500 * (float64(totalTenths) / 10) / float64(distance)
	return time.Duration(math.RoundToEven(splitSecs)) * time.Second, nil
}

// ConvertDateField parses a Concept2 timestamp string and returns just the
// date component (midnight UTC).
func ConvertDateField(value string) (time.Time, error) {
	t, err := time.Parse(c2DateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
