package calculator

import (
	"errors"
	"math"
)

// CalculateSMAAt computes the simple moving average over the period values ending at index end.
// A NaN in the window yields an error rather than a NaN average.
func CalculateSMAAt(prices []float64, period, end int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if end < 0 || end >= len(prices) {
		return 0, errors.New("index out of range for SMA calculation")
	}
	if end+1 < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := end - period + 1; i <= end; i++ {
		if math.IsNaN(prices[i]) || math.IsInf(prices[i], 0) {
			return 0, errors.New("invalid value in SMA window")
		}
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// TailMean averages the newest n values. Unlike CalculateSMAAt it tolerates a shorter slice
// and averages whatever is there.
func TailMean(values []float64, n int) (float64, error) {
	if n <= 0 {
		return 0, errors.New("window must be positive")
	}
	if len(values) == 0 {
		return 0, errors.New("no values to average")
	}
	start := len(values) - n
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, v := range values[start:] {
		sum += v
	}
	mean := sum / float64(len(values)-start)
	if math.IsNaN(mean) {
		return 0, errors.New("average is NaN")
	}
	return mean, nil
}
