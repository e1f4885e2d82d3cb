package calculator

import (
	"errors"
	"math"
)

// CloseRange returns the highest and lowest close in the slice.
func CloseRange(closes []float64) (high, low float64, err error) {
	if len(closes) == 0 {
		return 0, 0, errors.New("no closes provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, c := range closes {
		if c > high {
			high = c
		}
		if c < low {
			low = c
		}
	}
	return high, low, nil
}

// RangePct returns (high - low) / reference.
func RangePct(high, low, reference float64) (float64, error) {
	if reference <= 0 {
		return 0, errors.New("reference price must be positive")
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	return (high - low) / reference, nil
}

// OvernightGap returns |open - prevClose| / prevClose.
func OvernightGap(prevClose, open float64) (float64, error) {
	if prevClose <= 0 {
		return 0, errors.New("previous close must be positive")
	}
	return math.Abs(open-prevClose) / prevClose, nil
}

// CeilPercent rounds a fraction up to the next whole percentage point (0.043 -> 0.05).
// Values already on a whole point are kept (0.05 -> 0.05). The result is never
// below fraction.
func CeilPercent(fraction float64) float64 {
	pct := math.Round(fraction*100*1e6) / 1e6
	th := math.Ceil(pct) / 100
	if th < fraction {
		th += 0.01
	}
	return th
}
