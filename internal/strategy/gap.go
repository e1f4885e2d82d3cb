package strategy

import (
	"VCPSentinel/internal/calculator"
	"VCPSentinel/internal/model"
)

// GapWindow is the tightness window after gap normalisation.
type GapWindow struct {
	Bars  []model.Bar // effective window, oldest first
	Reset bool
	Gap   model.GapEvent
}

// GapReset takes the newest lookback bars and, scanning from the newest session
// backwards, cuts the window at the first session whose overnight gap exceeds
// threshold. The nearest qualifying gap wins even if an older one is larger.
// The oldest session in the window has no predecessor and is never a reset point.
func GapReset(bars []model.Bar, lookback int, threshold float64) GapWindow {
	window := bars
	if lookback > 0 && len(window) > lookback {
		window = window[len(window)-lookback:]
	}
	for t := len(window) - 1; t >= 1; t-- {
		gap, err := calculator.OvernightGap(window[t-1].Close, window[t].Open)
		if err != nil {
			continue
		}
		if gap > threshold {
			return GapWindow{
				Bars:  window[t:],
				Reset: true,
				Gap:   model.GapEvent{Date: window[t].Date, Magnitude: gap},
			}
		}
	}
	return GapWindow{Bars: window}
}
