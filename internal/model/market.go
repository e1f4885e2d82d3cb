package model

import "time"

// Bar is a single daily session, prices adjusted for splits and dividends.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// PriceSeries holds the cleaned daily bars of one symbol, oldest first.
// Dates are strictly increasing and every field is populated.
type PriceSeries struct {
	Symbol string
	Bars   []Bar
}

// Len returns the number of sessions.
func (s *PriceSeries) Len() int { return len(s.Bars) }

// Last returns the newest bar. Callers must check Len first.
func (s *PriceSeries) Last() Bar { return s.Bars[len(s.Bars)-1] }

// Closes returns the close prices in date order.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Volumes returns the session volumes as floats for averaging.
func (s *PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = float64(b.Volume)
	}
	return out
}

// SameDay reports whether a and b fall on the same calendar date in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
