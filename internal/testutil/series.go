// Package testutil builds deterministic price series for tests.
package testutil

import (
	"math"
	"time"

	"VCPSentinel/internal/model"
)

// Taipei is the market timezone used by fixtures.
var Taipei = time.FixedZone("CST", 8*3600)

// Day returns midnight of the given date in Taipei.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, Taipei)
}

// Weekdays returns n consecutive weekdays, oldest first, ending on last.
func Weekdays(last time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	d := last
	for i := n - 1; i >= 0; i-- {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, -1)
		}
		out[i] = d
		d = d.AddDate(0, 0, -1)
	}
	return out
}

// Series builds bars whose open equals the previous close (no gaps).
func Series(symbol string, last time.Time, closes []float64, volumes []int64) *model.PriceSeries {
	dates := Weekdays(last, len(closes))
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		bars[i] = model.Bar{
			Date:   dates[i],
			Open:   open,
			High:   math.Max(open, c) * 1.005,
			Low:    math.Min(open, c) * 0.995,
			Close:  c,
			Volume: volumes[i],
		}
	}
	return &model.PriceSeries{Symbol: symbol, Bars: bars}
}

// SetGap opens bar i at the previous close moved by gap (0.043 is a 4.3% gap up).
func SetGap(s *model.PriceSeries, i int, gap float64) {
	b := &s.Bars[i]
	b.Open = s.Bars[i-1].Close * (1 + gap)
	b.High = math.Max(b.Open, b.Close) * 1.005
	b.Low = math.Min(b.Open, b.Close) * 0.995
}

// PassingCloses is 70 sessions rising from 80 into a 10-session base around 100
// whose close range is exactly 3.0% of the last close.
func PassingCloses() []float64 {
	closes := make([]float64, 0, 70)
	for i := 0; i < 60; i++ {
		closes = append(closes, 80+0.3*float64(i))
	}
	return append(closes, 99, 100.5, 98.5, 101.5, 99.5, 100, 99, 100.5, 101, 100)
}

// PassingVolumes is 50 sessions at 1M then 20 sessions at 700k.
func PassingVolumes() []int64 {
	v := make([]int64, 70)
	for i := range v {
		if i < 50 {
			v[i] = 1000000
		} else {
			v[i] = 700000
		}
	}
	return v
}

// PassingSeries is a series that meets every VCP criterion on last.
func PassingSeries(symbol string, last time.Time) *model.PriceSeries {
	return Series(symbol, last, PassingCloses(), PassingVolumes())
}

// GapSeries is PassingSeries reshaped with a 4.3% gap four sessions back
// followed by a four-session close range of 4.5% of the last close.
func GapSeries(symbol string, last time.Time) *model.PriceSeries {
	closes := PassingCloses()[:60]
	closes = append(closes, 96, 96.5, 95.8, 96.2, 96, 96)
	closes = append(closes, 100.5, 104.5, 102, 100)
	s := Series(symbol, last, closes, PassingVolumes())
	SetGap(s, 66, 0.043)
	return s
}
