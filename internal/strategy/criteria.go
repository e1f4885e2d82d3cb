package strategy

import (
	"fmt"

	"VCPSentinel/internal/calculator"
	"VCPSentinel/internal/model"
)

// input is the per-series data shared by all criteria.
type input struct {
	series  *model.PriceSeries
	closes  []float64
	volumes []float64
}

func newInput(series *model.PriceSeries) *input {
	if series == nil {
		series = &model.PriceSeries{}
	}
	return &input{
		series:  series,
		closes:  series.Closes(),
		volumes: series.Volumes(),
	}
}

// checkTrend passes when the close is above the SMA and the SMA is above its
// value SlopeLag sessions earlier.
func (e *Evaluator) checkTrend(in *input) model.CriterionResult {
	res := model.CriterionResult{Name: model.CriterionTrend}
	n := len(in.closes)
	need := e.cfg.MinSessions()
	if n < need {
		res.Insufficient = true
		res.Explanation = fmt.Sprintf("insufficient history: %d valid sessions, need %d", n, need)
		return res
	}

	sma, err := calculator.CalculateSMAAt(in.closes, e.cfg.SMAPeriod, n-1)
	if err != nil {
		res.Insufficient = true
		res.Explanation = fmt.Sprintf("SMA-%d unavailable: %v", e.cfg.SMAPeriod, err)
		return res
	}
	prev, err := calculator.CalculateSMAAt(in.closes, e.cfg.SMAPeriod, n-1-e.cfg.SlopeLag)
	if err != nil {
		res.Insufficient = true
		res.Explanation = fmt.Sprintf("SMA-%d from %d sessions ago unavailable: %v", e.cfg.SMAPeriod, e.cfg.SlopeLag, err)
		return res
	}

	last := in.closes[n-1]
	d := &model.TrendDetail{
		Close:    last,
		SMA:      sma,
		SMAPrev:  prev,
		AboveSMA: last > sma,
		SlopeUp:  sma > prev,
	}
	res.Trend = d
	res.Observed = last
	res.Threshold = sma
	res.Passed = d.AboveSMA && d.SlopeUp

	switch {
	case res.Passed:
		res.Explanation = "close above a rising SMA"
	case !d.AboveSMA && !d.SlopeUp:
		res.Explanation = "close below SMA and SMA falling"
	case !d.AboveSMA:
		res.Explanation = "close not above SMA"
	default:
		res.Explanation = "SMA not rising"
	}
	return res
}

// checkTightness measures the close-to-close range over the gap-normalised window.
// A gap reset widens the allowance to the gap rounded up to a whole percent.
func (e *Evaluator) checkTightness(in *input) model.CriterionResult {
	res := model.CriterionResult{Name: model.CriterionTightness}
	if in.series.Len() == 0 {
		res.Insufficient = true
		res.Explanation = "no sessions"
		return res
	}

	w := GapReset(in.series.Bars, e.cfg.LookbackDays, e.cfg.GapThreshold)
	d := &model.TightnessDetail{
		Reset:     w.Reset,
		Gap:       w.Gap,
		WindowLen: len(w.Bars),
		Threshold: e.cfg.DefaultTightness,
	}
	if w.Reset {
		d.Threshold = calculator.CeilPercent(w.Gap.Magnitude)
	}
	res.Tightness = d
	res.Threshold = d.Threshold

	if len(w.Bars) < e.cfg.MinTightSessions {
		d.TooShort = true
		res.Explanation = fmt.Sprintf("only %d sessions since gap, need %d", len(w.Bars), e.cfg.MinTightSessions)
		return res
	}

	closes := make([]float64, len(w.Bars))
	for i, b := range w.Bars {
		closes[i] = b.Close
	}
	high, low, err := calculator.CloseRange(closes)
	if err != nil {
		res.Insufficient = true
		res.Explanation = err.Error()
		return res
	}
	pct, err := calculator.RangePct(high, low, in.series.Last().Close)
	if err != nil {
		res.Insufficient = true
		res.Explanation = err.Error()
		return res
	}
	d.WindowHigh = high
	d.WindowLow = low
	d.RangePct = pct
	res.Observed = pct
	res.Passed = pct <= d.Threshold

	if res.Passed {
		res.Explanation = "range within allowance"
	} else {
		res.Explanation = "range too wide"
	}
	return res
}

// checkVolume passes when the short average volume is below the long average.
func (e *Evaluator) checkVolume(in *input) model.CriterionResult {
	res := model.CriterionResult{Name: model.CriterionVolume}
	short, long, ok := e.volumeAverages(in, &res)
	if !ok {
		return res
	}
	res.Volume = &model.VolumeDetail{ShortAvg: short, LongAvg: long}
	res.Observed = short
	res.Threshold = long
	res.Passed = short < long
	if res.Passed {
		res.Explanation = "volume contracting"
	} else {
		res.Explanation = "volume not contracting"
	}
	return res
}

// checkLiquidity passes when the short average volume meets the floor.
func (e *Evaluator) checkLiquidity(in *input) model.CriterionResult {
	res := model.CriterionResult{Name: model.CriterionLiquidity, Threshold: e.cfg.MinAvgVolume}
	n := len(in.volumes)
	if n < e.cfg.ShortVolumeDays {
		res.Insufficient = true
		res.Explanation = fmt.Sprintf("insufficient history: %d sessions, need %d", n, e.cfg.ShortVolumeDays)
		return res
	}
	short, err := calculator.TailMean(in.volumes, e.cfg.ShortVolumeDays)
	if err != nil {
		res.Insufficient = true
		res.Explanation = err.Error()
		return res
	}
	res.Observed = short
	res.Passed = short >= e.cfg.MinAvgVolume
	if res.Passed {
		res.Explanation = "liquid enough"
	} else {
		res.Explanation = "below liquidity floor"
	}
	return res
}

func (e *Evaluator) volumeAverages(in *input, res *model.CriterionResult) (short, long float64, ok bool) {
	n := len(in.volumes)
	if n < e.cfg.LongVolumeDays {
		res.Insufficient = true
		res.Explanation = fmt.Sprintf("insufficient history: %d sessions, need %d", n, e.cfg.LongVolumeDays)
		return 0, 0, false
	}
	var err error
	if short, err = calculator.TailMean(in.volumes, e.cfg.ShortVolumeDays); err != nil {
		res.Insufficient = true
		res.Explanation = err.Error()
		return 0, 0, false
	}
	if long, err = calculator.TailMean(in.volumes, e.cfg.LongVolumeDays); err != nil {
		res.Insufficient = true
		res.Explanation = err.Error()
		return 0, 0, false
	}
	return short, long, true
}
