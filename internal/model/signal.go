package model

import "time"

// CriterionName identifies one of the four VCP filters.
type CriterionName string

const (
	CriterionTrend     CriterionName = "TREND"
	CriterionTightness CriterionName = "TIGHTNESS"
	CriterionVolume    CriterionName = "VOLUME"
	CriterionLiquidity CriterionName = "LIQUIDITY"
)

// GapEvent is the most recent overnight gap above the gap threshold.
type GapEvent struct {
	Date      time.Time
	Magnitude float64 // |open - prev close| / prev close
}

// TrendDetail carries the observed SMA values behind the trend criterion.
type TrendDetail struct {
	Close    float64
	SMA      float64
	SMAPrev  float64
	AboveSMA bool
	SlopeUp  bool
}

// TightnessDetail carries the effective window and threshold selection.
type TightnessDetail struct {
	Reset      bool
	Gap        GapEvent
	WindowLen  int
	WindowHigh float64
	WindowLow  float64
	RangePct   float64
	Threshold  float64
	TooShort   bool
}

// VolumeDetail carries the short and long average volumes.
type VolumeDetail struct {
	ShortAvg float64
	LongAvg  float64
}

// CriterionResult is the outcome of one filter.
type CriterionResult struct {
	Name         CriterionName
	Passed       bool
	Observed     float64
	Threshold    float64
	Insufficient bool   // not enough valid history to compute the inputs
	Explanation  string // one-line reason, used by reports and logs

	Trend     *TrendDetail
	Tightness *TightnessDetail
	Volume    *VolumeDetail
}

// Verdict is the evaluation of one series. In fail-fast mode Criteria stops at
// the first failing criterion; in exhaustive mode it always holds all four.
type Verdict struct {
	Symbol   string
	Pass     bool
	Criteria []CriterionResult
}

// Criterion returns the result for name, if it was evaluated.
func (v *Verdict) Criterion(name CriterionName) (CriterionResult, bool) {
	for _, c := range v.Criteria {
		if c.Name == name {
			return c, true
		}
	}
	return CriterionResult{}, false
}

// ScanResult is the output of one bulk scan.
type ScanResult struct {
	RunID         string    `json:"run_id"`
	ScanDate      string    `json:"scan_date"` // YYYY-MM-DD
	Symbols       []string  `json:"symbols"`
	UniverseSize  int       `json:"universe_size"`
	Evaluated     int       `json:"evaluated"`
	BatchesFailed int       `json:"batches_failed"`
	SymbolsFailed int       `json:"symbols_failed"` // dropped from otherwise successful batches
	LatestSession string    `json:"latest_session"` // newest bar seen in any batch, YYYY-MM-DD
	CreatedAt     time.Time `json:"created_at"`
}

// Complete reports whether the scan saw every symbol's data for its date:
// no failed batch or symbol, at least one evaluation, and the provider
// already publishing the scan date's session.
func (r *ScanResult) Complete() bool {
	return r.BatchesFailed == 0 && r.SymbolsFailed == 0 &&
		r.Evaluated > 0 && r.LatestSession >= r.ScanDate
}

// DiagnosticResult is the output of a single-symbol diagnostic.
type DiagnosticResult struct {
	Symbol   string // resolved symbol including exchange suffix
	ScanDate string // YYYY-MM-DD
	Pass     bool
	Report   string
}
