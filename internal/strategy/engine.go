package strategy

import "VCPSentinel/internal/model"

// Mode selects how many criteria are evaluated.
type Mode int

const (
	// FailFast stops at the first failing criterion. Used for bulk scans.
	FailFast Mode = iota
	// Exhaustive evaluates every criterion. Used for diagnostics.
	Exhaustive
)

type criterion struct {
	name  model.CriterionName
	check func(*input) model.CriterionResult
}

// Evaluator applies the four VCP criteria with a fixed Config.
type Evaluator struct {
	cfg      Config
	criteria []criterion
}

// NewEvaluator creates an Evaluator. The criteria run in the order
// trend, tightness, volume, liquidity in both modes.
func NewEvaluator(cfg Config) *Evaluator {
	e := &Evaluator{cfg: cfg}
	e.criteria = []criterion{
		{model.CriterionTrend, e.checkTrend},
		{model.CriterionTightness, e.checkTightness},
		{model.CriterionVolume, e.checkVolume},
		{model.CriterionLiquidity, e.checkLiquidity},
	}
	return e
}

// Config returns the evaluator's settings.
func (e *Evaluator) Config() Config { return e.cfg }

// Evaluate runs the criteria over series. Pass is the AND of every criterion;
// in FailFast mode the first failure ends the evaluation with Pass false.
func (e *Evaluator) Evaluate(series *model.PriceSeries, mode Mode) *model.Verdict {
	in := newInput(series)
	v := &model.Verdict{Symbol: in.series.Symbol, Pass: true}
	for _, c := range e.criteria {
		res := c.check(in)
		v.Criteria = append(v.Criteria, res)
		if !res.Passed {
			v.Pass = false
			if mode == FailFast {
				break
			}
		}
	}
	return v
}

// Passes is the fail-fast boolean used by bulk scanning.
func (e *Evaluator) Passes(series *model.PriceSeries) bool {
	return e.Evaluate(series, FailFast).Pass
}
