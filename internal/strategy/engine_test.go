package strategy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VCPSentinel/internal/model"
	"VCPSentinel/internal/testutil"
)

var last = testutil.Day(2025, 3, 14)

func TestEvaluate_PassingSeries(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	s := testutil.PassingSeries("2330.TW", last)

	v := e.Evaluate(s, Exhaustive)
	require.Len(t, v.Criteria, 4)
	assert.True(t, v.Pass)
	assert.True(t, e.Passes(s))

	tight, ok := v.Criterion(model.CriterionTightness)
	require.True(t, ok)
	require.NotNil(t, tight.Tightness)
	assert.False(t, tight.Tightness.Reset)
	assert.InDelta(t, 0.035, tight.Threshold, 1e-12)
	assert.InDelta(t, 0.03, tight.Observed, 1e-9)
	assert.Equal(t, 10, tight.Tightness.WindowLen)

	vol, _ := v.Criterion(model.CriterionVolume)
	assert.InDelta(t, 700000, vol.Volume.ShortAvg, 1e-6)
	assert.InDelta(t, 900000, vol.Volume.LongAvg, 1e-6)
}

func TestEvaluate_GapWidensAllowance(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	s := testutil.GapSeries("2330.TW", last)

	v := e.Evaluate(s, Exhaustive)
	tight, ok := v.Criterion(model.CriterionTightness)
	require.True(t, ok)
	require.True(t, tight.Tightness.Reset)
	assert.InDelta(t, 0.05, tight.Threshold, 1e-12)
	assert.InDelta(t, 0.045, tight.Observed, 1e-9)
	assert.True(t, tight.Passed)
	assert.Greater(t, tight.Observed, DefaultConfig().DefaultTightness, "the static allowance would have failed")
	assert.True(t, v.Pass)
}

func TestEvaluate_ThresholdWithoutGapIsDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultTightness = 0.02
	e := NewEvaluator(cfg)

	v := e.Evaluate(testutil.PassingSeries("2330.TW", last), Exhaustive)
	tight, _ := v.Criterion(model.CriterionTightness)
	assert.InDelta(t, 0.02, tight.Threshold, 1e-12)
	assert.False(t, tight.Passed)
	assert.False(t, v.Pass)
}

func TestEvaluate_ShortWindowAfterGapFails(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	for _, idx := range []int{68, 69} {
		s := testutil.PassingSeries("2330.TW", last)
		testutil.SetGap(s, idx, 0.05)

		v := e.Evaluate(s, Exhaustive)
		tight, _ := v.Criterion(model.CriterionTightness)
		assert.False(t, tight.Passed, "gap at %d", idx)
		assert.True(t, tight.Tightness.TooShort)
		assert.False(t, v.Pass)
	}
}

func TestEvaluate_TrendNeedsRisingSMA(t *testing.T) {
	closes := make([]float64, 70)
	for i := range closes {
		closes[i] = 120 - 0.3*float64(i)
	}
	closes[69] = 125
	s := testutil.Series("2330.TW", last, closes, testutil.PassingVolumes())

	e := NewEvaluator(DefaultConfig())
	v := e.Evaluate(s, Exhaustive)
	trend, _ := v.Criterion(model.CriterionTrend)
	require.NotNil(t, trend.Trend)
	assert.True(t, trend.Trend.AboveSMA)
	assert.False(t, trend.Trend.SlopeUp)
	assert.False(t, trend.Passed)
	assert.False(t, v.Pass)
}

func TestEvaluate_InsufficientHistory(t *testing.T) {
	s := testutil.PassingSeries("2330.TW", last)
	s.Bars = s.Bars[len(s.Bars)-64:]

	e := NewEvaluator(DefaultConfig())
	v := e.Evaluate(s, Exhaustive)
	trend, _ := v.Criterion(model.CriterionTrend)
	assert.True(t, trend.Insufficient)
	assert.False(t, trend.Passed)
	assert.Len(t, v.Criteria, 4)
	assert.False(t, e.Passes(s))

	ff := e.Evaluate(s, FailFast)
	assert.Len(t, ff.Criteria, 1)
}

func TestEvaluate_EmptySeries(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	v := e.Evaluate(&model.PriceSeries{}, Exhaustive)
	assert.False(t, v.Pass)
	for _, c := range v.Criteria {
		assert.False(t, c.Passed, string(c.Name))
	}
	assert.False(t, e.Passes(nil))
}

func TestEvaluate_VolumeAndLiquidity(t *testing.T) {
	tests := []struct {
		name          string
		early, recent int64
		volume, liq   bool
	}{
		{"contracting and liquid", 1000000, 700000, true, true},
		{"expanding", 700000, 1000000, false, true},
		{"contracting but thin", 600000, 400000, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vols := make([]int64, 70)
			for i := range vols {
				vols[i] = tt.early
				if i >= 50 {
					vols[i] = tt.recent
				}
			}
			s := testutil.Series("2330.TW", last, testutil.PassingCloses(), vols)
			v := NewEvaluator(DefaultConfig()).Evaluate(s, Exhaustive)

			vol, _ := v.Criterion(model.CriterionVolume)
			liq, _ := v.Criterion(model.CriterionLiquidity)
			assert.Equal(t, tt.volume, vol.Passed)
			assert.Equal(t, tt.liq, liq.Passed)
			assert.Equal(t, tt.volume && tt.liq, v.Pass)
		})
	}
}

func TestEvaluate_FailFastStopsAtFirstFailure(t *testing.T) {
	vols := make([]int64, 70)
	for i := range vols {
		vols[i] = 100
	}
	closes := make([]float64, 70)
	for i := range closes {
		closes[i] = 120 - 0.3*float64(i)
	}
	s := testutil.Series("2330.TW", last, closes, vols)

	v := NewEvaluator(DefaultConfig()).Evaluate(s, FailFast)
	require.Len(t, v.Criteria, 1)
	assert.Equal(t, model.CriterionTrend, v.Criteria[0].Name)
	assert.False(t, v.Pass)
}

func TestEvaluate_ModesAgree(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	rng := rand.New(rand.NewSource(7))

	series := []*model.PriceSeries{
		testutil.PassingSeries("A", last),
		testutil.GapSeries("B", last),
	}
	for n := 0; n < 200; n++ {
		closes := testutil.PassingCloses()
		vols := testutil.PassingVolumes()
		for i := 55; i < len(closes); i++ {
			closes[i] *= 1 + (rng.Float64()-0.5)*0.06
			vols[i] = int64(float64(vols[i]) * (0.6 + rng.Float64()*0.8))
		}
		s := testutil.Series("R", last, closes, vols)
		if rng.Intn(3) == 0 {
			testutil.SetGap(s, 60+rng.Intn(10), 0.03+rng.Float64()*0.05)
		}
		series = append(series, s)
	}

	passed := 0
	for i, s := range series {
		ex := e.Evaluate(s, Exhaustive)
		assert.Equal(t, ex.Pass, e.Passes(s), "series %d", i)
		if ex.Pass {
			passed++
		}
	}
	assert.Positive(t, passed)
}

func TestEvaluators_DoNotShareConfig(t *testing.T) {
	strict := DefaultConfig()
	strict.DefaultTightness = 0.01
	loose := DefaultConfig()

	s := testutil.PassingSeries("2330.TW", last)
	assert.False(t, NewEvaluator(strict).Passes(s))
	assert.True(t, NewEvaluator(loose).Passes(s))
	assert.InDelta(t, 0.035, loose.DefaultTightness, 1e-12)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.LongVolumeDays = 10
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.MinTightSessions = 20
	assert.Error(t, bad.Validate())
	assert.Equal(t, 65, DefaultConfig().MinSessions())
}
