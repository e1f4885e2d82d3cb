package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VCPSentinel/internal/testutil"
)

func TestGapReset_NoGap(t *testing.T) {
	s := testutil.PassingSeries("2330.TW", testutil.Day(2025, 3, 14))
	w := GapReset(s.Bars, 10, 0.04)
	assert.False(t, w.Reset)
	assert.Len(t, w.Bars, 10)
	assert.Zero(t, w.Gap.Magnitude)
	assert.True(t, w.Gap.Date.IsZero())
}

func TestGapReset_TruncatesAtGap(t *testing.T) {
	s := testutil.GapSeries("2330.TW", testutil.Day(2025, 3, 14))
	w := GapReset(s.Bars, 10, 0.04)
	require.True(t, w.Reset)
	assert.Len(t, w.Bars, 4)
	assert.Equal(t, s.Bars[66].Date, w.Gap.Date)
	assert.InDelta(t, 0.043, w.Gap.Magnitude, 1e-9)
	assert.Equal(t, s.Bars[66], w.Bars[0])
}

func TestGapReset_PicksNearestNotLargest(t *testing.T) {
	s := testutil.PassingSeries("2330.TW", testutil.Day(2025, 3, 14))
	testutil.SetGap(s, 62, 0.10)
	testutil.SetGap(s, 67, 0.045)

	w := GapReset(s.Bars, 10, 0.04)
	require.True(t, w.Reset)
	assert.Equal(t, s.Bars[67].Date, w.Gap.Date)
	assert.InDelta(t, 0.045, w.Gap.Magnitude, 1e-9)
	assert.Len(t, w.Bars, 3)
}

func TestGapReset_ThresholdIsStrict(t *testing.T) {
	s := testutil.PassingSeries("2330.TW", testutil.Day(2025, 3, 14))
	s.Bars[65].Close = 100
	s.Bars[66].Open = 104 // exactly 4%

	w := GapReset(s.Bars, 10, 0.04)
	assert.False(t, w.Reset)
	assert.Len(t, w.Bars, 10)
}

func TestGapReset_IgnoresGapOutsideWindow(t *testing.T) {
	s := testutil.PassingSeries("2330.TW", testutil.Day(2025, 3, 14))
	testutil.SetGap(s, 55, 0.08)

	w := GapReset(s.Bars, 10, 0.04)
	assert.False(t, w.Reset)
}

func TestGapReset_OldestSessionNeverResets(t *testing.T) {
	s := testutil.PassingSeries("2330.TW", testutil.Day(2025, 3, 14))
	testutil.SetGap(s, 60, 0.08) // first bar of the 10-session window

	w := GapReset(s.Bars, 10, 0.04)
	assert.False(t, w.Reset)
}

func TestGapReset_GapDown(t *testing.T) {
	s := testutil.PassingSeries("2330.TW", testutil.Day(2025, 3, 14))
	testutil.SetGap(s, 65, -0.06)

	w := GapReset(s.Bars, 10, 0.04)
	require.True(t, w.Reset)
	assert.Len(t, w.Bars, 5)
	assert.InDelta(t, 0.06, w.Gap.Magnitude, 1e-9)
}
