package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VCPSentinel/internal/collector"
)

func TestDiagnose_PassingSymbol(t *testing.T) {
	s, _ := newTestScanner(standardProvider(), nil, nil)

	res, err := s.Diagnose(context.Background(), "250314", "a")
	require.NoError(t, err)
	assert.Equal(t, "A.TW", res.Symbol)
	assert.Equal(t, "2025-03-14", res.ScanDate)
	assert.True(t, res.Pass)
	assert.Contains(t, res.Report, "🔍 VCP diagnostic: A.TW")
	assert.Contains(t, res.Report, "Overall: ✅ PASS")
}

func TestDiagnose_FallsBackToSecondSuffix(t *testing.T) {
	p := standardProvider()
	s, _ := newTestScanner(p, nil, nil)

	res, err := s.Diagnose(context.Background(), "250314", "G")
	require.NoError(t, err)
	assert.Equal(t, "G.TWO", res.Symbol)
	assert.True(t, res.Pass)
	assert.Equal(t, [][]string{{"G.TW"}, {"G.TWO"}}, p.Calls())
}

func TestDiagnose_ExplicitSuffixUsedAsIs(t *testing.T) {
	p := standardProvider()
	s, _ := newTestScanner(p, nil, nil)

	_, err := s.Diagnose(context.Background(), "250314", "g.two")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"G.TWO"}}, p.Calls())
}

func TestDiagnose_NotFound(t *testing.T) {
	s, _ := newTestScanner(standardProvider(), nil, nil)

	res, err := s.Diagnose(context.Background(), "250314", "9999")
	require.NoError(t, err)
	assert.False(t, res.Pass)
	assert.Contains(t, res.Report, "No data found for 9999")
	assert.Contains(t, res.Report, "9999.TW, 9999.TWO")
}

func TestDiagnose_DateMismatchNamesBothDates(t *testing.T) {
	s, _ := newTestScanner(standardProvider(), nil, nil)

	// C.TW last traded on 2025-03-13
	res, err := s.Diagnose(context.Background(), "250314", "C")
	require.NoError(t, err)
	assert.False(t, res.Pass)
	assert.Contains(t, res.Report, "Date mismatch for C.TW")
	assert.Contains(t, res.Report, "Requested: 2025-03-14")
	assert.Contains(t, res.Report, "Latest available: 2025-03-13")
	assert.NotContains(t, res.Report, "Overall")
}

func TestDiagnose_MissingFields(t *testing.T) {
	f := collector.FlatFrame(collector.SymbolData{
		Dates:  []time.Time{scanDay},
		Fields: map[string][]float64{"close": {10}, "volume": {1000}},
	})
	p := &collector.MockProvider{Frames: map[string]*collector.Frame{"X.TW": f}}
	s, _ := newTestScanner(p, nil, nil)

	res, err := s.Diagnose(context.Background(), "250314", "X")
	require.NoError(t, err)
	assert.Contains(t, res.Report, "Missing data fields for X.TW")
	assert.Contains(t, res.Report, "Required: Open, High, Low, Close, Volume")
}

func TestDiagnose_ProviderError(t *testing.T) {
	p := &collector.MockProvider{FailWith: map[string]error{"X.TW": errors.New("connection reset")}}
	s, _ := newTestScanner(p, nil, nil)

	res, err := s.Diagnose(context.Background(), "250314", "X")
	require.NoError(t, err)
	assert.Contains(t, res.Report, "connection reset")
}

func TestDiagnose_BadTokenIsAnError(t *testing.T) {
	s, _ := newTestScanner(standardProvider(), nil, nil)
	_, err := s.Diagnose(context.Background(), "14/03", "A")
	assert.ErrorIs(t, err, ErrBadDateToken)
}

func TestDiagnose_Idempotent(t *testing.T) {
	s, _ := newTestScanner(standardProvider(), nil, nil)

	first, err := s.Diagnose(context.Background(), "250314", "B")
	require.NoError(t, err)
	second, err := s.Diagnose(context.Background(), "250314", "B")
	require.NoError(t, err)
	assert.Equal(t, first.Report, second.Report)
}

func TestDiagnose_AgreesWithScan(t *testing.T) {
	universe := []string{"A.TW", "B.TW", "D.TW"}
	s, _ := newTestScanner(standardProvider(), universe, nil)

	res, err := s.Scan(context.Background(), "250314")
	require.NoError(t, err)
	passed := map[string]bool{}
	for _, sym := range res.Symbols {
		passed[sym] = true
	}
	for _, sym := range universe {
		d, err := s.Diagnose(context.Background(), "250314", sym)
		require.NoError(t, err)
		assert.Equal(t, passed[sym], d.Pass, sym)
	}
}
