package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"VCPSentinel/internal/collector"
	"VCPSentinel/internal/model"
	"VCPSentinel/internal/strategy"
)

// Diagnose evaluates one symbol in exhaustive mode and explains the verdict.
// Data problems are reported in the result text, not as errors; the error is
// reserved for an unusable date token.
func (s *Scanner) Diagnose(ctx context.Context, token, input string) (*model.DiagnosticResult, error) {
	date, err := s.Calendar.Resolve(token)
	if err != nil {
		return nil, err
	}
	dateStr := date.Format(DateLayout)
	res := &model.DiagnosticResult{ScanDate: dateStr, Symbol: strings.ToUpper(strings.TrimSpace(input))}
	start, end := s.window(date)

	var frame *collector.Frame
	candidates := s.candidates(input)
	for _, sym := range candidates {
		log.Debug().Str("symbol", sym).Str("date", dateStr).Msg("diagnostic download")
		f, err := s.Provider.Download(ctx, []string{sym}, start, end)
		if err != nil {
			res.Symbol = sym
			res.Report = fmt.Sprintf("❌ Data provider error for %s: %v", sym, err)
			return res, nil
		}
		if !f.Empty() {
			frame, res.Symbol = f, sym
			break
		}
	}
	if frame == nil {
		res.Report = fmt.Sprintf("❌ No data found for %s (tried %s).\nCheck the code, or the date may predate the listing.",
			strings.TrimSpace(input), strings.Join(candidates, ", "))
		return res, nil
	}

	series, err := collector.Normalize(frame, res.Symbol)
	var mf *collector.MissingFieldsError
	switch {
	case errors.As(err, &mf):
		res.Report = fmt.Sprintf("❌ Missing data fields for %s.\nPresent: %s\nRequired: %s",
			res.Symbol, strings.Join(mf.Present, ", "), strings.Join(mf.Required, ", "))
		return res, nil
	case err != nil:
		res.Report = fmt.Sprintf("❌ No valid sessions for %s after removing incomplete rows.", res.Symbol)
		return res, nil
	}

	if last := series.Last().Date; !model.SameDay(last, date, date.Location()) {
		res.Report = fmt.Sprintf("❌ Date mismatch for %s\nRequested: %s\nLatest available: %s\n(market holiday, suspension, or the session has not closed)",
			res.Symbol, dateStr, last.In(date.Location()).Format(DateLayout))
		return res, nil
	}

	v := s.Evaluator.Evaluate(series, strategy.Exhaustive)
	res.Pass = v.Pass
	res.Report = RenderReport(res.Symbol, dateStr, v, s.Evaluator.Config())
	return res, nil
}

// candidates lists the symbols to try: the input as given when it already
// carries a known suffix, otherwise the code with each suffix in order.
func (s *Scanner) candidates(input string) []string {
	sym := strings.ToUpper(strings.TrimSpace(input))
	for _, suf := range s.Suffixes {
		if strings.HasSuffix(sym, strings.ToUpper(suf)) {
			return []string{sym}
		}
	}
	if len(s.Suffixes) == 0 {
		return []string{sym}
	}
	out := make([]string, 0, len(s.Suffixes))
	for _, suf := range s.Suffixes {
		out = append(out, sym+strings.ToUpper(suf))
	}
	return out
}
