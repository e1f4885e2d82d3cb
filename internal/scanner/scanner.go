package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"VCPSentinel/internal/collector"
	"VCPSentinel/internal/model"
	"VCPSentinel/internal/strategy"
)

// SkipReason explains why a symbol never reached evaluation.
type SkipReason string

const (
	SkipFetchFailed   SkipReason = "fetch_failed"
	SkipMissingFields SkipReason = "missing_fields"
	SkipEmpty         SkipReason = "empty"
	SkipStaleDate     SkipReason = "stale_date"
	SkipPanic         SkipReason = "evaluation_panic"
)

// SymbolOutcome is the result of processing one symbol of a batch.
type SymbolOutcome struct {
	Symbol string
	Passed bool
	Skip   SkipReason
	Err    error
}

// Options bounds a bulk scan.
type Options struct {
	BatchSize   int           // symbols per provider request
	BatchPause  time.Duration // fixed wait between batches
	HistoryDays int           // calendar days of history before the scan date
}

// DefaultOptions mirrors the provider limits the scanner was tuned against.
func DefaultOptions() Options {
	return Options{BatchSize: 200, BatchPause: 500 * time.Millisecond, HistoryDays: 250}
}

// Scanner applies the fail-fast evaluator across a symbol universe and runs
// single-symbol diagnostics.
type Scanner struct {
	Provider  collector.Provider
	Universe  collector.Universe
	Evaluator *strategy.Evaluator
	Calendar  Calendar
	Options   Options
	Suffixes  []string // exchange suffixes tried in order by diagnostics
	Metrics   *Metrics

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Scanner.
func New(p collector.Provider, u collector.Universe, e *strategy.Evaluator, cal Calendar, opts Options, suffixes []string, m *Metrics) *Scanner {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = DefaultOptions().HistoryDays
	}
	return &Scanner{
		Provider:  p,
		Universe:  u,
		Evaluator: e,
		Calendar:  cal,
		Options:   opts,
		Suffixes:  suffixes,
		Metrics:   m,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// window returns the download range for a scan date: enough history for the
// longest indicator and an end one day past the date so its session is included.
func (s *Scanner) window(date time.Time) (start, end time.Time) {
	return date.AddDate(0, 0, -s.Options.HistoryDays), date.AddDate(0, 0, 1)
}

// Scan resolves a YYMMDD token (empty means today) and scans the universe.
func (s *Scanner) Scan(ctx context.Context, token string) (*model.ScanResult, error) {
	date, err := s.Calendar.Resolve(token)
	if err != nil {
		return nil, err
	}
	return s.ScanDate(ctx, date)
}

// ScanDate scans the universe for one session. Batch and symbol failures are
// absorbed; only context cancellation aborts the scan.
func (s *Scanner) ScanDate(ctx context.Context, date time.Time) (*model.ScanResult, error) {
	started := time.Now()
	s.Metrics.scanStarted()

	res := &model.ScanResult{
		RunID:     uuid.NewString(),
		ScanDate:  date.Format(DateLayout),
		Symbols:   []string{},
		CreatedAt: started,
	}
	logger := log.With().Str("run_id", res.RunID).Str("date", res.ScanDate).Logger()

	symbols := s.Universe.Symbols(ctx)
	res.UniverseSize = len(symbols)
	start, end := s.window(date)
	logger.Info().Int("universe", len(symbols)).Int("batch_size", s.Options.BatchSize).Msg("scan started")

	for i := 0; i < len(symbols); i += s.Options.BatchSize {
		if i > 0 {
			if err := s.sleep(ctx, s.Options.BatchPause); err != nil {
				return nil, err
			}
		}
		batch := symbols[i:min(i+s.Options.BatchSize, len(symbols))]

		frame, err := s.Provider.Download(ctx, batch, start, end)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res.BatchesFailed++
			s.Metrics.batchFailed()
			for _, sym := range batch {
				s.Metrics.observe(SymbolOutcome{Symbol: sym, Skip: SkipFetchFailed, Err: err})
			}
			logger.Warn().Err(err).Int("batch", i/s.Options.BatchSize).Msg("batch download failed, skipping")
			continue
		}
		res.SymbolsFailed += frame.Failed
		if frame.Empty() {
			for _, sym := range batch {
				s.Metrics.observe(SymbolOutcome{Symbol: sym, Skip: SkipEmpty, Err: collector.ErrNoData})
			}
			continue
		}
		if last := latestSession(frame, date.Location()); last > res.LatestSession {
			res.LatestSession = last
		}

		for _, sym := range batch {
			out := s.evaluateSymbol(frame, sym, date)
			s.Metrics.observe(out)
			if out.Skip != "" {
				logger.Debug().Str("symbol", sym).Str("reason", string(out.Skip)).Err(out.Err).Msg("symbol skipped")
				continue
			}
			res.Evaluated++
			if out.Passed {
				res.Symbols = append(res.Symbols, sym)
			}
		}
	}

	s.Metrics.scanFinished(time.Since(started).Seconds())
	logger.Info().
		Int("passed", len(res.Symbols)).
		Int("evaluated", res.Evaluated).
		Int("batches_failed", res.BatchesFailed).
		Int("symbols_failed", res.SymbolsFailed).
		Str("latest_session", res.LatestSession).
		Dur("elapsed", time.Since(started)).
		Msg("scan completed")
	return res, nil
}

// latestSession returns the newest date in the frame index as YYYY-MM-DD.
func latestSession(f *collector.Frame, loc *time.Location) string {
	var last time.Time
	for _, t := range f.Index {
		if t.After(last) {
			last = t
		}
	}
	if last.IsZero() {
		return ""
	}
	return last.In(loc).Format(DateLayout)
}

// evaluateSymbol normalises one symbol out of a batch frame and evaluates it.
// The last session must be the scan date exactly.
func (s *Scanner) evaluateSymbol(frame *collector.Frame, sym string, date time.Time) (out SymbolOutcome) {
	out.Symbol = sym
	defer func() {
		if r := recover(); r != nil {
			out = SymbolOutcome{Symbol: sym, Skip: SkipPanic, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	series, err := collector.Normalize(frame, sym)
	if err != nil {
		var mf *collector.MissingFieldsError
		if errors.As(err, &mf) {
			return SymbolOutcome{Symbol: sym, Skip: SkipMissingFields, Err: err}
		}
		if errors.Is(err, collector.ErrSymbolMissing) {
			return SymbolOutcome{Symbol: sym, Skip: SkipFetchFailed, Err: err}
		}
		return SymbolOutcome{Symbol: sym, Skip: SkipEmpty, Err: err}
	}
	if !model.SameDay(series.Last().Date, date, date.Location()) {
		return SymbolOutcome{Symbol: sym, Skip: SkipStaleDate,
			Err: fmt.Errorf("last session %s", series.Last().Date.Format(DateLayout))}
	}
	out.Passed = s.Evaluator.Passes(series)
	return out
}
