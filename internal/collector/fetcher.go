package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Provider fetches daily OHLCV frames for symbols over [start, end).
// A single symbol yields a flat frame, several symbols a two-level frame.
type Provider interface {
	Download(ctx context.Context, symbols []string, start, end time.Time) (*Frame, error)
	Name() string
}

// Universe lists the tradable symbols. Implementations fall back to a fixed
// list rather than failing.
type Universe interface {
	Symbols(ctx context.Context) []string
}

type symbolFetch func(ctx context.Context, symbol string) (SymbolData, error)

// downloadEach fetches symbols independently with bounded concurrency. A failed
// symbol is left out of the frame and counted in Frame.Failed; the call only
// fails when no symbol produced data and at least one request errored.
func downloadEach(ctx context.Context, provider string, symbols []string, concurrency int, fetch symbolFetch) (*Frame, error) {
	if len(symbols) == 1 {
		d, err := fetch(ctx, symbols[0])
		if errors.Is(err, ErrNoData) {
			return &Frame{}, nil
		}
		if err != nil {
			return nil, err
		}
		return FlatFrame(d), nil
	}

	var (
		mu      sync.Mutex
		data    = make(map[string]SymbolData, len(symbols))
		lastErr error
		failed  int
	)
	g, gctx := errgroup.WithContext(ctx)
	if concurrency < 1 {
		concurrency = 1
	}
	g.SetLimit(concurrency)
	for _, sym := range symbols {
		g.Go(func() error {
			d, err := fetch(gctx, sym)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !errors.Is(err, ErrNoData) {
					lastErr = err
					failed++
				}
				log.Debug().Str("provider", provider).Str("symbol", sym).Err(err).Msg("symbol fetch failed")
				return nil
			}
			data[sym] = d
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return &Frame{}, nil
	}
	f := StackFrames(data)
	f.Failed = failed
	return f, nil
}
