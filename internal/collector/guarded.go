package collector

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// GuardedProvider wraps a Provider in a circuit breaker so a provider outage
// fails later batches fast instead of waiting on every request.
type GuardedProvider struct {
	inner Provider
	cb    *gobreaker.CircuitBreaker
}

// NewGuardedProvider trips after three consecutive failed downloads and probes
// again after openFor.
func NewGuardedProvider(inner Provider, openFor time.Duration) *GuardedProvider {
	st := gobreaker.Settings{
		Name:    inner.Name(),
		Timeout: openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).Msg("provider breaker state changed")
		},
	}
	return &GuardedProvider{inner: inner, cb: gobreaker.NewCircuitBreaker(st)}
}

func (g *GuardedProvider) Name() string { return g.inner.Name() }

// Download forwards to the wrapped provider unless the breaker is open.
func (g *GuardedProvider) Download(ctx context.Context, symbols []string, start, end time.Time) (*Frame, error) {
	out, err := g.cb.Execute(func() (interface{}, error) {
		return g.inner.Download(ctx, symbols, start, end)
	})
	if err != nil {
		return nil, err
	}
	return out.(*Frame), nil
}

// State reports the breaker state.
func (g *GuardedProvider) State() gobreaker.State { return g.cb.State() }
