package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"VCPSentinel/internal/model"
)

// MockProvider returns controllable fixed data for development and testing.
type MockProvider struct {
	Series map[string][]model.Bar
	// Frames overrides the response for a single symbol, e.g. to return odd column shapes.
	Frames map[string]*Frame
	// FailWith makes any request containing the symbol fail with the error.
	FailWith map[string]error
	// Drop leaves the symbol out of multi-symbol responses as a failed fetch.
	Drop map[string]bool

	mu    sync.Mutex
	calls [][]string
}

func (m *MockProvider) Name() string { return "mock" }

// Download returns the known bars of each symbol within [start, end).
func (m *MockProvider) Download(_ context.Context, symbols []string, start, end time.Time) (*Frame, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), symbols...))
	m.mu.Unlock()

	for _, s := range symbols {
		if err, ok := m.FailWith[s]; ok {
			return nil, err
		}
	}
	if len(symbols) == 1 {
		if f, ok := m.Frames[symbols[0]]; ok {
			return f, nil
		}
	}

	data := map[string]SymbolData{}
	failed := 0
	for _, s := range symbols {
		if m.Drop[s] {
			failed++
			continue
		}
		var bars []model.Bar
		for _, b := range m.Series[s] {
			if !b.Date.Before(start) && b.Date.Before(end) {
				bars = append(bars, b)
			}
		}
		if len(bars) > 0 {
			data[s] = BarsData(bars)
		}
	}
	if len(data) == 0 {
		if failed > 0 {
			return nil, fmt.Errorf("mock: %d symbols failed", failed)
		}
		return &Frame{}, nil
	}
	if len(symbols) == 1 {
		return FlatFrame(data[symbols[0]]), nil
	}
	f := StackFrames(data)
	f.Failed = failed
	return f, nil
}

// Calls returns the symbol lists requested so far.
func (m *MockProvider) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.calls...)
}

// StaticUniverse is a fixed symbol list.
type StaticUniverse []string

// Symbols returns the list.
func (u StaticUniverse) Symbols(context.Context) []string { return append([]string(nil), u...) }
