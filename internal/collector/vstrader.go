package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"
)

// VsTraderProvider implements Provider using the vstrader REST bars API.
type VsTraderProvider struct {
	BaseURL     string
	APIKey      string
	Client      *http.Client
	Concurrency int
	Location    *time.Location
}

// NewVsTraderProvider creates a new provider with optional proxy support.
func NewVsTraderProvider(baseURL, apiKey, proxyURL string, timeout time.Duration, concurrency int, loc *time.Location) *VsTraderProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &VsTraderProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		Concurrency: concurrency,
		Location:    loc,
	}
}

func (f *VsTraderProvider) Name() string { return "vstrader" }

// vsBar is the expected JSON shape from the vstrader API. Missing values are null.
type vsBar struct {
	Timestamp int64    `json:"timestamp"`
	Open      *float64 `json:"open"`
	High      *float64 `json:"high"`
	Low       *float64 `json:"low"`
	Close     *float64 `json:"close"`
	Volume    *float64 `json:"volume"`
}

// Download fetches daily bars for each symbol over [start, end).
func (f *VsTraderProvider) Download(ctx context.Context, symbols []string, start, end time.Time) (*Frame, error) {
	return downloadEach(ctx, f.Name(), symbols, f.Concurrency, func(ctx context.Context, symbol string) (SymbolData, error) {
		return f.fetchBars(ctx, symbol, start, end)
	})
}

func (f *VsTraderProvider) fetchBars(ctx context.Context, symbol string, start, end time.Time) (SymbolData, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("start", start.Format("2006-01-02"))
	q.Set("end", end.Format("2006-01-02"))
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?%s", f.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return SymbolData{}, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return SymbolData{}, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return SymbolData{}, fmt.Errorf("fetch bars %s: %w", symbol, ErrNoData)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return SymbolData{}, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	var vsBars []vsBar
	if err := json.NewDecoder(resp.Body).Decode(&vsBars); err != nil {
		return SymbolData{}, fmt.Errorf("decode bars: %w", err)
	}
	if len(vsBars) == 0 {
		return SymbolData{}, fmt.Errorf("fetch bars %s: %w", symbol, ErrNoData)
	}
	// Ensure chronological order
	sort.Slice(vsBars, func(i, j int) bool { return vsBars[i].Timestamp < vsBars[j].Timestamp })

	n := len(vsBars)
	d := SymbolData{Dates: make([]time.Time, n), Fields: map[string][]float64{}}
	for _, name := range []string{"open", "high", "low", "close", "volume"} {
		d.Fields[name] = make([]float64, n)
	}
	for i, vb := range vsBars {
		y, m, day := time.Unix(vb.Timestamp, 0).In(f.Location).Date()
		d.Dates[i] = time.Date(y, m, day, 0, 0, 0, 0, f.Location)
		d.Fields["open"][i] = deref(vb.Open)
		d.Fields["high"][i] = deref(vb.High)
		d.Fields["low"][i] = deref(vb.Low)
		d.Fields["close"][i] = deref(vb.Close)
		d.Fields["volume"][i] = deref(vb.Volume)
	}
	return d, nil
}

func deref(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
