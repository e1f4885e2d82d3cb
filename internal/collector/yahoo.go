package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooProvider implements Provider using the Yahoo Finance chart API.
// Prices are adjusted for splits and dividends through the adjclose series.
type YahooProvider struct {
	Client      *http.Client
	BaseURL     string
	Limiter     *rate.Limiter
	Concurrency int
	Location    *time.Location
}

// NewYahooProvider creates a Yahoo provider with optional proxy support.
// Requests across all goroutines share one token bucket of rps/burst.
func NewYahooProvider(proxyURL string, timeout time.Duration, rps float64, burst, concurrency int, loc *time.Location) *YahooProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &YahooProvider{
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		BaseURL:     yahooBaseURL,
		Limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		Concurrency: concurrency,
		Location:    loc,
	}
}

func (f *YahooProvider) Name() string { return "yahoo" }

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []interface{} `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// toFloat maps JSON nulls and unexpected types to NaN so cleaning can drop the row.
func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return math.NaN()
	}
}

func at(vals []interface{}, i int) float64 {
	if i >= len(vals) {
		return math.NaN()
	}
	return toFloat(vals[i])
}

// Download fetches each symbol's chart over [start, end).
func (f *YahooProvider) Download(ctx context.Context, symbols []string, start, end time.Time) (*Frame, error) {
	return downloadEach(ctx, f.Name(), symbols, f.Concurrency, func(ctx context.Context, symbol string) (SymbolData, error) {
		return f.fetchChart(ctx, symbol, start, end)
	})
}

func (f *YahooProvider) fetchChart(ctx context.Context, symbol string, start, end time.Time) (SymbolData, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return SymbolData{}, err
		}
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div%%2Csplit",
		f.BaseURL, url.PathEscape(symbol), start.Unix(), end.Unix())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return SymbolData{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return SymbolData{}, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SymbolData{}, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return SymbolData{}, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}
	if resp.StatusCode != http.StatusOK {
		return SymbolData{}, fmt.Errorf("yahoo %s: status %d, body: %s", symbol, resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return SymbolData{}, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return SymbolData{}, fmt.Errorf("yahoo api error %s: %s: %w", symbol, chart.Chart.Error.Description, ErrNoData)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return SymbolData{}, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	var adj []interface{}
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	n := len(result.Timestamp)
	d := SymbolData{
		Dates: make([]time.Time, n),
		Fields: map[string][]float64{
			"open":   make([]float64, n),
			"high":   make([]float64, n),
			"low":    make([]float64, n),
			"close":  make([]float64, n),
			"volume": make([]float64, n),
		},
	}
	for i, ts := range result.Timestamp {
		y, m, day := time.Unix(ts, 0).In(f.Location).Date()
		d.Dates[i] = time.Date(y, m, day, 0, 0, 0, 0, f.Location)

		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if adj != nil {
			if a := at(adj, i); !math.IsNaN(a) && c > 0 {
				factor := a / c
				o, h, l, c = o*factor, h*factor, l*factor, a
			}
		}
		d.Fields["open"][i] = o
		d.Fields["high"][i] = h
		d.Fields["low"][i] = l
		d.Fields["close"][i] = c
		d.Fields["volume"][i] = at(quote.Volume, i)
	}
	return d, nil
}
