package collector

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"VCPSentinel/internal/model"
)

var (
	// ErrNoData means the provider returned nothing for the request.
	ErrNoData = errors.New("no data returned")
	// ErrSymbolMissing means a two-level frame has no columns for the symbol.
	ErrSymbolMissing = errors.New("symbol not present in frame")
	// ErrNoValidRows means every row had at least one missing field.
	ErrNoValidRows = errors.New("no complete rows after cleaning")
)

// RequiredFields are the canonical column names every series must carry.
var RequiredFields = []string{"Open", "High", "Low", "Close", "Volume"}

// MissingFieldsError reports a column-shape mismatch.
type MissingFieldsError struct {
	Symbol   string
	Present  []string
	Required []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("%s: missing fields, present %v, required %v", e.Symbol, e.Present, e.Required)
}

// Column identifies a frame column. Symbol is empty in a flat frame.
type Column struct {
	Field  string
	Symbol string
}

// Frame is a provider response: a date index plus float columns, NaN where a
// value is missing. Multi-symbol responses use two-level (field, symbol) columns.
type Frame struct {
	Index   []time.Time
	Columns map[Column][]float64
	// Failed counts symbols left out of a multi-symbol frame because their
	// request errored, as opposed to the provider having no data for them.
	Failed int
}

// Empty reports whether the frame carries no rows or no columns.
func (f *Frame) Empty() bool {
	return f == nil || len(f.Index) == 0 || len(f.Columns) == 0
}

// MultiLevel reports whether the columns are keyed by (field, symbol).
func (f *Frame) MultiLevel() bool {
	for c := range f.Columns {
		if c.Symbol != "" {
			return true
		}
	}
	return false
}

// Symbols lists the symbols of a two-level frame, sorted.
func (f *Frame) Symbols() []string {
	seen := map[string]bool{}
	var out []string
	for c := range f.Columns {
		if c.Symbol != "" && !seen[c.Symbol] {
			seen[c.Symbol] = true
			out = append(out, c.Symbol)
		}
	}
	sort.Strings(out)
	return out
}

// SymbolData is one symbol's raw response before framing.
type SymbolData struct {
	Dates  []time.Time
	Fields map[string][]float64
}

// FlatFrame builds a single-level frame from one symbol's data.
func FlatFrame(d SymbolData) *Frame {
	f := &Frame{Index: d.Dates, Columns: make(map[Column][]float64, len(d.Fields))}
	for name, vals := range d.Fields {
		f.Columns[Column{Field: name}] = vals
	}
	return f
}

// StackFrames builds a two-level frame over the union of all dates. Dates a
// symbol has no row for are NaN in its columns.
func StackFrames(data map[string]SymbolData) *Frame {
	byDay := map[int64]time.Time{}
	for _, d := range data {
		for _, t := range d.Dates {
			byDay[t.Unix()] = t
		}
	}
	index := make([]time.Time, 0, len(byDay))
	for _, t := range byDay {
		index = append(index, t)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })
	pos := make(map[int64]int, len(index))
	for i, t := range index {
		pos[t.Unix()] = i
	}

	f := &Frame{Index: index, Columns: map[Column][]float64{}}
	for sym, d := range data {
		for name, vals := range d.Fields {
			col := make([]float64, len(index))
			for i := range col {
				col[i] = math.NaN()
			}
			for i, t := range d.Dates {
				if i < len(vals) {
					col[pos[t.Unix()]] = vals[i]
				}
			}
			f.Columns[Column{Field: name, Symbol: sym}] = col
		}
	}
	return f
}

// canonicalField maps provider spellings ("close", "CLOSE", "adj close") to "Close", "Adj Close".
func canonicalField(caser cases.Caser, name string) string {
	return caser.String(strings.ToLower(strings.TrimSpace(name)))
}

// Normalize extracts one symbol from a flat or two-level frame, canonicalises
// field names, drops incomplete rows and returns a date-ordered series with
// unique dates. It is the only place frame shapes are interpreted.
func Normalize(f *Frame, symbol string) (*model.PriceSeries, error) {
	if f.Empty() {
		return nil, ErrNoData
	}

	caser := cases.Title(language.Und)
	fields := map[string][]float64{}
	multi := f.MultiLevel()
	for c, vals := range f.Columns {
		if multi && c.Symbol != symbol {
			continue
		}
		fields[canonicalField(caser, c.Field)] = vals
	}
	if multi && len(fields) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrSymbolMissing)
	}

	var missing bool
	for _, req := range RequiredFields {
		if _, ok := fields[req]; !ok {
			missing = true
		}
	}
	if missing {
		present := make([]string, 0, len(fields))
		for name := range fields {
			present = append(present, name)
		}
		sort.Strings(present)
		return nil, &MissingFieldsError{Symbol: symbol, Present: present, Required: RequiredFields}
	}

	open, high, low, cl, vol := fields["Open"], fields["High"], fields["Low"], fields["Close"], fields["Volume"]
	bars := make([]model.Bar, 0, len(f.Index))
	for i, t := range f.Index {
		if !valid(open, i) || !valid(high, i) || !valid(low, i) || !valid(cl, i) || !valid(vol, i) {
			continue
		}
		bars = append(bars, model.Bar{
			Date:   t,
			Open:   open[i],
			High:   high[i],
			Low:    low[i],
			Close:  cl[i],
			Volume: int64(math.Round(vol[i])),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoValidRows)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	dedup := bars[:1]
	for _, b := range bars[1:] {
		if b.Date.Equal(dedup[len(dedup)-1].Date) {
			dedup[len(dedup)-1] = b // keep the later row for a repeated date
			continue
		}
		dedup = append(dedup, b)
	}
	return &model.PriceSeries{Symbol: symbol, Bars: dedup}, nil
}

func valid(col []float64, i int) bool {
	return i < len(col) && !math.IsNaN(col[i]) && !math.IsInf(col[i], 0)
}

// BarsData converts clean bars into SymbolData with canonical field names.
func BarsData(bars []model.Bar) SymbolData {
	d := SymbolData{Dates: make([]time.Time, len(bars)), Fields: map[string][]float64{}}
	for _, name := range RequiredFields {
		d.Fields[name] = make([]float64, len(bars))
	}
	for i, b := range bars {
		d.Dates[i] = b.Date
		d.Fields["Open"][i] = b.Open
		d.Fields["High"][i] = b.High
		d.Fields["Low"][i] = b.Low
		d.Fields["Close"][i] = b.Close
		d.Fields["Volume"][i] = float64(b.Volume)
	}
	return d
}
