package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/traditionalchinese"
)

const (
	codeNameHeader = "有價證券代號及名稱"
	typeHeader     = "有價證券別"
	stockType      = "股票"
)

// ISINSource is one ISIN listing page and the suffix its codes trade under.
type ISINSource struct {
	URL    string
	Suffix string
}

// DefaultISINSources are the listed (.TW) and OTC (.TWO) equity pages.
var DefaultISINSources = []ISINSource{
	{URL: "https://isin.twse.com.tw/isin/C_public.jsp?strMode=2", Suffix: ".TW"},
	{URL: "https://isin.twse.com.tw/isin/C_public.jsp?strMode=4", Suffix: ".TWO"},
}

// DefaultFallbackSymbols is used when the ISIN pages cannot be read.
var DefaultFallbackSymbols = []string{"2330.TW", "2317.TW", "2454.TW"}

// ISINUniverse lists common stocks from the TWSE ISIN pages.
type ISINUniverse struct {
	Client          *http.Client
	Sources         []ISINSource
	ExcludePrefixes []string
	Fallback        []string
}

// NewISINUniverse creates a universe provider with optional proxy support.
func NewISINUniverse(sources []ISINSource, exclude, fallback []string, proxyURL string) *ISINUniverse {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if len(sources) == 0 {
		sources = DefaultISINSources
	}
	if len(fallback) == 0 {
		fallback = DefaultFallbackSymbols
	}
	return &ISINUniverse{
		Client:          &http.Client{Timeout: 60 * time.Second, Transport: transport},
		Sources:         sources,
		ExcludePrefixes: exclude,
		Fallback:        fallback,
	}
}

// Symbols returns the full universe, or the fallback list if any page fails.
func (u *ISINUniverse) Symbols(ctx context.Context) []string {
	syms, err := u.Fetch(ctx)
	if err != nil || len(syms) == 0 {
		log.Error().Err(err).Strs("fallback", u.Fallback).Msg("universe fetch failed, using fallback symbols")
		return append([]string(nil), u.Fallback...)
	}
	return syms
}

// Fetch downloads and parses every source page.
func (u *ISINUniverse) Fetch(ctx context.Context) ([]string, error) {
	var all []string
	for _, src := range u.Sources {
		syms, err := u.fetchPage(ctx, src)
		if err != nil {
			return nil, err
		}
		all = append(all, syms...)
	}
	return all, nil
}

func (u *ISINUniverse) fetchPage(ctx context.Context, src ISINSource) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("isin fetch %s: %w", src.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("isin fetch %s: status %d", src.URL, resp.StatusCode)
	}
	// The ISIN pages are served in Big5.
	body := traditionalchinese.Big5.NewDecoder().Reader(resp.Body)
	syms, err := ParseISINPage(body, src.Suffix, u.ExcludePrefixes)
	if err != nil {
		return nil, fmt.Errorf("isin parse %s: %w", src.URL, err)
	}
	return syms, nil
}

// ParseISINPage reads the first table of a decoded ISIN page. The first row is
// the header. Rows are kept when the security-type column reads 股票; pages
// without that column group rows under single-cell section rows instead.
func ParseISINPage(r io.Reader, suffix string, exclude []string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	table := doc.Find("table").First()
	rows := table.Find("tr")
	if rows.Length() == 0 {
		return nil, errors.New("no table rows")
	}

	codeCol, typeCol := -1, -1
	rows.First().Find("td, th").Each(func(i int, s *goquery.Selection) {
		switch strings.TrimSpace(s.Text()) {
		case codeNameHeader:
			codeCol = i
		case typeHeader:
			typeCol = i
		}
	})
	if codeCol < 0 {
		return nil, fmt.Errorf("header %q not found", codeNameHeader)
	}

	var out []string
	section := ""
	rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 1 {
			section = strings.TrimSpace(cells.Text())
			return
		}
		if cells.Length() <= codeCol {
			return
		}
		kind := section
		if typeCol >= 0 {
			if cells.Length() <= typeCol {
				return
			}
			kind = strings.TrimSpace(cells.Eq(typeCol).Text())
		}
		if kind != stockType {
			return
		}
		fields := strings.Fields(cells.Eq(codeCol).Text())
		if len(fields) == 0 {
			return
		}
		code := fields[0]
		for _, p := range exclude {
			if strings.HasPrefix(code, p) {
				return
			}
		}
		out = append(out, code+suffix)
	})
	return out, nil
}
