package margin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"

	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/pkg/httputil"
	"github.com/wonny/stratfolio/pkg/logger"
)

// Layout describes where a broker's margin table keeps its values
type Layout struct {
	Name          string
	URL           string
	SymbolCol     int
	OvernightCols []int // max over these columns
	IntradayCols  []int // nil = not published by this broker
	MinCols       int
}

// TradeStationLayout: symbol root col 1, overnight initial/maintenance cols 4/5, intraday cols 2/3
var TradeStationLayout = Layout{
	Name:          "tradestation",
	URL:           "https://www.tradestation.com/pricing/futures-margin-requirements/",
	SymbolCol:     1,
	OvernightCols: []int{4, 5},
	IntradayCols:  []int{2, 3},
	MinCols:       6,
}

// NinjaTraderLayout: symbol col 0, initial margin col 5
var NinjaTraderLayout = Layout{
	Name:          "ninjatrader",
	URL:           "https://ninjatrader.com/pricing/margins/",
	SymbolCol:     0,
	OvernightCols: []int{5},
	MinCols:       6,
}

// LayoutFor returns the layout registered under name
func LayoutFor(name string) (Layout, error) {
	switch strings.ToLower(name) {
	case TradeStationLayout.Name:
		return TradeStationLayout, nil
	case NinjaTraderLayout.Name:
		return NinjaTraderLayout, nil
	}
	return Layout{}, fmt.Errorf("unknown margin source %q", name)
}

// ScrapingSource fetches a broker margin page and parses its first table
// ⭐ SSOT: 증거금 스크래핑은 여기서만
type ScrapingSource struct {
	client  *httputil.Client
	layout  Layout
	url     string
	breaker *gobreaker.CircuitBreaker
	logger  *logger.Logger
}

// NewScrapingSource creates a scraping source; url "" uses the layout default
func NewScrapingSource(client *httputil.Client, layout Layout, url string, log *logger.Logger) *ScrapingSource {
	if url == "" {
		url = layout.URL
	}
	if log == nil {
		log = logger.NewNop()
	}

	st := gobreaker.Settings{Name: "margin-" + layout.Name}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 3 }
	st.Timeout = 5 * time.Minute
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.WithFields(map[string]interface{}{
			"breaker": name,
			"from":    from.String(),
			"to":      to.String(),
		}).Warn("Margin source circuit state changed")
	}

	return &ScrapingSource{
		client:  client,
		layout:  layout,
		url:     url,
		breaker: gobreaker.NewCircuitBreaker(st),
		logger:  log,
	}
}

// Name implements RateSource
func (s *ScrapingSource) Name() string {
	return s.layout.Name
}

// Fetch implements RateSource
func (s *ScrapingSource) Fetch(ctx context.Context, marginType contracts.MarginType) (RateTable, error) {
	if columnsFor(s.layout, marginType) == nil {
		return nil, fmt.Errorf("%w: %s publishes no %s margins", ErrSourceUnavailable, s.layout.Name, marginType)
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		body, err := s.client.GetBody(ctx, s.url)
		if err != nil {
			return nil, err
		}
		return ParseTable(bytes.NewReader(body), s.layout, marginType)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, s.layout.Name, err)
	}

	table := out.(RateTable)
	s.logger.WithFields(map[string]interface{}{
		"source":      s.layout.Name,
		"margin_type": string(marginType),
		"symbols":     len(table),
	}).Info("Margin rates scraped")

	return table, nil
}

// ParseTable extracts symbol -> margin from the first <table> in html
func ParseTable(html io.Reader, layout Layout, marginType contracts.MarginType) (RateTable, error) {
	cols := columnsFor(layout, marginType)
	if cols == nil {
		return nil, fmt.Errorf("%w: no %s columns in %s layout", ErrSourceUnavailable, marginType, layout.Name)
	}

	doc, err := goquery.NewDocumentFromReader(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: margin table not found", ErrSourceUnavailable)
	}

	rates := make(RateTable)
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < layout.MinCols {
			return // header or malformed row
		}

		symbol := strings.ToUpper(strings.TrimSpace(cells.Eq(layout.SymbolCol).Text()))
		if symbol == "" {
			return
		}

		best, found := 0.0, false
		for _, c := range cols {
			v, ok := cleanMargin(cells.Eq(c).Text())
			if !ok {
				continue
			}
			if !found || v > best {
				best = v
			}
			found = true
		}
		if found {
			rates[symbol] = best
		}
	})

	if len(rates) == 0 {
		return nil, fmt.Errorf("%w: margin table has no usable rows", ErrSourceUnavailable)
	}
	return rates, nil
}

func columnsFor(layout Layout, marginType contracts.MarginType) []int {
	if marginType == contracts.MarginIntraday {
		return layout.IntradayCols
	}
	return layout.OvernightCols
}

// cleanMargin keeps digits, '.' and '-' ("$16,563.00" -> 16563); "NONE" / "-" are absent
func cleanMargin(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	switch strings.ToUpper(text) {
	case "", "NONE", "-", "N/A":
		return 0, false
	}

	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
