package contracts

import (
	"strings"
	"time"
)

// MarginType selects which margin rate table applies
type MarginType string

const (
	MarginIntraday  MarginType = "intraday"
	MarginOvernight MarginType = "overnight"
)

// Valid reports a known margin type
func (m MarginType) Valid() bool {
	return m == MarginIntraday || m == MarginOvernight
}

// ParseMarginType maps a tag to a MarginType, falling back to def for empty input
func ParseMarginType(tag string, def MarginType) (MarginType, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return def, true
	}
	m := MarginType(tag)
	return m, m.Valid()
}

// Margins summarises margin requirements of the portfolio
type Margins struct {
	StrategyMargins          []float64 `json:"strategyMargins"` // rate(symbol) * quantity, strategy order
	MinimumAccountRequired   float64   `json:"minimumAccountRequired"`
	MaxUsedMargin            float64   `json:"maxUsedMargin"`
	MaxUsedMarginOccurrences int       `json:"maxUsedMarginOccurrences"`
	MaxUsedMarginFirstDate   string    `json:"maxUsedMarginFirstDate"` // YYYY-MM-DD, "" when no series
	RealMinimumAccountReq    float64   `json:"realMinimumAccountReq"`
}

// TotalStrategyMargin sums per-strategy requirements
func (m Margins) TotalStrategyMargin() float64 {
	var total float64
	for _, v := range m.StrategyMargins {
		total += v
	}
	return total
}

// UsedMargin is one sample of the margin-in-use time series
type UsedMargin struct {
	Date            time.Time          `json:"date"`
	TotalMargin     float64            `json:"totalMargin"`
	StrategyMargins map[string]float64 `json:"strategyMargins"`
}
