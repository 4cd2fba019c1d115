package contracts

import "time"

// Strategy is one uploaded trade log after normalization
type Strategy struct {
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	Quantity  int       `json:"quantity"`
	Trades    []Trade   `json:"trades"`
	Equity    []float64 `json:"equity"` // running cumulative profit, index-aligned with Trades
	NetProfit float64   `json:"netProfit"`
}

// TradeCount returns the number of trades
func (s Strategy) TradeCount() int {
	return len(s.Trades)
}

// EquitySeries returns the inputs of the correlation engine for this strategy
func (s Strategy) EquitySeries() EquitySeries {
	return EquitySeries{
		Name:      s.Name,
		ExitTimes: ExitTimes(s.Trades),
		Equity:    s.Equity,
	}
}

// EquitySeries is a per-strategy (exit time, equity) series
type EquitySeries struct {
	Name      string      `json:"name"`
	ExitTimes []time.Time `json:"exitTimes"`
	Equity    []float64   `json:"equity"`
}

// CorrelationMatrix is square and symmetric with a unit diagonal
type CorrelationMatrix [][]float64

// Size returns the matrix dimension
func (m CorrelationMatrix) Size() int {
	return len(m)
}

// FileWarning is a recoverable per-file ingestion problem
type FileWarning struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// PortfolioData is the aggregate root built once per upload, filter or stress run
// ⭐ SSOT: derived views (stressed, filtered) are always fresh values, never mutated in place
type PortfolioData struct {
	Strategies        []Strategy         `json:"strategies"`
	PortfolioTrades   []Trade            `json:"portfolioTrades"`
	PortfolioEquity   []float64          `json:"portfolioEquity"`
	Drawdowns         []float64          `json:"drawdowns"` // signed, always <= 0
	Statistics        Statistics         `json:"statistics"`
	MonthlyReturns    map[string]float64 `json:"monthlyReturns"` // YYYY-MM -> P&L
	DailyReturns      map[string]float64 `json:"dailyReturns"`   // YYYY-MM-DD -> P&L
	CorrelationMatrix CorrelationMatrix  `json:"correlationMatrix"`
	CorrelationMethod string             `json:"correlationMethod"`
	Margins           Margins            `json:"margins"`
	UsedMargins       []UsedMargin       `json:"usedMargins"`
	MarginType        string             `json:"marginType"`
	Warnings          []FileWarning      `json:"warnings,omitempty"`
}

// StrategyNames returns names in strategy order
func (p *PortfolioData) StrategyNames() []string {
	names := make([]string, len(p.Strategies))
	for i, s := range p.Strategies {
		names[i] = s.Name
	}
	return names
}

// Period returns the first and last exit time of the portfolio stream
func (p *PortfolioData) Period() (time.Time, time.Time) {
	if len(p.PortfolioTrades) == 0 {
		return time.Time{}, time.Time{}
	}
	return p.PortfolioTrades[0].ExitTime, p.PortfolioTrades[len(p.PortfolioTrades)-1].ExitTime
}
