package portfolio

import (
	"github.com/wonny/stratfolio/internal/contracts"
)

// Series is the merged portfolio trade stream with its equity and drawdown
type Series struct {
	Trades    []contracts.Trade
	Equity    []float64
	Drawdowns []float64 // signed, <= 0
}

// Aggregate merges every strategy's trades ordered by exit time (stable)
func Aggregate(strategies []contracts.Strategy) Series {
	total := 0
	for _, s := range strategies {
		total += len(s.Trades)
	}

	merged := make([]contracts.Trade, 0, total)
	for _, s := range strategies {
		merged = append(merged, s.Trades...)
	}
	contracts.SortByExitTime(merged)

	equity := EquityCurve(merged)
	return Series{
		Trades:    merged,
		Equity:    equity,
		Drawdowns: Drawdowns(equity),
	}
}

// EquityCurve returns the running cumulative profit
func EquityCurve(trades []contracts.Trade) []float64 {
	equity := make([]float64, len(trades))
	var cum float64
	for i, t := range trades {
		cum += t.Profit
		equity[i] = cum
	}
	return equity
}

// Drawdowns returns equity[i] - runningPeak, always <= 0
// Peak starts at equity[0]; a losing first trade therefore has drawdown 0.
func Drawdowns(equity []float64) []float64 {
	dd := make([]float64, len(equity))
	if len(equity) == 0 {
		return dd
	}

	peak := equity[0]
	for i, v := range equity {
		if v > peak {
			peak = v
		}
		dd[i] = v - peak
	}
	return dd
}
