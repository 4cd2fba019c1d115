package stats

import (
	"github.com/wonny/stratfolio/internal/contracts"
)

const (
	monthKeyLayout = "2006-01"
	dayKeyLayout   = "2006-01-02"
)

// MonthlyReturns sums profit by exit month (YYYY-MM)
func MonthlyReturns(trades []contracts.Trade) map[string]float64 {
	return bucketByLayout(trades, monthKeyLayout)
}

// DailyReturns sums profit by exit day (YYYY-MM-DD)
func DailyReturns(trades []contracts.Trade) map[string]float64 {
	return bucketByLayout(trades, dayKeyLayout)
}

func bucketByLayout(trades []contracts.Trade, layout string) map[string]float64 {
	out := make(map[string]float64)
	for _, t := range trades {
		out[t.ExitTime.Format(layout)] += t.Profit
	}
	return out
}
