package contracts

import (
	"sort"
	"time"
)

// Trade is one closed round-trip trade from a strategy's trade log
// ⭐ SSOT: Profit already includes quantity scaling (applied by the CSV adapter)
type Trade struct {
	ID       uint64    `json:"id"`       // stable synthetic identifier assigned at ingestion
	Strategy string    `json:"strategy"` // owning strategy name
	OpenTime time.Time `json:"openTime"`
	ExitTime time.Time `json:"exitTime"`
	Profit   float64   `json:"profit"`
}

// Duration returns exit - open, or 0 when the trade is inverted
func (t Trade) Duration() time.Duration {
	d := t.ExitTime.Sub(t.OpenTime)
	if d < 0 {
		return 0
	}
	return d
}

// Window returns the trade's [start, end] interval with inverted timestamps swapped
func (t Trade) Window() (time.Time, time.Time) {
	if t.ExitTime.Before(t.OpenTime) {
		return t.ExitTime, t.OpenTime
	}
	return t.OpenTime, t.ExitTime
}

// IsWin reports a strictly positive profit
func (t Trade) IsWin() bool { return t.Profit > 0 }

// IsLoss reports a strictly negative profit
func (t Trade) IsLoss() bool { return t.Profit < 0 }

// SortByExitTime stable-sorts trades by exit time; ties keep input order
func SortByExitTime(trades []Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].ExitTime.Before(trades[j].ExitTime)
	})
}

// IsSortedByExitTime reports whether trades are already in exit-time order
func IsSortedByExitTime(trades []Trade) bool {
	return sort.SliceIsSorted(trades, func(i, j int) bool {
		return trades[i].ExitTime.Before(trades[j].ExitTime)
	})
}

// CloneTrades returns an independent copy of trades
func CloneTrades(trades []Trade) []Trade {
	if trades == nil {
		return nil
	}
	out := make([]Trade, len(trades))
	copy(out, trades)
	return out
}

// Profits extracts the profit column
func Profits(trades []Trade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.Profit
	}
	return out
}

// ExitTimes extracts the exit time column
func ExitTimes(trades []Trade) []time.Time {
	out := make([]time.Time, len(trades))
	for i, t := range trades {
		out[i] = t.ExitTime
	}
	return out
}
