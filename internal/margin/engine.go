package margin

import (
	"time"

	"github.com/wonny/stratfolio/internal/contracts"
)

// DefaultMaxPoints caps the used-margin series length
const DefaultMaxPoints = 1000

// dateLayout is the wire form of MaxUsedMarginFirstDate
const dateLayout = "2006-01-02"

// Engine sizes strategy margins and the margin-in-use time series
// ⭐ SSOT: 증거금 계산은 여기서만
type Engine struct {
	maxPoints int
}

// NewEngine creates a margin engine; maxPoints <= 0 uses DefaultMaxPoints
func NewEngine(maxPoints int) *Engine {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	return &Engine{maxPoints: maxPoints}
}

// MaxPoints returns the series cap
func (e *Engine) MaxPoints() int {
	return e.maxPoints
}

// Compute runs StrategyMargins, UsedMargins and Summarize
// maxDrawdown is the positive magnitude from Statistics.
func (e *Engine) Compute(strategies []contracts.Strategy, rates RateTable, maxDrawdown float64) (contracts.Margins, []contracts.UsedMargin) {
	perStrategy := StrategyMargins(strategies, rates)
	used := e.UsedMargins(strategies, perStrategy)
	return Summarize(perStrategy, used, maxDrawdown), used
}

// StrategyMargins returns rate(symbol) * quantity in strategy order
func StrategyMargins(strategies []contracts.Strategy, rates RateTable) []float64 {
	out := make([]float64, len(strategies))
	for i, s := range strategies {
		out[i] = rates.Rate(s.Symbol) * float64(s.Quantity)
	}
	return out
}

// UsedMargins samples calendar days from min(open) to max(exit).
// The step grows to ceil(days/maxPoints) so the series never exceeds maxPoints.
// A strategy uses its margin on day D when some trade has day(open) <= D <= day(exit);
// inverted trades are read with open and exit swapped.
func (e *Engine) UsedMargins(strategies []contracts.Strategy, strategyMargins []float64) []contracts.UsedMargin {
	start, end, ok := span(strategies)
	if !ok {
		return nil
	}

	days := dayIndex(start, end) + 1
	step := (days + e.maxPoints - 1) / e.maxPoints

	// 전략별 보유 일수 (difference array)
	active := make([][]int, len(strategies))
	for si, s := range strategies {
		diff := make([]int, days+1)
		for _, t := range s.Trades {
			open, exit := t.Window()
			diff[dayIndex(start, dayOf(open))]++
			diff[dayIndex(start, dayOf(exit))+1]--
		}
		counts := make([]int, days)
		running := 0
		for d := 0; d < days; d++ {
			running += diff[d]
			counts[d] = running
		}
		active[si] = counts
	}

	series := make([]contracts.UsedMargin, 0, (days+step-1)/step)
	for d := 0; d < days; d += step {
		perStrategy := make(map[string]float64, len(strategies))
		var total float64
		for si, s := range strategies {
			var used float64
			if active[si][d] > 0 && si < len(strategyMargins) {
				used = strategyMargins[si]
			}
			perStrategy[s.Name] = used
			total += used
		}
		series = append(series, contracts.UsedMargin{
			Date:            start.AddDate(0, 0, d),
			TotalMargin:     total,
			StrategyMargins: perStrategy,
		})
	}

	return series
}

// Summarize builds the Margins record
func Summarize(strategyMargins []float64, used []contracts.UsedMargin, maxDrawdown float64) contracts.Margins {
	m := contracts.Margins{
		StrategyMargins: strategyMargins,
	}

	var sum float64
	for _, v := range strategyMargins {
		sum += v
	}
	m.MinimumAccountRequired = sum + maxDrawdown

	for i, u := range used {
		switch {
		case i == 0 || u.TotalMargin > m.MaxUsedMargin:
			m.MaxUsedMargin = u.TotalMargin
			m.MaxUsedMarginOccurrences = 1
			m.MaxUsedMarginFirstDate = u.Date.Format(dateLayout)
		case u.TotalMargin == m.MaxUsedMargin:
			m.MaxUsedMarginOccurrences++
		}
	}

	m.RealMinimumAccountReq = maxDrawdown + m.MaxUsedMargin
	return m
}

// span returns the first open day and last exit day over all trades
func span(strategies []contracts.Strategy) (time.Time, time.Time, bool) {
	var start, end time.Time
	found := false
	for _, s := range strategies {
		for _, t := range s.Trades {
			open, exit := t.Window()
			open, exit = dayOf(open), dayOf(exit)
			if !found || open.Before(start) {
				start = open
			}
			if !found || exit.After(end) {
				end = exit
			}
			found = true
		}
	}
	return start, end, found
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dayIndex(start, day time.Time) int {
	return int(day.Sub(start).Hours() / 24)
}
