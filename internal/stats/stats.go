package stats

import (
	"math"
	"time"

	"github.com/wonny/stratfolio/internal/contracts"
)

// Compute derives the full Statistics record
// ⭐ SSOT: 포트폴리오 통계 정의는 여기서만 (원본, 스트레스, 필터 공용)
//
// Drawdowns use the signed convention (<= 0). Divide-by-zero resolves to 0 or +Inf,
// never NaN. Each input series is consumed on its own, so length mismatches cannot panic.
func Compute(trades []contracts.Trade, equity []float64, drawdowns []float64) contracts.Statistics {
	s := contracts.Statistics{
		TotalTrades: len(trades),
	}

	if len(equity) > 0 {
		s.TotalNetProfit = equity[len(equity)-1]
	}

	// 1. Drawdown
	s.MaxDrawdown, s.MeanDrawdown = drawdownMagnitudes(drawdowns)
	s.NetProfitMaxDD = contracts.Ratio(SafeRatio(s.TotalNetProfit, s.MaxDrawdown))
	s.NetProfitMeanDD = contracts.Ratio(SafeRatio(s.TotalNetProfit, s.MeanDrawdown))

	// 2. Win / loss breakdown
	for _, t := range trades {
		switch {
		case t.Profit > 0:
			s.WinningTrades++
			s.GrossProfit += t.Profit
		case t.Profit < 0:
			s.LosingTrades++
			s.GrossLoss += -t.Profit
		}
	}

	if s.WinningTrades > 0 {
		s.AverageWin = s.GrossProfit / float64(s.WinningTrades)
	}
	if s.LosingTrades > 0 {
		s.AverageLoss = s.GrossLoss / float64(s.LosingTrades)
	}

	s.ProfitFactor = contracts.Ratio(SafeRatio(s.GrossProfit, s.GrossLoss))
	s.RiskRewardRatio = contracts.Ratio(SafeRatio(s.AverageWin, s.AverageLoss))

	if s.TotalTrades > 0 {
		s.WinRatioPercentage = 100 * float64(s.WinningTrades) / float64(s.TotalTrades)
		s.AverageTradeProfit = s.TotalNetProfit / float64(s.TotalTrades)
	}

	// 3. Streaks
	s.MaxConsecutiveWinningTrades, s.MaxConsecutiveLosingTrades = consecutiveStreaks(trades)

	// 4. Monthly pace
	s.MonthsSpan = MonthsSpan(trades)
	if s.MonthsSpan > 0 {
		s.TradesPerMonth = float64(s.TotalTrades) / float64(s.MonthsSpan)
		s.NetProfitPerMonth = s.TotalNetProfit / float64(s.MonthsSpan)
	}

	// 5. Risk-adjusted (per-trade returns, not annualized)
	returns := Returns(equity)
	s.SharpeRatio = Sharpe(returns)
	s.SortinoRatio = Sortino(returns)

	return s
}

// Sharpe mean/population stddev; 0 when stddev is 0
func Sharpe(returns []float64) float64 {
	sd := PopulationStdDev(returns)
	if sd == 0 {
		return 0
	}
	return Mean(returns) / sd
}

// Sortino mean/downside deviation; 0 when there is no downside
func Sortino(returns []float64) float64 {
	dd := DownsideDeviation(returns)
	if dd == 0 {
		return 0
	}
	return Mean(returns) / dd
}

// drawdownMagnitudes returns (max, mean of strictly negative) as positive values
func drawdownMagnitudes(drawdowns []float64) (float64, float64) {
	var worst, sum float64
	count := 0
	for _, d := range drawdowns {
		if d < worst {
			worst = d
		}
		if d < 0 {
			sum += d
			count++
		}
	}

	var mean float64
	if count > 0 {
		mean = math.Abs(sum / float64(count))
	}
	return math.Abs(worst), mean
}

// consecutiveStreaks returns the longest winning and losing runs.
// A zero-profit trade breaks both.
func consecutiveStreaks(trades []contracts.Trade) (int, int) {
	var maxWin, maxLoss, curWin, curLoss int
	for _, t := range trades {
		switch {
		case t.Profit > 0:
			curWin++
			curLoss = 0
		case t.Profit < 0:
			curLoss++
			curWin = 0
		default:
			curWin, curLoss = 0, 0
		}
		if curWin > maxWin {
			maxWin = curWin
		}
		if curLoss > maxLoss {
			maxLoss = curLoss
		}
	}
	return maxWin, maxLoss
}

// MonthsSpan is the inclusive calendar-month span between first and last exit; 0 without trades
func MonthsSpan(trades []contracts.Trade) int {
	if len(trades) == 0 {
		return 0
	}

	first, last := trades[0].ExitTime, trades[0].ExitTime
	for _, t := range trades[1:] {
		if t.ExitTime.Before(first) {
			first = t.ExitTime
		}
		if t.ExitTime.After(last) {
			last = t.ExitTime
		}
	}

	return monthIndex(last) - monthIndex(first) + 1
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}
