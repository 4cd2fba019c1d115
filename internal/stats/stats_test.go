package stats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stratfolio/internal/contracts"
)

func tradesFromProfits(profits ...float64) []contracts.Trade {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	out := make([]contracts.Trade, len(profits))
	for i, p := range profits {
		out[i] = contracts.Trade{
			ID:       uint64(i + 1),
			OpenTime: base.AddDate(0, 0, i),
			ExitTime: base.AddDate(0, 0, i).Add(time.Hour),
			Profit:   p,
		}
	}
	return out
}

func equityOf(trades []contracts.Trade) []float64 {
	eq := make([]float64, len(trades))
	var cum float64
	for i, t := range trades {
		cum += t.Profit
		eq[i] = cum
	}
	return eq
}

func drawdownsOf(equity []float64) []float64 {
	dd := make([]float64, len(equity))
	if len(equity) == 0 {
		return dd
	}
	peak := equity[0]
	for i, v := range equity {
		peak = math.Max(peak, v)
		dd[i] = v - peak
	}
	return dd
}

func compute(profits ...float64) contracts.Statistics {
	trades := tradesFromProfits(profits...)
	eq := equityOf(trades)
	return Compute(trades, eq, drawdownsOf(eq))
}

func TestCompute_RoundTrip(t *testing.T) {
	s := compute(100, -40, 60)

	assert.Equal(t, 120.0, s.TotalNetProfit)
	assert.Equal(t, 40.0, s.MaxDrawdown)
	assert.Equal(t, 40.0, s.MeanDrawdown)
	assert.InDelta(t, 66.67, s.WinRatioPercentage, 0.01)
	assert.Equal(t, 4.0, s.ProfitFactor.Float())
	assert.Equal(t, 160.0, s.GrossProfit)
	assert.Equal(t, 40.0, s.GrossLoss)
	assert.Equal(t, 3, s.TotalTrades)
	assert.Equal(t, 2, s.WinningTrades)
	assert.Equal(t, 1, s.LosingTrades)
	assert.Equal(t, 40.0, s.AverageTradeProfit)
	assert.Equal(t, 2.0, s.RiskRewardRatio.Float()) // avgWin 80 / avgLoss 40
	assert.Equal(t, 3.0, s.NetProfitMaxDD.Float())
	assert.Equal(t, 1, s.MonthsSpan)
	assert.Equal(t, 3.0, s.TradesPerMonth)
	assert.Equal(t, 120.0, s.NetProfitPerMonth)
}

func TestCompute_ProfitFactorEdgeCases(t *testing.T) {
	allWin := compute(10, 20, 30)
	assert.True(t, math.IsInf(allWin.ProfitFactor.Float(), 1))
	assert.True(t, math.IsInf(allWin.RiskRewardRatio.Float(), 1))
	assert.True(t, math.IsInf(allWin.NetProfitMaxDD.Float(), 1), "no drawdown")

	allLoss := compute(-10, -20)
	assert.Equal(t, 0.0, allLoss.ProfitFactor.Float())
	assert.Equal(t, 0.0, allLoss.WinRatioPercentage)
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil, nil, nil)

	assert.Equal(t, 0, s.TotalTrades)
	assert.Equal(t, 0.0, s.TotalNetProfit)
	assert.Equal(t, 0.0, s.WinRatioPercentage)
	assert.Equal(t, 0, s.MonthsSpan)
	assert.Equal(t, 0.0, s.TradesPerMonth)
	assert.Equal(t, 0.0, s.SharpeRatio)
	assert.False(t, math.IsNaN(s.AverageTradeProfit))
}

func TestCompute_Streaks(t *testing.T) {
	// zero-profit trade breaks both streaks
	s := compute(1, 2, 0, 3, -1, -2, -3, 0, -4, 5)

	assert.Equal(t, 2, s.MaxConsecutiveWinningTrades)
	assert.Equal(t, 3, s.MaxConsecutiveLosingTrades)
}

func TestCompute_SharpeAndSortino(t *testing.T) {
	trades := tradesFromProfits(100, -50, 25)
	eq := equityOf(trades) // 100, 50, 75

	s := Compute(trades, eq, drawdownsOf(eq))

	// returns: -50/100 = -0.5, 25/50 = 0.5
	assert.InDelta(t, 0.0, s.SharpeRatio, 1e-12)
	assert.InDelta(t, 0.0, s.SortinoRatio, 1e-12)

	r := Returns([]float64{0, 10, 5})
	require.Len(t, r, 2)
	assert.Equal(t, 10.0, r[0], "denominator floored at 1")
	assert.Equal(t, -0.5, r[1])
}

func TestCompute_MonthsSpanInclusive(t *testing.T) {
	trades := []contracts.Trade{
		{ExitTime: time.Date(2023, 11, 30, 0, 0, 0, 0, time.UTC), Profit: 10},
		{ExitTime: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Profit: 30},
	}
	assert.Equal(t, 4, MonthsSpan(trades))

	s := Compute(trades, equityOf(trades), nil)
	assert.Equal(t, 10.0, s.NetProfitPerMonth)
	assert.Equal(t, 0.5, s.TradesPerMonth)
}

func TestCompute_LengthMismatch(t *testing.T) {
	trades := tradesFromProfits(10, -5, 20)

	assert.NotPanics(t, func() {
		s := Compute(trades, []float64{10}, []float64{0, -5})
		assert.Equal(t, 10.0, s.TotalNetProfit)
		assert.Equal(t, 5.0, s.MaxDrawdown)
	})
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
	assert.InDelta(t, math.Sqrt(2.0/3.0), PopulationStdDev([]float64{1, 2, 3}), 1e-12)
	assert.Equal(t, 0.0, PopulationStdDev(nil))
	assert.InDelta(t, math.Sqrt(5.0/4.0), DownsideDeviation([]float64{-1, -2, 3, 4}), 1e-12)

	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, 1.0, PercentileFloor(sorted, 0.05))
	assert.Equal(t, 6.0, PercentileFloor(sorted, 0.5))
	assert.Equal(t, 10.0, PercentileFloor(sorted, 0.95))
	assert.Equal(t, 10.0, PercentileFloor(sorted, 1.0))
	assert.Equal(t, 0.0, PercentileFloor(nil, 0.5))
}

func TestMonthlyAndDailyReturns(t *testing.T) {
	trades := []contracts.Trade{
		{ExitTime: time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC), Profit: 100},
		{ExitTime: time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC), Profit: -30},
		{ExitTime: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC), Profit: 50},
	}

	monthly := MonthlyReturns(trades)
	assert.Equal(t, map[string]float64{"2024-01": 70, "2024-02": 50}, monthly)

	daily := DailyReturns(trades)
	assert.Equal(t, map[string]float64{"2024-01-05": 70, "2024-02-01": 50}, daily)
}
