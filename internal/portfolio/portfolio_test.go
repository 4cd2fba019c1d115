package portfolio

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/internal/correlation"
	"github.com/wonny/stratfolio/internal/ingest"
	"github.com/wonny/stratfolio/internal/margin"
	"github.com/wonny/stratfolio/pkg/logger"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 15, 0, 0, 0, time.UTC)
}

func trade(openDay, exitDay int, profit float64) contracts.Trade {
	return contracts.Trade{OpenTime: day(openDay), ExitTime: day(exitDay), Profit: profit}
}

func parsed(name string, qty int, trades ...contracts.Trade) ingest.ParsedFile {
	return ingest.ParsedFile{
		Name:     name,
		Quantity: qty,
		Result:   &ingest.ParseResult{Trades: trades, Rows: len(trades)},
	}
}

func TestAggregate_RoundTrip(t *testing.T) {
	strategies := []contracts.Strategy{
		NewStrategy("ES-a", "ES", 1, []contracts.Trade{trade(1, 1, 100), trade(3, 3, 60)}),
		NewStrategy("NQ-b", "NQ", 1, []contracts.Trade{trade(2, 2, -40)}),
	}

	series := Aggregate(strategies)
	assert.Equal(t, []float64{100, 60, 120}, series.Equity)
	assert.Equal(t, []float64{0, -40, 0}, series.Drawdowns)
	assert.Equal(t, -40.0, series.Trades[1].Profit)
}

func TestAggregate_StableOrder(t *testing.T) {
	a := trade(1, 2, 1)
	a.ID = 1
	b := trade(1, 2, 2)
	b.ID = 2
	strategies := []contracts.Strategy{
		NewStrategy("A", "A", 1, []contracts.Trade{a}),
		NewStrategy("B", "B", 1, []contracts.Trade{b}),
	}

	series := Aggregate(strategies)
	require.Len(t, series.Trades, 2)
	assert.Equal(t, uint64(1), series.Trades[0].ID)
	assert.Equal(t, uint64(2), series.Trades[1].ID)
}

func TestEquityCurve_Monotonicity(t *testing.T) {
	profits := []float64{10, -5, 0, 7, -20, 3}
	trades := make([]contracts.Trade, len(profits))
	for i, p := range profits {
		trades[i] = trade(1, i+1, p)
	}

	equity := EquityCurve(trades)
	for i := 1; i < len(equity); i++ {
		if profits[i] >= 0 {
			assert.GreaterOrEqual(t, equity[i], equity[i-1])
		} else {
			assert.Less(t, equity[i], equity[i-1])
		}
	}

	dd := Drawdowns(equity)
	require.Len(t, dd, len(equity))
	peak := math.Inf(-1)
	for i, v := range equity {
		peak = math.Max(peak, v)
		assert.LessOrEqual(t, dd[i], 0.0)
		assert.Equal(t, v-peak, dd[i])
	}
}

func TestDrawdowns_FirstTradeLoss(t *testing.T) {
	assert.Equal(t, []float64{0, 0, -5}, Drawdowns([]float64{-10, -3, -8}))
	assert.Empty(t, Drawdowns(nil))
}

func TestNormalize(t *testing.T) {
	files := []ingest.ParsedFile{
		parsed(`C:\logs\es-breakout.csv`, 2, trade(3, 4, 50), trade(1, 2, -10)),
		parsed("empty.csv", 1),
		parsed("nq-trend.txt", 0, trade(1, 3, 25)),
	}
	files[0].Result.Skipped = 2

	strategies, warnings, err := NewNormalizer(logger.NewNop()).Normalize(files)
	require.NoError(t, err)
	require.Len(t, strategies, 2)

	es := strategies[0]
	assert.Equal(t, "es-breakout", es.Name)
	assert.Equal(t, "ES", es.Symbol)
	assert.Equal(t, 2, es.Quantity)
	assert.Equal(t, []float64{-10, 40}, es.Equity)
	assert.Equal(t, 40.0, es.NetProfit)
	assert.Equal(t, uint64(1), es.Trades[0].ID)
	assert.Equal(t, "es-breakout", es.Trades[0].Strategy)

	nq := strategies[1]
	assert.Equal(t, 1, nq.Quantity, "quantity defaults to 1")
	assert.Equal(t, uint64(3), nq.Trades[0].ID, "IDs continue across files")

	require.Len(t, warnings, 2)
	assert.Equal(t, `C:\logs\es-breakout.csv`, warnings[0].File)
	assert.Contains(t, warnings[0].Reason, "2 malformed rows")
	assert.Equal(t, "empty.csv", warnings[1].File)

	// input untouched
	assert.Equal(t, 50.0, files[0].Result.Trades[0].Profit)
}

func TestNormalize_Errors(t *testing.T) {
	_, _, err := Normalize(nil)
	assert.ErrorIs(t, err, ErrNoFiles)

	_, warnings, err := Normalize([]ingest.ParsedFile{parsed("a.csv", 1), {Name: "b.csv"}})
	assert.ErrorIs(t, err, ErrNoTrades)
	assert.Len(t, warnings, 2)
}

func TestFilterByDate(t *testing.T) {
	strategies := []contracts.Strategy{
		NewStrategy("A", "A", 1, []contracts.Trade{trade(1, 1, 10), trade(1, 5, 20), trade(1, 9, 30)}),
		NewStrategy("B", "B", 1, []contracts.Trade{trade(1, 9, 5)}),
	}

	filtered := FilterByDate(strategies, DateRange{From: day(5), To: day(5)})
	require.Len(t, filtered, 1, "strategy B left empty is dropped")
	assert.Equal(t, []float64{20}, filtered[0].Equity)

	open := FilterByDate(strategies, DateRange{})
	assert.Len(t, open, 2)
	assert.True(t, DateRange{}.IsOpen())

	fromOnly := FilterByDate(strategies, DateRange{From: day(5)})
	assert.Equal(t, []float64{20, 50}, fromOnly[0].Equity)

	// original untouched
	assert.Len(t, strategies[0].Trades, 3)
}

func TestRemoveTrades_KeepsSlots(t *testing.T) {
	a := trade(1, 1, 10)
	a.ID = 1
	b := trade(1, 2, 20)
	b.ID = 2
	strategies := []contracts.Strategy{
		NewStrategy("A", "A", 1, []contracts.Trade{a}),
		NewStrategy("B", "B", 3, []contracts.Trade{b}),
	}

	out := RemoveTrades(strategies, map[uint64]struct{}{1: {}})
	require.Len(t, out, 2)
	assert.Empty(t, out[0].Trades)
	assert.Equal(t, 0.0, out[0].NetProfit)
	assert.Equal(t, 3, out[1].Quantity)
	assert.Len(t, strategies[0].Trades, 1)
}

func TestBuilder_Build(t *testing.T) {
	strategies := []contracts.Strategy{
		NewStrategy("ES-a", "ES", 1, []contracts.Trade{trade(1, 1, 100), trade(3, 3, 60)}),
		NewStrategy("NQ-b", "NQ", 2, []contracts.Trade{trade(2, 2, -40)}),
	}

	b := NewBuilder(margin.StaticProvider{}, margin.NewEngine(100), logger.NewNop())
	data, err := b.Build(context.Background(), strategies, BuildOptions{
		MarginType:        contracts.MarginIntraday,
		CorrelationMethod: correlation.Spearman,
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{100, 60, 120}, data.PortfolioEquity)
	assert.Equal(t, 120.0, data.Statistics.TotalNetProfit)
	assert.Equal(t, 40.0, data.Statistics.MaxDrawdown)
	assert.Equal(t, "spearman", data.CorrelationMethod)
	assert.Equal(t, "intraday", data.MarginType)
	assert.Equal(t, 2, data.CorrelationMatrix.Size())
	assert.Equal(t, 1.0, data.CorrelationMatrix[0][0])

	// ES 500 x1, NQ 1000 x2
	assert.Equal(t, []float64{500, 2000}, data.Margins.StrategyMargins)
	assert.Equal(t, 2540.0, data.Margins.MinimumAccountRequired)
	assert.Len(t, data.UsedMargins, 3)
	assert.Equal(t, 2000.0, data.Margins.MaxUsedMargin)
	assert.Equal(t, "2024-03-02", data.Margins.MaxUsedMarginFirstDate)

	assert.Equal(t, map[string]float64{"2024-03": 120}, data.MonthlyReturns)
	assert.Len(t, data.DailyReturns, 3)
}

func TestBuilder_DefaultsAndBadMethod(t *testing.T) {
	strategies := []contracts.Strategy{
		NewStrategy("ES-a", "ES", 1, []contracts.Trade{trade(1, 1, 100)}),
	}

	data, err := NewBuilder(nil, nil, nil).Build(context.Background(), strategies, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, "overnight", data.MarginType)
	assert.Equal(t, "pearson", data.CorrelationMethod)

	_, err = NewBuilder(nil, nil, nil).Build(context.Background(), strategies, BuildOptions{CorrelationMethod: "kendall"})
	assert.ErrorIs(t, err, correlation.ErrUnknownMethod)
}

func TestAssignIDs(t *testing.T) {
	strategies := []contracts.Strategy{
		NewStrategy("A", "A", 1, []contracts.Trade{trade(1, 1, 1), trade(1, 2, 2)}),
		NewStrategy("B", "B", 1, []contracts.Trade{trade(1, 3, 3)}),
	}
	assert.False(t, HasUniqueIDs(strategies))

	out := AssignIDs(strategies)
	assert.True(t, HasUniqueIDs(out))
	assert.Equal(t, uint64(3), out[1].Trades[0].ID)
	assert.Equal(t, "B", out[1].Trades[0].Strategy)
	assert.Equal(t, uint64(0), strategies[0].Trades[0].ID)

	out[1].Trades[0].ID = 1
	assert.False(t, HasUniqueIDs(out))
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2024-03-05", "2024-03-05")
	require.NoError(t, err)
	assert.True(t, r.Contains(day(5)), "date-only end covers the whole day")
	assert.False(t, r.Contains(day(6)))

	r, err = ParseDateRange("", "2024-03-05T12:00:00")
	require.NoError(t, err)
	assert.True(t, r.From.IsZero())
	assert.False(t, r.Contains(day(5)), "15:00 is after the explicit 12:00 bound")

	r, err = ParseDateRange("2024-03-05T16:00:00Z", "")
	require.NoError(t, err)
	assert.False(t, r.Contains(day(5)))

	_, err = ParseDateRange("05/03/2024", "")
	assert.Error(t, err)
}
