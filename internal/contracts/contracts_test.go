package contracts

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 10, 0, 0, 0, time.UTC)
}

func TestSortByExitTime_StableTies(t *testing.T) {
	trades := []Trade{
		{ID: 1, ExitTime: day(3)},
		{ID: 2, ExitTime: day(1)},
		{ID: 3, ExitTime: day(3)},
		{ID: 4, ExitTime: day(2)},
	}

	assert.False(t, IsSortedByExitTime(trades))
	SortByExitTime(trades)

	ids := []uint64{trades[0].ID, trades[1].ID, trades[2].ID, trades[3].ID}
	assert.Equal(t, []uint64{2, 4, 1, 3}, ids)
	assert.True(t, IsSortedByExitTime(trades))
}

func TestTrade_WindowAndDuration(t *testing.T) {
	inverted := Trade{OpenTime: day(5), ExitTime: day(2)}

	start, end := inverted.Window()
	assert.Equal(t, day(2), start)
	assert.Equal(t, day(5), end)
	assert.Equal(t, time.Duration(0), inverted.Duration())

	normal := Trade{OpenTime: day(1), ExitTime: day(2)}
	assert.Equal(t, 24*time.Hour, normal.Duration())
}

func TestCloneTrades_Independent(t *testing.T) {
	orig := []Trade{{ID: 1, Profit: 10}}
	cp := CloneTrades(orig)
	cp[0].Profit = 99

	assert.Equal(t, 10.0, orig[0].Profit)
	assert.Nil(t, CloneTrades(nil))
}

func TestRatio_JSONRoundTrip(t *testing.T) {
	stats := Statistics{
		ProfitFactor:    Inf(),
		RiskRewardRatio: Ratio(1.5),
		NetProfitMaxDD:  Ratio(math.NaN()),
	}

	data, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"profitFactor":"Infinity"`)
	assert.Contains(t, string(data), `"riskRewardRatio":1.5`)
	assert.Contains(t, string(data), `"netProfitMaxDD":null`)

	var decoded Statistics
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.ProfitFactor.IsInf())
	assert.Equal(t, 1.5, decoded.RiskRewardRatio.Float())
	assert.False(t, decoded.NetProfitMaxDD.IsFinite())
}

func TestRatio_String(t *testing.T) {
	assert.Equal(t, "∞", Inf().String())
	assert.Equal(t, "4.00", Ratio(4).String())
}

func TestParseMarginType(t *testing.T) {
	m, ok := ParseMarginType("", MarginOvernight)
	assert.True(t, ok)
	assert.Equal(t, MarginOvernight, m)

	m, ok = ParseMarginType("intraday", MarginOvernight)
	assert.True(t, ok)
	assert.Equal(t, MarginIntraday, m)

	_, ok = ParseMarginType("weekly", MarginOvernight)
	assert.False(t, ok)
}

func TestPortfolioData_Period(t *testing.T) {
	p := &PortfolioData{}
	start, end := p.Period()
	assert.True(t, start.IsZero())
	assert.True(t, end.IsZero())

	p.PortfolioTrades = []Trade{{ExitTime: day(1)}, {ExitTime: day(9)}}
	start, end = p.Period()
	assert.Equal(t, day(1), start)
	assert.Equal(t, day(9), end)
}
