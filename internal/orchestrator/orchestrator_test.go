package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/internal/correlation"
	"github.com/wonny/stratfolio/internal/ingest"
	"github.com/wonny/stratfolio/internal/portfolio"
	"github.com/wonny/stratfolio/internal/risk"
	"github.com/wonny/stratfolio/pkg/config"
	"github.com/wonny/stratfolio/pkg/logger"
)

const esLog = "Entry time,Exit time,Profit\n" +
	"2024-01-02 09:00,2024-01-02 15:00,100\n" +
	"2024-01-10 09:00,2024-01-11 15:00,-40\n" +
	"2024-02-05 09:00,2024-02-05 15:00,60\n"

const nqLog = "Entry time,Exit time,Profit\n" +
	"2024-01-03 09:00,2024-01-04 15:00,25\n" +
	"2024-02-01 09:00,2024-02-01 15:00,-10\n"

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func newTestOrchestrator() *Orchestrator {
	cfg := &config.Config{Engine: config.EngineConfig{
		MinSimulations:    10,
		MaxSimulations:    500,
		StartingCapital:   50000,
		Workers:           2,
		MaxMarginPoints:   100,
		CorrelationMethod: "pearson",
		DefaultMarginType: "overnight",
	}}
	return NewFromConfig(cfg, nil, logger.NewNop())
}

func processSample(t *testing.T, o *Orchestrator) *contracts.PortfolioData {
	t.Helper()
	data, err := o.Process(context.Background(), ProcessRequest{
		Format: ingest.FormatNinjaTrader,
		Files: []Upload{
			{Name: "ES-swing.csv", Quantity: 2, Body: strings.NewReader(esLog)},
			{Name: "NQ-day.csv", Quantity: 1, Body: strings.NewReader(nqLog)},
		},
	})
	require.NoError(t, err)
	return data
}

func TestProcess(t *testing.T) {
	o := newTestOrchestrator()
	data := processSample(t, o)

	require.Len(t, data.Strategies, 2)
	assert.Equal(t, "ES", data.Strategies[0].Symbol)
	assert.Equal(t, []float64{200, 120, 240}, data.Strategies[0].Equity)
	assert.Len(t, data.PortfolioTrades, 5)
	assert.Equal(t, 255.0, data.Statistics.TotalNetProfit)
	assert.Equal(t, "overnight", data.MarginType)
	assert.Equal(t, "pearson", data.CorrelationMethod)
	assert.Equal(t, []float64{2 * 16563, 25135}, data.Margins.StrategyMargins)
	assert.Empty(t, data.Warnings)
}

func TestProcess_MissingQuantityKeepsProfits(t *testing.T) {
	o := newTestOrchestrator()
	data, err := o.Process(context.Background(), ProcessRequest{
		Format: ingest.FormatNinjaTrader,
		Files: []Upload{
			{Name: "ES-swing.csv", Body: strings.NewReader(esLog)},
		},
	})
	require.NoError(t, err)

	require.Len(t, data.Strategies, 1)
	assert.Equal(t, 1, data.Strategies[0].Quantity)
	assert.Equal(t, []float64{100, 60, 120}, data.Strategies[0].Equity)
	assert.Equal(t, 120.0, data.Statistics.TotalNetProfit)
}

func TestProcess_Warnings(t *testing.T) {
	o := newTestOrchestrator()
	data, err := o.Process(context.Background(), ProcessRequest{
		Format:     "NinjaTrader",
		MarginType: "intraday",
		Files: []Upload{
			{Name: "ES-swing.csv", Quantity: 1, Body: strings.NewReader(esLog)},
			{Name: "broken.csv", Body: failingReader{}},
			{Name: "empty.csv", Body: strings.NewReader("header only\n")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "intraday", data.MarginType)
	require.Len(t, data.Warnings, 2)
	assert.Equal(t, "broken.csv", data.Warnings[0].File)
	assert.Contains(t, data.Warnings[0].Reason, "disk gone")
	assert.Equal(t, "empty.csv", data.Warnings[1].File)
}

func TestProcess_Errors(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()

	_, err := o.Process(ctx, ProcessRequest{Format: "metatrader"})
	assert.ErrorIs(t, err, ingest.ErrUnknownFormat)

	_, err = o.Process(ctx, ProcessRequest{Format: "ninjatrader"})
	assert.ErrorIs(t, err, portfolio.ErrNoFiles)

	_, err = o.Process(ctx, ProcessRequest{
		Format:     "ninjatrader",
		MarginType: "weekly",
		Files:      []Upload{{Name: "a.csv", Body: strings.NewReader(esLog)}},
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = o.Process(ctx, ProcessRequest{
		Format:            "ninjatrader",
		CorrelationMethod: "kendall",
		Files:             []Upload{{Name: "a.csv", Body: strings.NewReader(esLog)}},
	})
	assert.ErrorIs(t, err, correlation.ErrUnknownMethod)

	_, err = o.Process(ctx, ProcessRequest{
		Format: "ninjatrader",
		Files:  []Upload{{Name: "a.csv", Body: strings.NewReader("h\n")}},
	})
	assert.ErrorIs(t, err, portfolio.ErrNoTrades)
	var we *WarningsError
	require.ErrorAs(t, err, &we)
	assert.Len(t, we.Warnings, 1)
}

func TestFilter(t *testing.T) {
	o := newTestOrchestrator()
	data := processSample(t, o)

	filtered, err := o.Filter(context.Background(), FilterRequest{
		Data: data,
		Range: portfolio.DateRange{
			From: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)
	assert.Len(t, filtered.PortfolioTrades, 2)
	assert.Equal(t, 110.0, filtered.Statistics.TotalNetProfit)
	assert.Equal(t, data.MarginType, filtered.MarginType)

	_, err = o.Filter(context.Background(), FilterRequest{
		Data:  data,
		Range: portfolio.DateRange{From: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
	assert.ErrorIs(t, err, portfolio.ErrNoTrades)

	_, err = o.Filter(context.Background(), FilterRequest{
		Data: data,
		Range: portfolio.DateRange{
			From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = o.Filter(context.Background(), FilterRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestMonteCarlo_AppliesDefaults(t *testing.T) {
	o := newTestOrchestrator()
	data := processSample(t, o)

	cfg := risk.DefaultMonteCarloConfig()
	cfg.NumSimulations = 50
	cfg.Seed = 1
	cfg.StartingCapital = 0

	res, err := o.MonteCarlo(context.Background(), data, cfg)
	require.NoError(t, err)
	assert.Equal(t, 50000.0, res.Config.StartingCapital)
	assert.Equal(t, 2, res.Config.Workers)
	assert.Equal(t, 50, res.CompletedSimulations)

	cfg.NumSimulations = 5
	_, err = o.MonteCarlo(context.Background(), data, cfg)
	assert.ErrorIs(t, err, risk.ErrInvalidConfig)
}

func TestStress_RepairsMissingIDs(t *testing.T) {
	o := newTestOrchestrator()
	data := processSample(t, o)

	// client dropped ids
	stripped := *data
	stripped.Strategies = make([]contracts.Strategy, len(data.Strategies))
	for i, s := range data.Strategies {
		s.Trades = contracts.CloneTrades(s.Trades)
		for j := range s.Trades {
			s.Trades[j].ID = 0
		}
		stripped.Strategies[i] = s
	}

	res, err := o.Stress(context.Background(), &stripped, 20, "")
	require.NoError(t, err)
	assert.Equal(t, 0, res.RemovedTradesCount, "floor(3 winners * 20%) = 0")

	res, err = o.Stress(context.Background(), data, 20, "intraday")
	require.NoError(t, err)
	assert.Equal(t, "intraday", res.MarginType)
	assert.Equal(t, data.Margins, res.Stressed.Margins)

	_, err = o.Stress(context.Background(), nil, 5, "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = o.Stress(context.Background(), data, 50, "")
	assert.ErrorIs(t, err, risk.ErrInvalidRemoval)
}

func TestMargins(t *testing.T) {
	o := newTestOrchestrator()

	mt, rates, err := o.Margins(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, contracts.MarginOvernight, mt)
	assert.Equal(t, 16563.0, rates["ES"])

	_, _, err = o.Margins(context.Background(), "weekly")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
