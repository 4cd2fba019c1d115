package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/internal/correlation"
	"github.com/wonny/stratfolio/internal/margin"
	"github.com/wonny/stratfolio/internal/metrics"
	"github.com/wonny/stratfolio/internal/stats"
	"github.com/wonny/stratfolio/pkg/logger"
)

// BuildOptions selects the margin table and correlation method for a build
type BuildOptions struct {
	MarginType        contracts.MarginType
	CorrelationMethod correlation.Method
}

// Builder assembles PortfolioData: aggregate, statistics, correlation and margins
// ⭐ SSOT: PortfolioData 조립은 여기서만 (업로드, 필터 공용)
type Builder struct {
	rates  margin.RateProvider
	engine *margin.Engine
	logger *logger.Logger
}

// NewBuilder creates a new portfolio builder
func NewBuilder(rates margin.RateProvider, engine *margin.Engine, log *logger.Logger) *Builder {
	if rates == nil {
		rates = margin.StaticProvider{}
	}
	if engine == nil {
		engine = margin.NewEngine(0)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Builder{
		rates:  rates,
		engine: engine,
		logger: log,
	}
}

// Build computes the full PortfolioData for strategies
func (b *Builder) Build(ctx context.Context, strategies []contracts.Strategy, opts BuildOptions) (data *contracts.PortfolioData, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("build", start, err) }()

	if !opts.MarginType.Valid() {
		opts.MarginType = contracts.MarginOvernight
	}

	// 1. Aggregate + statistics + correlation
	data, err = Analyze(strategies, opts.CorrelationMethod)
	if err != nil {
		return nil, err
	}

	// 2. Margins (rate lookup degrades to the static table, never fails)
	rates, rateErr := b.rates.Rates(ctx, opts.MarginType)
	if rateErr != nil {
		b.logger.WithError(rateErr).Warn("Margin rate lookup failed, using fallback table")
		rates = margin.Fallback(opts.MarginType)
	}
	data.Margins, data.UsedMargins = b.engine.Compute(data.Strategies, rates, data.Statistics.MaxDrawdown)
	data.MarginType = string(opts.MarginType)

	b.logger.WithFields(map[string]interface{}{
		"strategies":    len(data.Strategies),
		"trades":        len(data.PortfolioTrades),
		"net_profit":    data.Statistics.TotalNetProfit,
		"max_drawdown":  data.Statistics.MaxDrawdown,
		"margin_type":   data.MarginType,
		"margin_points": len(data.UsedMargins),
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Info("Portfolio built")

	return data, nil
}

// Analyze computes everything except margins.
// The stress test reuses it so stressed and original statistics share one definition.
func Analyze(strategies []contracts.Strategy, method correlation.Method) (*contracts.PortfolioData, error) {
	if method == "" {
		method = correlation.Pearson
	}

	matrix, err := correlation.FromStrategies(strategies, method)
	if err != nil {
		return nil, fmt.Errorf("correlation: %w", err)
	}

	series := Aggregate(strategies)
	return &contracts.PortfolioData{
		Strategies:        strategies,
		PortfolioTrades:   series.Trades,
		PortfolioEquity:   series.Equity,
		Drawdowns:         series.Drawdowns,
		Statistics:        stats.Compute(series.Trades, series.Equity, series.Drawdowns),
		MonthlyReturns:    stats.MonthlyReturns(series.Trades),
		DailyReturns:      stats.DailyReturns(series.Trades),
		CorrelationMatrix: matrix,
		CorrelationMethod: string(method),
	}, nil
}
