package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/internal/correlation"
	"github.com/wonny/stratfolio/internal/ingest"
	"github.com/wonny/stratfolio/internal/margin"
	"github.com/wonny/stratfolio/internal/metrics"
	"github.com/wonny/stratfolio/internal/portfolio"
	"github.com/wonny/stratfolio/internal/risk"
	"github.com/wonny/stratfolio/pkg/logger"
)

// ErrInvalidRequest is returned for malformed request options
var ErrInvalidRequest = errors.New("invalid request")

// Orchestrator coordinates ingestion, portfolio builds and on-demand risk runs
// ⭐ SSOT: API와 CLI는 이 타입을 통해서만 엔진을 호출
type Orchestrator struct {
	normalizer *portfolio.Normalizer
	builder    *portfolio.Builder
	simulator  *risk.MonteCarloSimulator
	stress     *risk.StressTester
	rates      margin.RateProvider
	defaults   Defaults
	logger     *logger.Logger
}

// Defaults are applied when a request leaves an option empty
type Defaults struct {
	Format            string
	MarginType        contracts.MarginType
	CorrelationMethod correlation.Method
	MonteCarlo        risk.MonteCarloConfig // StartingCapital / Workers fill zero request fields
}

// Upload is one trade log in a process request
type Upload struct {
	Name     string
	Quantity int
	Body     io.Reader
}

// ProcessRequest holds the inputs of a full portfolio build
type ProcessRequest struct {
	Format            string
	Files             []Upload
	MarginType        string
	CorrelationMethod string
}

// FilterRequest re-derives a portfolio over an exit-time window
type FilterRequest struct {
	Data              *contracts.PortfolioData
	Range             portfolio.DateRange
	MarginType        string
	CorrelationMethod string
}

// New creates a new orchestrator
func New(
	normalizer *portfolio.Normalizer,
	builder *portfolio.Builder,
	simulator *risk.MonteCarloSimulator,
	stress *risk.StressTester,
	rates margin.RateProvider,
	defaults Defaults,
	log *logger.Logger,
) *Orchestrator {
	if defaults.Format == "" {
		defaults.Format = ingest.FormatTradeStation
	}
	if !defaults.MarginType.Valid() {
		defaults.MarginType = contracts.MarginOvernight
	}
	if defaults.CorrelationMethod == "" {
		defaults.CorrelationMethod = correlation.Pearson
	}
	if defaults.MonteCarlo.StartingCapital <= 0 {
		defaults.MonteCarlo.StartingCapital = risk.DefaultMonteCarloConfig().StartingCapital
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Orchestrator{
		normalizer: normalizer,
		builder:    builder,
		simulator:  simulator,
		stress:     stress,
		rates:      rates,
		defaults:   defaults,
		logger:     log,
	}
}

// Defaults returns the effective defaults
func (o *Orchestrator) Defaults() Defaults {
	return o.defaults
}

// Process parses uploads, normalizes them and builds the PortfolioData
// Unreadable files become warnings like empty ones.
func (o *Orchestrator) Process(ctx context.Context, req ProcessRequest) (*contracts.PortfolioData, error) {
	start := time.Now()

	format := req.Format
	if strings.TrimSpace(format) == "" {
		format = o.defaults.Format
	}
	adapter, err := ingest.ForFormat(format)
	if err != nil {
		return nil, err
	}
	opts, err := o.buildOptions(req.MarginType, req.CorrelationMethod)
	if err != nil {
		return nil, err
	}
	if len(req.Files) == 0 {
		return nil, portfolio.ErrNoFiles
	}

	// 1. Parse
	parsed := make([]ingest.ParsedFile, 0, len(req.Files))
	var readWarnings []contracts.FileWarning
	for _, f := range req.Files {
		pf, err := ingest.ParseFile(adapter, f.Name, f.Body, f.Quantity)
		if err != nil {
			o.logger.WithError(err).WithField("file", f.Name).Warn("Trade log unreadable, excluded")
			readWarnings = append(readWarnings, contracts.FileWarning{File: f.Name, Reason: err.Error()})
			parsed = append(parsed, ingest.ParsedFile{Name: f.Name, Quantity: ingest.EffectiveQuantity(f.Quantity)})
			continue
		}
		metrics.TradesIngested.WithLabelValues(adapter.Name()).Add(float64(len(pf.Result.Trades)))
		metrics.RowsSkipped.WithLabelValues(adapter.Name()).Add(float64(pf.Result.Skipped))
		parsed = append(parsed, pf)
	}

	// 2. Normalize
	strategies, warnings, err := o.normalizer.Normalize(parsed)
	warnings = mergeWarnings(readWarnings, warnings)
	if err != nil {
		return nil, &WarningsError{Err: err, Warnings: warnings}
	}

	// 3. Build
	data, err := o.builder.Build(ctx, strategies, opts)
	if err != nil {
		return nil, err
	}
	data.Warnings = warnings

	o.logger.WithFields(map[string]interface{}{
		"format":      adapter.Name(),
		"files":       len(req.Files),
		"strategies":  len(data.Strategies),
		"warnings":    len(warnings),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Upload processed")

	return data, nil
}

// Filter keeps trades whose exit time falls in the range and rebuilds everything
func (o *Orchestrator) Filter(ctx context.Context, req FilterRequest) (*contracts.PortfolioData, error) {
	if req.Data == nil {
		return nil, fmt.Errorf("%w: portfolio data is required", ErrInvalidRequest)
	}
	if !req.Range.From.IsZero() && !req.Range.To.IsZero() && req.Range.From.After(req.Range.To) {
		return nil, fmt.Errorf("%w: start date after end date", ErrInvalidRequest)
	}

	marginTag := req.MarginType
	if marginTag == "" {
		marginTag = req.Data.MarginType
	}
	corrTag := req.CorrelationMethod
	if corrTag == "" {
		corrTag = req.Data.CorrelationMethod
	}
	opts, err := o.buildOptions(marginTag, corrTag)
	if err != nil {
		return nil, err
	}

	filtered := portfolio.FilterByDate(req.Data.Strategies, req.Range)
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: no trades in the selected period", portfolio.ErrNoTrades)
	}

	data, err := o.builder.Build(ctx, filtered, opts)
	if err != nil {
		return nil, err
	}
	data.Warnings = req.Data.Warnings

	o.logger.WithFields(map[string]interface{}{
		"from":   formatBound(req.Range.From),
		"to":     formatBound(req.Range.To),
		"trades": len(data.PortfolioTrades),
	}).Info("Portfolio filtered")

	return data, nil
}

// MonteCarlo runs the simulator against an aggregated portfolio
func (o *Orchestrator) MonteCarlo(ctx context.Context, data *contracts.PortfolioData, config risk.MonteCarloConfig) (*risk.MonteCarloResult, error) {
	prepared, err := o.prepare(data)
	if err != nil {
		return nil, err
	}
	if config.StartingCapital == 0 {
		config.StartingCapital = o.defaults.MonteCarlo.StartingCapital
	}
	if config.Workers == 0 {
		config.Workers = o.defaults.MonteCarlo.Workers
	}
	return o.simulator.Simulate(ctx, prepared, config)
}

// Stress runs the top-winner removal scenario
func (o *Orchestrator) Stress(ctx context.Context, data *contracts.PortfolioData, removalPercentage float64, marginTag string) (*risk.StressTestResult, error) {
	prepared, err := o.prepare(data)
	if err != nil {
		return nil, err
	}
	mt, ok := contracts.ParseMarginType(marginTag, contracts.MarginType(prepared.MarginType))
	if !ok {
		return nil, fmt.Errorf("%w: unknown margin type %q", ErrInvalidRequest, marginTag)
	}
	return o.stress.Run(ctx, prepared, removalPercentage, mt)
}

// Margins returns the resolved rate table for a margin type
func (o *Orchestrator) Margins(ctx context.Context, marginTag string) (contracts.MarginType, margin.RateTable, error) {
	mt, ok := contracts.ParseMarginType(marginTag, o.defaults.MarginType)
	if !ok {
		return "", nil, fmt.Errorf("%w: unknown margin type %q", ErrInvalidRequest, marginTag)
	}
	rates, err := o.rates.Rates(ctx, mt)
	if err != nil {
		return mt, nil, err
	}
	return mt, rates, nil
}

// prepare validates client-supplied data and repairs trade IDs when needed.
// The portfolio stream is re-derived from the strategies so stress removal stays consistent.
func (o *Orchestrator) prepare(data *contracts.PortfolioData) (*contracts.PortfolioData, error) {
	if data == nil || len(data.Strategies) == 0 {
		return nil, fmt.Errorf("%w: portfolio data is required", ErrInvalidRequest)
	}
	if portfolio.HasUniqueIDs(data.Strategies) && len(data.PortfolioTrades) > 0 {
		return data, nil
	}

	o.logger.Debug("Re-deriving portfolio stream with fresh trade IDs")
	rebuilt, err := portfolio.Analyze(portfolio.AssignIDs(data.Strategies), correlation.Method(data.CorrelationMethod))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	rebuilt.Margins = data.Margins
	rebuilt.UsedMargins = data.UsedMargins
	rebuilt.MarginType = data.MarginType
	rebuilt.Warnings = data.Warnings
	return rebuilt, nil
}

func (o *Orchestrator) buildOptions(marginTag, corrTag string) (portfolio.BuildOptions, error) {
	mt, ok := contracts.ParseMarginType(marginTag, o.defaults.MarginType)
	if !ok {
		return portfolio.BuildOptions{}, fmt.Errorf("%w: unknown margin type %q", ErrInvalidRequest, marginTag)
	}

	method := o.defaults.CorrelationMethod
	if strings.TrimSpace(corrTag) != "" {
		m, err := correlation.ParseMethod(corrTag)
		if err != nil {
			return portfolio.BuildOptions{}, err
		}
		method = m
	}

	return portfolio.BuildOptions{MarginType: mt, CorrelationMethod: method}, nil
}

// WarningsError carries per-file warnings alongside a fatal normalization error
type WarningsError struct {
	Err      error
	Warnings []contracts.FileWarning
}

func (e *WarningsError) Error() string {
	return e.Err.Error()
}

func (e *WarningsError) Unwrap() error {
	return e.Err
}

func mergeWarnings(a, b []contracts.FileWarning) []contracts.FileWarning {
	if len(a) == 0 {
		return b
	}
	// 읽기 실패 파일은 normalizer 에서 "no valid trades" 경고가 한 번 더 나오므로 제외
	failed := make(map[string]struct{}, len(a))
	for _, w := range a {
		failed[w.File] = struct{}{}
	}
	out := append([]contracts.FileWarning(nil), a...)
	for _, w := range b {
		if _, dup := failed[w.File]; !dup {
			out = append(out, w)
		}
	}
	return out
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.Format(time.RFC3339)
}
