package risk

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/internal/correlation"
	"github.com/wonny/stratfolio/internal/metrics"
	"github.com/wonny/stratfolio/internal/portfolio"
	"github.com/wonny/stratfolio/pkg/logger"
)

// =============================================================================
// Stress Test (순수 계산)
// =============================================================================

const (
	minRemovalPct = 1
	maxRemovalPct = 20
)

// StressTester 최고 수익 거래 제거 시나리오
type StressTester struct {
	logger *logger.Logger
}

// NewStressTester creates a stress tester
func NewStressTester(log *logger.Logger) *StressTester {
	if log == nil {
		log = logger.NewNop()
	}
	return &StressTester{logger: log}
}

// Run removes the top removalPercentage% profitable trades and recomputes the portfolio.
// Margins are copied from data unchanged; marginType is recorded only.
func (st *StressTester) Run(ctx context.Context, data *contracts.PortfolioData, removalPercentage float64, marginType contracts.MarginType) (result *StressTestResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("stress", start, err) }()

	if removalPercentage < minRemovalPct || removalPercentage > maxRemovalPct || math.IsNaN(removalPercentage) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidRemoval, removalPercentage)
	}
	if data == nil || len(data.PortfolioTrades) == 0 {
		return nil, fmt.Errorf("%w: no trades", ErrInsufficientData)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. 제거 대상 선정 (수익 내림차순, stable)
	removed := TopProfitable(data.PortfolioTrades, removalPercentage)
	ids := make(map[uint64]struct{}, len(removed))
	var removedValue float64
	for _, t := range removed {
		ids[t.ID] = struct{}{}
		removedValue += t.Profit
	}

	// 2. 재계산 (원본과 같은 상관 방식)
	stressed, err := portfolio.Analyze(
		portfolio.RemoveTrades(data.Strategies, ids),
		correlation.Method(data.CorrelationMethod),
	)
	if err != nil {
		return nil, fmt.Errorf("rebuild stressed portfolio: %w", err)
	}
	stressed.Margins = data.Margins
	stressed.UsedMargins = data.UsedMargins
	stressed.MarginType = data.MarginType
	stressed.Warnings = data.Warnings

	if !marginType.Valid() {
		marginType = contracts.MarginType(data.MarginType)
	}

	result = &StressTestResult{
		RunID:              uuid.New().String(),
		RemovalPercentage:  removalPercentage,
		MarginType:         string(marginType),
		RemovedTradesCount: len(removed),
		RemovedTradesValue: removedValue,
		RemovedTrades:      removed,
		Original:           data.Statistics,
		Stressed:           stressed,
		Impact:             Impacts(data.Statistics, stressed.Statistics),
	}

	st.logger.WithRun(result.RunID).WithFields(map[string]interface{}{
		"removal_pct":      removalPercentage,
		"removed_count":    result.RemovedTradesCount,
		"removed_value":    removedValue,
		"net_profit_delta": result.Impact.NetProfit,
		"duration_ms":      time.Since(start).Milliseconds(),
	}).Info("Stress test completed")

	return result, nil
}

// TopProfitable returns the floor(count*pct/100) largest winners, profit descending
func TopProfitable(trades []contracts.Trade, pct float64) []contracts.Trade {
	winners := make([]contracts.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Profit > 0 {
			winners = append(winners, t)
		}
	}
	sort.SliceStable(winners, func(i, j int) bool {
		return winners[i].Profit > winners[j].Profit
	})

	k := int(math.Floor(float64(len(winners)) * pct / 100))
	return winners[:k]
}

// Impacts 원본 대비 변화율 (%)
func Impacts(original, stressed contracts.Statistics) Impact {
	return Impact{
		NetProfit:    ImpactPct(original.TotalNetProfit, stressed.TotalNetProfit),
		MaxDrawdown:  ImpactPct(original.MaxDrawdown, stressed.MaxDrawdown),
		ProfitFactor: ImpactPct(original.ProfitFactor.Float(), stressed.ProfitFactor.Float()),
		WinRatio:     ImpactPct(original.WinRatioPercentage, stressed.WinRatioPercentage),
		SharpeRatio:  ImpactPct(original.SharpeRatio, stressed.SharpeRatio),
	}
}

// ImpactPct (stressed-original)/original*100; 0 when original is 0 or either side is not finite.
// A negative original flips the sign: -100 → -150 reads as +50.
func ImpactPct(original, stressed float64) float64 {
	if original == 0 || !isFinite(original) || !isFinite(stressed) {
		return 0
	}
	return (stressed - original) / original * 100
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
