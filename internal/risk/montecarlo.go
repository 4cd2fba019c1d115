package risk

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/internal/metrics"
	"github.com/wonny/stratfolio/internal/stats"
	"github.com/wonny/stratfolio/pkg/logger"
)

const (
	// defaultTradesPerYear 거래가 1건 이하일 때의 기본 빈도
	defaultTradesPerYear = 252
	// minYearsSpan 기간이 너무 짧을 때 빈도 폭주 방지
	minYearsSpan = 0.1
	// profitFactorCap grossLoss 가 0 인 경로의 PF 상한
	profitFactorCap = 10
	// largeDrawdownFraction max(finalEquity) 대비 대형 낙폭 기준
	largeDrawdownFraction = 0.2
	// tradingDaysPerYear Sharpe 연환산 계수
	tradingDaysPerYear = 252
	daysPerYear        = 365.25
)

// MonteCarloSimulator Monte Carlo 시뮬레이터
// 경로마다 seed+index 로 RNG 를 만들어 스케줄링과 무관하게 재현 가능
type MonteCarloSimulator struct {
	limits Limits
	logger *logger.Logger
}

// NewMonteCarloSimulator 새 시뮬레이터 생성
func NewMonteCarloSimulator(limits Limits, log *logger.Logger) *MonteCarloSimulator {
	if log == nil {
		log = logger.NewNop()
	}
	return &MonteCarloSimulator{
		limits: limits,
		logger: log,
	}
}

// pathInput 경로 생성에 필요한 과거 거래 요약
type pathInput struct {
	trades      []contracts.Trade
	mean        float64
	std         float64
	avgDuration time.Duration
	lastExit    time.Time
}

// Simulate 포트폴리오 거래로 Monte Carlo 시뮬레이션 실행
// On cancellation the aggregate over completed paths is returned with Partial set,
// together with an error wrapping ErrSimulationCancelled.
func (mc *MonteCarloSimulator) Simulate(ctx context.Context, data *contracts.PortfolioData, config MonteCarloConfig) (*MonteCarloResult, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: no portfolio data", ErrInsufficientData)
	}
	return mc.SimulateTrades(ctx, data.PortfolioTrades, config)
}

// SimulateTrades runs the simulation over an exit-time ordered trade stream
func (mc *MonteCarloSimulator) SimulateTrades(ctx context.Context, trades []contracts.Trade, config MonteCarloConfig) (result *MonteCarloResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation("montecarlo", start, err) }()

	// 입력 검증
	if err := ValidateConfig(config, mc.limits); err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, fmt.Errorf("%w: no trades", ErrInsufficientData)
	}
	if config.Seed == 0 {
		config.Seed = time.Now().UnixNano()
	}

	years, _ := config.Timeframe.Years()
	tpy := TradesPerYear(trades)
	perRun := TradesPerRun(tpy, years)
	input := newPathInput(trades)

	// 1. 경로 시뮬레이션 (병렬)
	paths, done := mc.runPaths(ctx, input, config, perRun, years)

	// 2. 완료된 경로만 집계
	completed := make([]PathResult, 0, len(paths))
	for i, ok := range done {
		if ok {
			completed = append(completed, paths[i])
		}
	}
	metrics.MonteCarloPaths.Add(float64(len(completed)))

	result = Aggregate(completed)
	result.RunID = uuid.New().String()
	result.RunDate = start
	result.Config = config
	result.InputTradeCount = len(trades)
	result.TradesPerYear = tpy
	result.TradesPerRun = perRun
	result.DurationMs = time.Since(start).Milliseconds()

	if ctxErr := ctx.Err(); ctxErr != nil && len(completed) < config.NumSimulations {
		result.Partial = true
		mc.logger.WithRun(result.RunID).WithFields(map[string]interface{}{
			"completed": len(completed),
			"requested": config.NumSimulations,
		}).Warn("Monte Carlo cancelled, returning partial result")
		return result, fmt.Errorf("%w: %w", ErrSimulationCancelled, ctxErr)
	}

	mc.logger.WithRun(result.RunID).WithFields(map[string]interface{}{
		"simulations":    config.NumSimulations,
		"method":         string(config.Method),
		"timeframe":      string(config.Timeframe),
		"trades_per_run": perRun,
		"p50_final":      result.FinalEquity.P50,
		"duration_ms":    result.DurationMs,
	}).Info("Monte Carlo simulation completed")

	return result, nil
}

// runPaths 정적 청크 분할 워커 풀
// Each path writes only its own slot; done[i] marks slot i as valid.
func (mc *MonteCarloSimulator) runPaths(ctx context.Context, input pathInput, config MonteCarloConfig, perRun int, years float64) ([]PathResult, []bool) {
	n := config.NumSimulations
	paths := make([]PathResult, n)
	done := make([]bool, n)

	workers := config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, n)
	chunk := (n + workers - 1) / workers

	var (
		mu       sync.Mutex
		finished int
	)
	report := func() {
		if config.Progress == nil {
			return
		}
		mu.Lock()
		finished++
		config.Progress(finished, n)
		mu.Unlock()
	}

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, min((w+1)*chunk, n)
		if lo >= hi {
			break
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if ctx.Err() != nil {
					return nil
				}
				rng := rand.New(rand.NewSource(config.Seed + int64(i)))
				profits := simulatePath(rng, input, config.Method, perRun)
				paths[i] = EvaluatePath(profits, config.StartingCapital, years)
				done[i] = true
				report()
			}
			return nil
		})
	}
	_ = g.Wait()

	return paths, done
}

// =============================================================================
// Path Generation
// =============================================================================

// TradesPerYear 과거 거래 빈도
// years = (last exit - first exit), floored at 0.1; 252 when there is at most one trade.
func TradesPerYear(trades []contracts.Trade) float64 {
	if len(trades) <= 1 {
		return defaultTradesPerYear
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
	years := last.Sub(first).Hours() / 24 / daysPerYear
	return float64(len(trades)) / math.Max(years, minYearsSpan)
}

// TradesPerRun round(tradesPerYear * years)
func TradesPerRun(tradesPerYear, years float64) int {
	return int(math.Round(tradesPerYear * years))
}

func newPathInput(trades []contracts.Trade) pathInput {
	profits := contracts.Profits(trades)

	var total time.Duration
	lastExit := trades[0].ExitTime
	for _, t := range trades {
		total += t.Duration()
		if t.ExitTime.After(lastExit) {
			lastExit = t.ExitTime
		}
	}
	return pathInput{
		trades:      trades,
		mean:        stats.Mean(profits),
		std:         stats.PopulationStdDev(profits),
		avgDuration: total / time.Duration(len(trades)), // inverted trades count as 0
		lastExit:    lastExit,
	}
}

// simulatePath returns the path's per-trade profits in exit order
func simulatePath(rng *rand.Rand, input pathInput, method MonteCarloMethod, n int) []float64 {
	var path []contracts.Trade
	if method == MethodParametric {
		path = parametricPath(rng, input, n)
	} else {
		path = bootstrapPath(rng, input.trades, n)
	}
	return contracts.Profits(path)
}

// bootstrapPath 복원추출
// Copies keep their historical timestamps, so the path is re-sorted by the preserved exit time.
func bootstrapPath(rng *rand.Rand, trades []contracts.Trade, n int) []contracts.Trade {
	path := make([]contracts.Trade, n)
	for i := range path {
		path[i] = trades[rng.Intn(len(trades))]
	}
	sort.SliceStable(path, func(a, b int) bool {
		return path[a].ExitTime.Before(path[b].ExitTime)
	})
	return path
}

// parametricPath 정규분포 손익, 마지막 과거 청산 시점부터 평균 보유기간씩 전진
func parametricPath(rng *rand.Rand, input pathInput, n int) []contracts.Trade {
	path := make([]contracts.Trade, n)
	clock := input.lastExit
	for i := range path {
		open := clock
		exit := open.Add(input.avgDuration)
		path[i] = contracts.Trade{
			OpenTime: open,
			ExitTime: exit,
			Profit:   input.mean + input.std*boxMuller(rng),
		}
		clock = exit
	}
	return path
}

// boxMuller 표준정규 난수 (Box-Muller 변환)
func boxMuller(rng *rand.Rand) float64 {
	u1 := rng.Float64()
	for u1 == 0 {
		u1 = rng.Float64()
	}
	u2 := rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// =============================================================================
// Path Evaluation & Aggregation
// =============================================================================

// EvaluatePath 경로 하나의 지표 계산
// Equity starts at 0; drawdown peak is seeded at 0 and reported as a positive magnitude.
func EvaluatePath(profits []float64, startingCapital, years float64) PathResult {
	equity := make([]float64, len(profits))
	var cum, peak, maxDD, grossProfit, grossLoss float64
	for i, p := range profits {
		cum += p
		equity[i] = cum
		peak = math.Max(peak, cum)
		maxDD = math.Max(maxDD, peak-cum)
		if p > 0 {
			grossProfit += p
		} else if p < 0 {
			grossLoss -= p
		}
	}

	r := PathResult{
		FinalEquity: cum,
		MaxDrawdown: maxDD,
		SharpeRatio: stats.Sharpe(stats.Returns(equity)) * math.Sqrt(tradingDaysPerYear),
	}

	base := (startingCapital + cum) / startingCapital
	if base <= 0 || years <= 0 {
		r.AnnualReturn = -1
	} else {
		r.AnnualReturn = math.Pow(base, 1/years) - 1
	}

	// grossLoss 0 (빈 경로 포함) → profitFactorCap; stats.Compute reports +Inf for the same input
	if grossLoss > 0 {
		r.ProfitFactor = grossProfit / grossLoss
	} else {
		r.ProfitFactor = profitFactorCap
	}

	return r
}

// Aggregate 경로 결과 집계 (5/50/95 백분위, 확률)
func Aggregate(paths []PathResult) *MonteCarloResult {
	result := &MonteCarloResult{CompletedSimulations: len(paths)}
	n := len(paths)
	if n == 0 {
		return result
	}

	finals := make([]float64, n)
	dds := make([]float64, n)
	annuals := make([]float64, n)
	pfs := make([]float64, n)
	sharpes := make([]float64, n)

	var profitable int
	maxFinal := math.Inf(-1)
	for i, p := range paths {
		finals[i] = p.FinalEquity
		dds[i] = p.MaxDrawdown
		annuals[i] = p.AnnualReturn
		pfs[i] = p.ProfitFactor
		sharpes[i] = p.SharpeRatio
		if p.FinalEquity > 0 {
			profitable++
		}
		maxFinal = math.Max(maxFinal, p.FinalEquity)
	}

	var large int
	for _, dd := range dds {
		if dd > largeDrawdownFraction*maxFinal {
			large++
		}
	}

	result.FinalEquity = distribution(finals)
	result.MaxDrawdown = distribution(dds)
	result.AnnualReturn = distribution(annuals)
	result.ProfitFactor = distribution(pfs)
	result.SharpeRatio = distribution(sharpes)
	result.ProbabilityOfProfit = float64(profitable) / float64(n)
	result.ProbabilityOfLargeDrawdown = float64(large) / float64(n)
	result.MeanFinalEquity = stats.Mean(finals)
	result.StdFinalEquity = stats.PopulationStdDev(finals)
	tailRisk(result, finals, annuals)

	return result
}

func distribution(values []float64) Distribution {
	sorted := stats.SortedCopy(values)
	return Distribution{
		P5:  stats.PercentileFloor(sorted, 0.05),
		P50: stats.PercentileFloor(sorted, 0.50),
		P95: stats.PercentileFloor(sorted, 0.95),
	}
}
