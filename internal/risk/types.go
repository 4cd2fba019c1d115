package risk

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/stratfolio/internal/contracts"
)

var (
	ErrInsufficientData    = errors.New("insufficient data for simulation")
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrInvalidRemoval      = errors.New("removal percentage must be between 1 and 20")
	ErrSimulationCancelled = errors.New("simulation cancelled")
)

// =============================================================================
// Timeframe & Method
// =============================================================================

// Timeframe 투영 기간
type Timeframe string

const (
	Timeframe6M  Timeframe = "6m"
	Timeframe1Y  Timeframe = "1y"
	Timeframe2Y  Timeframe = "2y"
	Timeframe5Y  Timeframe = "5y"
	Timeframe10Y Timeframe = "10y"
)

var timeframeYears = map[Timeframe]float64{
	Timeframe6M:  0.5,
	Timeframe1Y:  1,
	Timeframe2Y:  2,
	Timeframe5Y:  5,
	Timeframe10Y: 10,
}

// Years returns the projection length in years
func (t Timeframe) Years() (float64, bool) {
	y, ok := timeframeYears[t]
	return y, ok
}

// ParseTimeframe maps "6m", "1y", "2y", "5y", "10y"; empty means 1y
func ParseTimeframe(tag string) (Timeframe, error) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(tag)))
	if tf == "" {
		return Timeframe1Y, nil
	}
	if _, ok := tf.Years(); !ok {
		return "", fmt.Errorf("%w: unknown timeframe %q", ErrInvalidConfig, tag)
	}
	return tf, nil
}

// MonteCarloMethod 시뮬레이션 방법
type MonteCarloMethod string

const (
	MethodBootstrap  MonteCarloMethod = "bootstrap"  // 과거 거래 복원추출
	MethodParametric MonteCarloMethod = "parametric" // 정규분포 가정 (Box-Muller)
)

// ParseMethod maps a method tag; empty means bootstrap
func ParseMethod(tag string) (MonteCarloMethod, error) {
	switch m := MonteCarloMethod(strings.ToLower(strings.TrimSpace(tag))); m {
	case "", MethodBootstrap:
		return MethodBootstrap, nil
	case MethodParametric:
		return MethodParametric, nil
	}
	return "", fmt.Errorf("%w: unknown method %q", ErrInvalidConfig, tag)
}

// =============================================================================
// Monte Carlo Types
// =============================================================================

// ProgressFunc receives completed/total run counts; calls are serialized
type ProgressFunc func(done, total int)

// MonteCarloConfig Monte Carlo 시뮬레이션 설정
// ⭐ SSOT: 재현성을 위해 모든 설정을 명시적으로 기록
type MonteCarloConfig struct {
	NumSimulations  int              `json:"numSimulations"`  // 시뮬레이션 횟수
	Timeframe       Timeframe        `json:"timeframe"`       // 6m/1y/2y/5y/10y
	Method          MonteCarloMethod `json:"method"`          // bootstrap/parametric
	Seed            int64            `json:"seed"`            // 재현성용 시드 (0=시간 기반)
	StartingCapital float64          `json:"startingCapital"` // 연환산 수익률 기준 자본
	Workers         int              `json:"workers"`         // 0 = GOMAXPROCS
	Progress        ProgressFunc     `json:"-"`
}

// DefaultMonteCarloConfig 기본 Monte Carlo 설정
func DefaultMonteCarloConfig() MonteCarloConfig {
	return MonteCarloConfig{
		NumSimulations:  1000,
		Timeframe:       Timeframe1Y,
		Method:          MethodBootstrap,
		Seed:            0, // 시간 기반
		StartingCapital: 100000,
	}
}

// Limits bounds the simulation count
type Limits struct {
	MinSimulations int
	MaxSimulations int
}

// DefaultLimits 100 ~ 10000
func DefaultLimits() Limits {
	return Limits{MinSimulations: 100, MaxSimulations: 10000}
}

// ValidateConfig 설정 유효성 검사
func ValidateConfig(config MonteCarloConfig, limits Limits) error {
	if config.NumSimulations < limits.MinSimulations || config.NumSimulations > limits.MaxSimulations {
		return fmt.Errorf("%w: NumSimulations must be between %d and %d",
			ErrInvalidConfig, limits.MinSimulations, limits.MaxSimulations)
	}
	if _, ok := config.Timeframe.Years(); !ok {
		return fmt.Errorf("%w: unknown timeframe %q", ErrInvalidConfig, config.Timeframe)
	}
	if config.Method != MethodBootstrap && config.Method != MethodParametric {
		return fmt.Errorf("%w: unknown method %q", ErrInvalidConfig, config.Method)
	}
	if config.StartingCapital <= 0 {
		return fmt.Errorf("%w: StartingCapital must be > 0", ErrInvalidConfig)
	}
	if config.Workers < 0 {
		return fmt.Errorf("%w: Workers must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// Distribution 5/50/95 백분위 (floor index, 보간 없음)
type Distribution struct {
	P5  float64 `json:"p5"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
}

// PathResult 경로 하나의 결과
// MaxDrawdown is a positive magnitude here, unlike the signed portfolio drawdown series.
type PathResult struct {
	FinalEquity  float64 `json:"finalEquity"`
	MaxDrawdown  float64 `json:"maxDrawdown"`
	AnnualReturn float64 `json:"annualReturn"`
	ProfitFactor float64 `json:"profitFactor"` // capped at 10
	SharpeRatio  float64 `json:"sharpeRatio"`  // annualized by sqrt(252)
}

// MonteCarloResult Monte Carlo 시뮬레이션 결과
// ⭐ SSOT: 재현성을 위해 Config 포함
type MonteCarloResult struct {
	RunID                string           `json:"runId"`
	RunDate              time.Time        `json:"runDate"`
	Config               MonteCarloConfig `json:"config"`
	InputTradeCount      int              `json:"inputTradeCount"`
	TradesPerYear        float64          `json:"tradesPerYear"`
	TradesPerRun         int              `json:"tradesPerRun"`
	CompletedSimulations int              `json:"completedSimulations"`
	Partial              bool             `json:"partial"` // 취소로 일부 경로만 집계

	FinalEquity  Distribution `json:"finalEquity"`
	MaxDrawdown  Distribution `json:"maxDrawdown"`
	AnnualReturn Distribution `json:"annualReturn"`
	ProfitFactor Distribution `json:"profitFactor"`
	SharpeRatio  Distribution `json:"sharpeRatio"`

	ProbabilityOfProfit        float64 `json:"probabilityOfProfit"`
	ProbabilityOfLargeDrawdown float64 `json:"probabilityOfLargeDrawdown"`

	MeanFinalEquity float64   `json:"meanFinalEquity"`
	StdFinalEquity  float64   `json:"stdFinalEquity"`
	FinalEquityVaR  VaRResult `json:"finalEquityVaR"`  // 95%, dollars, loss positive
	AnnualReturnVaR VaRResult `json:"annualReturnVaR"` // 95%, fraction, loss positive

	DurationMs int64 `json:"durationMs"`
}

// =============================================================================
// VaR Types
// =============================================================================

// VaRResult VaR 계산 결과
// ⭐ SSOT: VaR/CVaR는 손실을 양수로 표현
type VaRResult struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
}

// =============================================================================
// Stress Test Types
// =============================================================================

// Impact 지표별 변화율 (%)
type Impact struct {
	NetProfit    float64 `json:"netProfit"`
	MaxDrawdown  float64 `json:"maxDrawdown"`
	ProfitFactor float64 `json:"profitFactor"`
	WinRatio     float64 `json:"winRatio"`
	SharpeRatio  float64 `json:"sharpeRatio"`
}

// StressTestResult 스트레스 테스트 결과
type StressTestResult struct {
	RunID              string                   `json:"runId"`
	RemovalPercentage  float64                  `json:"removalPercentage"`
	MarginType         string                   `json:"marginType"`
	RemovedTradesCount int                      `json:"removedTradesCount"`
	RemovedTradesValue float64                  `json:"removedTradesValue"`
	RemovedTrades      []contracts.Trade        `json:"removedTrades"`
	Original           contracts.Statistics     `json:"originalStatistics"`
	Stressed           *contracts.PortfolioData `json:"stressedData"`
	Impact             Impact                   `json:"impact"`
}
