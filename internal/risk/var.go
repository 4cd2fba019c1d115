package risk

import (
	"github.com/wonny/stratfolio/internal/stats"
)

// =============================================================================
// Tail risk over simulated paths
// =============================================================================

// tailConfidence is the confidence level reported with every Monte Carlo run
const tailConfidence = 0.95

// CalculateVaR historical VaR/CVaR of per-path outcomes (profit positive).
// The VaR quantile uses the same floor-index percentile as the path distributions,
// so VaR95 is -P5 whenever P5 is a loss.
// 반환값: 손실을 양수로 표현, 꼬리가 손실이 아니면 0
func CalculateVaR(outcomes []float64, confidence float64) VaRResult {
	result := VaRResult{Confidence: confidence}
	n := len(outcomes)
	if n == 0 || confidence <= 0 || confidence >= 1 {
		return result
	}

	sorted := stats.SortedCopy(outcomes)
	q := stats.PercentileFloor(sorted, 1-confidence)
	if q < 0 {
		result.VaR = -q
	}

	// CVaR: VaR 분위수 이하 꼬리 평균
	tail := sorted[:tailLen(n, confidence)]
	if avg := stats.Mean(tail); avg < 0 {
		result.CVaR = -avg
	}
	return result
}

// tailLen number of worst outcomes up to and including the VaR quantile
func tailLen(n int, confidence float64) int {
	k := int((1-confidence)*float64(n)) + 1
	if k > n {
		k = n
	}
	return k
}

// tailRisk fills the VaR fields of an aggregated run
func tailRisk(result *MonteCarloResult, finals, annuals []float64) {
	result.FinalEquityVaR = CalculateVaR(finals, tailConfidence)
	result.AnnualReturnVaR = CalculateVaR(annuals, tailConfidence)
}
