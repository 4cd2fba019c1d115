package stats

import (
	"math"
	"sort"
)

// =============================================================================
// 통계 유틸리티
// =============================================================================

// Mean 평균 계산
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PopulationStdDev 모표준편차 (divide by N)
func PopulationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// DownsideDeviation sqrt(sum(r^2 for r < 0) / N), N = full sample count
func DownsideDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		if v < 0 {
			sumSq += v * v
		}
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// PercentileFloor 백분위수 (보간 없음)
// sorted: 오름차순, p: 0.0 ~ 1.0, index = floor(p*n) clamped to [0, n-1]
func PercentileFloor(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Floor(p * float64(n)))
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// SortedCopy returns an ascending copy of values
func SortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// Returns 구간 수익률: (eq[i]-eq[i-1]) / max(|eq[i-1]|, 1)
// The floor at 1 keeps returns bounded near zero equity.
func Returns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		base := math.Max(math.Abs(equity[i-1]), 1)
		out[i-1] = (equity[i] - equity[i-1]) / base
	}
	return out
}

// SafeRatio returns num/den, or +Inf when den == 0
func SafeRatio(num, den float64) float64 {
	if den == 0 {
		return math.Inf(1)
	}
	return num / den
}
