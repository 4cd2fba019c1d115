package correlation

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wonny/stratfolio/internal/contracts"
)

// Method selects the correlation coefficient
type Method string

const (
	Pearson  Method = "pearson"
	Spearman Method = "spearman"
)

// ErrUnknownMethod is returned for an unsupported method tag
var ErrUnknownMethod = errors.New("unknown correlation method")

// ParseMethod maps a tag to a Method; empty means Pearson
func ParseMethod(tag string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(tag))) {
	case "", Pearson:
		return Pearson, nil
	case Spearman:
		return Spearman, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, tag)
}

// minOverlap is the minimum number of aligned return points per pair
const minOverlap = 2

// Matrix computes the pairwise correlation of strategy return series
// ⭐ SSOT: 전략 간 상관관계는 여기서만 계산
//
// Returns are equity first differences aligned by index over the shorter series.
// Pairs with fewer than 2 aligned points stay 0. The diagonal is 1.
func Matrix(series []contracts.EquitySeries, method Method) (contracts.CorrelationMatrix, error) {
	var coef func(x, y []float64) float64
	switch method {
	case Pearson:
		coef = PearsonCoefficient
	case Spearman:
		coef = SpearmanCoefficient
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	n := len(series)
	returns := make([][]float64, n)
	for i, s := range series {
		returns[i] = Diff(s.Equity)
	}

	m := make(contracts.CorrelationMatrix, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			l := min(len(returns[i]), len(returns[j]))
			if l < minOverlap {
				continue
			}
			c := clamp(coef(returns[i][:l], returns[j][:l]))
			m[i][j] = c
			m[j][i] = c
		}
	}

	return m, nil
}

// FromStrategies is Matrix over each strategy's equity series
func FromStrategies(strategies []contracts.Strategy, method Method) (contracts.CorrelationMatrix, error) {
	series := make([]contracts.EquitySeries, len(strategies))
	for i, s := range strategies {
		series[i] = s.EquitySeries()
	}
	return Matrix(series, method)
}

// Diff returns period-over-period differences
func Diff(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i] - values[i-1]
	}
	return out
}

// PearsonCoefficient cov(x,y)/(sd(x)*sd(y)) over equal-length inputs; 0 if either variance is 0
func PearsonCoefficient(x, y []float64) float64 {
	n := min(len(x), len(y))
	if n < minOverlap {
		return 0
	}

	var meanX, meanY float64
	for i := 0; i < n; i++ {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// SpearmanCoefficient is Pearson over average ranks
func SpearmanCoefficient(x, y []float64) float64 {
	n := min(len(x), len(y))
	return PearsonCoefficient(Rank(x[:n]), Rank(y[:n]))
}

// Rank returns 1-based ranks; ties share the midpoint of their rank range
// [1, 1, 2] -> [1.5, 1.5, 3]
func Rank(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] < values[idx[b]]
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		// positions i..j (0-based) -> ranks i+1..j+1
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
