package correlation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stratfolio/internal/contracts"
)

func series(name string, equity ...float64) contracts.EquitySeries {
	return contracts.EquitySeries{Name: name, Equity: equity}
}

func TestRank_Ties(t *testing.T) {
	assert.Equal(t, []float64{1.5, 1.5, 3}, Rank([]float64{1, 1, 2}))
	assert.Equal(t, []float64{3, 1, 2}, Rank([]float64{30, 10, 20}))
	assert.Equal(t, []float64{2, 2, 2}, Rank([]float64{5, 5, 5}))
	assert.Empty(t, Rank(nil))
}

func TestPearsonCoefficient(t *testing.T) {
	assert.InDelta(t, 1.0, PearsonCoefficient([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-12)
	assert.InDelta(t, -1.0, PearsonCoefficient([]float64{1, 2, 3}, []float64{3, 2, 1}), 1e-12)
	assert.Equal(t, 0.0, PearsonCoefficient([]float64{1, 1, 1}, []float64{1, 2, 3}), "zero variance")
	assert.Equal(t, 0.0, PearsonCoefficient([]float64{1}, []float64{1}), "single point")
}

func TestSpearmanCoefficient_Monotonic(t *testing.T) {
	// non-linear but monotonic => 1
	assert.InDelta(t, 1.0, SpearmanCoefficient([]float64{1, 2, 3, 4}, []float64{1, 8, 27, 64}), 1e-12)
}

func TestMatrix_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var input []contracts.EquitySeries
	for s := 0; s < 5; s++ {
		eq := make([]float64, 20+s*3)
		var cum float64
		for i := range eq {
			cum += rng.NormFloat64() * 100
			eq[i] = cum
		}
		input = append(input, series("s", eq...))
	}

	for _, method := range []Method{Pearson, Spearman} {
		m, err := Matrix(input, method)
		require.NoError(t, err)
		require.Equal(t, 5, m.Size())

		for i := range m {
			assert.Equal(t, 1.0, m[i][i])
			for j := range m {
				assert.Equal(t, m[i][j], m[j][i])
				assert.GreaterOrEqual(t, m[i][j], -1.0)
				assert.LessOrEqual(t, m[i][j], 1.0)
			}
		}
	}
}

func TestMatrix_InsufficientOverlap(t *testing.T) {
	m, err := Matrix([]contracts.EquitySeries{
		series("a", 1, 2, 3, 4),
		series("b", 5, 6), // one return point
	}, Pearson)
	require.NoError(t, err)

	assert.Equal(t, 0.0, m[0][1])
	assert.Equal(t, 1.0, m[1][1])
}

func TestMatrix_AlignedByIndex(t *testing.T) {
	m, err := Matrix([]contracts.EquitySeries{
		series("a", 0, 10, 5, 20, 100),
		series("b", 0, 20, 10, 40),
	}, Pearson)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, m[0][1], 1e-12)
}

func TestMatrix_UnknownMethod(t *testing.T) {
	_, err := Matrix(nil, Method("kendall"))
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, Pearson, m)

	m, err = ParseMethod("Spearman")
	require.NoError(t, err)
	assert.Equal(t, Spearman, m)

	_, err = ParseMethod("kendall")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestFromStrategies(t *testing.T) {
	strategies := []contracts.Strategy{
		{Name: "a", Equity: []float64{1, 3, 2, 5}},
		{Name: "b", Equity: []float64{2, 6, 4, 10}},
	}
	m, err := FromStrategies(strategies, Spearman)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m[0][1], 1e-12)
}
