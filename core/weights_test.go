package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestNormalizeWeightsRescalesPreservingRatio(t *testing.T) {
	w, warning := NormalizeWeights([]string{"A", "B"}, map[string]float64{"A": 0.3, "B": 0.3}, DefaultWeightTolerance)

	require.NotNil(t, warning)
	assert.InDelta(t, 1.0, floats.Sum(w), delta)
	assert.InDelta(t, w[0], w[1], delta)
	assert.InDelta(t, 0.6, warning.Sum, delta)
}

func TestNormalizeWeightsZeroSumFallsBackToEqual(t *testing.T) {
	w, warning := NormalizeWeights([]string{"A", "B"}, map[string]float64{"A": 0, "B": 0}, DefaultWeightTolerance)

	require.NotNil(t, warning)
	assert.True(t, warning.EqualWeighted)
	assert.Equal(t, map[string]float64{"A": 0.5, "B": 0.5}, WeightMap([]string{"A", "B"}, w))
}

func TestNormalizeWeightsWithinToleranceUntouched(t *testing.T) {
	w, warning := NormalizeWeights([]string{"A", "B", "C"}, map[string]float64{"A": 0.3, "B": 0.3, "C": 0.395}, DefaultWeightTolerance)

	assert.Nil(t, warning)
	assert.Equal(t, []float64{0.3, 0.3, 0.395}, w)
}

func TestNormalizeWeightsMissingTickerIsZero(t *testing.T) {
	w, warning := NormalizeWeights([]string{"A", "B"}, map[string]float64{"A": 0.5}, DefaultWeightTolerance)

	require.NotNil(t, warning)
	assert.InDelta(t, 1.0, w[0], delta)
	assert.InDelta(t, 0.0, w[1], delta)
}

func TestNormalizeWeightsIgnoresNonFinite(t *testing.T) {
	w, warning := NormalizeWeights([]string{"A", "B"}, map[string]float64{"A": math.NaN(), "B": math.Inf(1)}, DefaultWeightTolerance)

	require.NotNil(t, warning)
	assert.True(t, warning.EqualWeighted)
	assert.Equal(t, []float64{0.5, 0.5}, w)
}

func TestNormalizeWeightsEmpty(t *testing.T) {
	w, warning := NormalizeWeights(nil, map[string]float64{"A": 1}, DefaultWeightTolerance)
	assert.Empty(t, w)
	assert.Nil(t, warning)
}

func TestWeightImbalanceWarningMessages(t *testing.T) {
	assert.Equal(t, "weights sum to 0.60 instead of 1.00, rescaled proportionally", (&WeightImbalanceWarning{Sum: 0.6}).Error())
	assert.Equal(t, "weights sum to 0, assigned equal weights", (&WeightImbalanceWarning{EqualWeighted: true}).Error())
	assert.Equal(t, "weight_imbalance", (&WeightImbalanceWarning{}).Code())
}

func TestSnapWeight(t *testing.T) {
	cases := []struct {
		in, step, expected float64
	}{
		{0.44, 0.1, 0.4},
		{0.45, 0.1, 0.5},
		{0.3, 0.1, 0.3},
		{1.7, 0.1, 1},
		{-0.2, 0.1, 0},
		{0.37, 0.25, 0.25},
		{0.37, 0, 0.37},
		{math.NaN(), 0.1, 0},
	}

	for _, tc := range cases {
		assert.InDelta(t, tc.expected, SnapWeight(tc.in, tc.step), 1e-12, "SnapWeight(%v, %v)", tc.in, tc.step)
	}
}
