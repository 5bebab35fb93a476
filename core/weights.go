package core

import (
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultWeightTolerance = 0.01
	DefaultWeightStep      = 0.1
)

// NormalizeWeights returns the weight of every ticker, in the order given, summing to 1.
// Tickers absent from weights count as 0. When the raw sum is further than tol from 1
// the weights are rescaled by 1/sum, or set to 1/N when the sum is 0, and a warning is
// returned.
func NormalizeWeights(tickers []string, weights map[string]float64, tol float64) ([]float64, *WeightImbalanceWarning) {
	w := make([]float64, len(tickers))
	if len(tickers) == 0 {
		return w, nil
	}

	for i, t := range tickers {
		v := weights[t]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		w[i] = v
	}

	sum := floats.Sum(w)
	if math.Abs(sum-1) <= tol {
		return w, nil
	}

	if sum == 0 {
		for i := range w {
			w[i] = 1 / float64(len(w))
		}
		return w, &WeightImbalanceWarning{Sum: 0, EqualWeighted: true}
	}

	floats.Scale(1/sum, w)
	return w, &WeightImbalanceWarning{Sum: sum}
}

// WeightMap zips tickers with their weights
func WeightMap(tickers []string, w []float64) map[string]float64 {
	res := make(map[string]float64, len(tickers))
	for i, t := range tickers {
		res[t] = w[i]
	}
	return res
}

// SnapWeight clamps w to [0, 1] and rounds it to the nearest multiple of step, the way a
// slider control would. A non-positive step only clamps.
func SnapWeight(w, step float64) float64 {
	if math.IsNaN(w) {
		return 0
	}
	w = math.Min(math.Max(w, 0), 1)
	if step <= 0 {
		return w
	}

	d := decimal.NewFromFloat(step)
	snapped, _ := decimal.NewFromFloat(w).Div(d).Round(0).Mul(d).Float64()
	return math.Min(snapped, 1)
}
