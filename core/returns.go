package core

import (
	"math"
	"time"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/floats"

	ex "ndx.service/data/extensions"
)

type PricePoint struct {
	Date  time.Time
	Price null.Float
}

// PriceSeries is ordered ascending by date with unique dates
type PriceSeries []PricePoint

type ReturnPoint struct {
	Date  time.Time
	Value float64
}

// ReturnSeries holds one cumulative return per input date, the first is always 0
type ReturnSeries []ReturnPoint

// Final is the last cumulative return, 0 for an empty series
func (rs ReturnSeries) Final() float64 {
	if len(rs) == 0 {
		return 0
	}
	return rs[len(rs)-1].Value
}

func (rs ReturnSeries) Values() []float64 {
	res := make([]float64, len(rs))
	for i, p := range rs {
		res[i] = p.Value
	}
	return res
}

type ReturnEngine struct {
	WeightTolerance float64
}

func NewReturnEngine(tol float64) ReturnEngine {
	if tol <= 0 {
		tol = DefaultWeightTolerance
	}
	return ReturnEngine{WeightTolerance: tol}
}

// CumulativeReturns compounds the day over day change of a single price series.
// Days without a usable change (the first day, a missing price, a zero previous
// price) count as 0.
func CumulativeReturns(series PriceSeries) ReturnSeries {
	if len(series) == 0 {
		return ReturnSeries{}
	}

	dates := make([]time.Time, len(series))
	prices := make([]null.Float, len(series))
	for i, p := range series {
		dates[i] = p.Date
		prices[i] = p.Price
	}

	return compound(dates, dailyChanges(prices))
}

// InstrumentReturns applies CumulativeReturns to every ticker of the matrix over [start, end]
func InstrumentReturns(matrix *PriceMatrix, start, end time.Time) map[string]ReturnSeries {
	sub := matrix.Between(start, end)

	res := make(map[string]ReturnSeries, len(sub.Columns))
	for _, t := range sub.Tickers() {
		res[t] = CumulativeReturns(sub.Series(t))
	}
	return res
}

// PortfolioReturns computes the cumulative return of the weighted portfolio of every
// ticker in matrix over [start, end]. A single ticker ignores weights. Weights that do
// not sum to 1 are normalized and reported as a warning.
func (e ReturnEngine) PortfolioReturns(matrix *PriceMatrix, weights map[string]float64, start, end time.Time) (ReturnSeries, []Warning, error) {
	tickers := matrix.Tickers()
	if len(tickers) == 0 {
		return nil, nil, &MissingSelectionError{Prompt: PromptSelectTickers}
	}

	start, end = ex.DateOnly(start), ex.DateOnly(end)
	if start.After(end) {
		return ReturnSeries{}, nil, nil
	}

	sub := matrix.Between(start, end)

	if len(tickers) == 1 {
		return CumulativeReturns(sub.Series(tickers[0])), nil, nil
	}

	var warnings []Warning
	w, warning := NormalizeWeights(tickers, weights, e.WeightTolerance)
	if warning != nil {
		warnings = append(warnings, warning)
	}

	weighted := make([]float64, sub.Len())
	for i, t := range tickers {
		floats.AddScaled(weighted, w[i], dailyChanges(sub.Columns[t]))
	}

	return compound(sub.Dates, weighted), warnings, nil
}

// dailyChanges measures each price against the last usable price before it
func dailyChanges(prices []null.Float) []float64 {
	pct := make([]float64, len(prices))

	var prev null.Float
	for i, p := range prices {
		if !usable(p) {
			continue
		}
		if usable(prev) && prev.Float64 != 0 {
			if v := (p.Float64 - prev.Float64) / prev.Float64; isFinite(v) {
				pct[i] = v
			}
		}
		prev = p
	}

	return pct
}

func compound(dates []time.Time, pct []float64) ReturnSeries {
	res := make(ReturnSeries, len(pct))

	growth := 1.0
	for i, v := range pct {
		if !isFinite(v) {
			v = 0
		}
		growth *= 1 + v

		cum := growth - 1
		if !isFinite(cum) {
			cum = 0
		}
		res[i] = ReturnPoint{Date: dates[i], Value: cum}
	}

	return res
}

func usable(p null.Float) bool {
	return p.Valid && isFinite(p.Float64)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
