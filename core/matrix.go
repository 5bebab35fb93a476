package core

import (
	"maps"
	"slices"
	"time"

	"github.com/guregu/null/v6"

	ex "ndx.service/data/extensions"
)

// PriceMatrix aligns several price series on the union of their dates.
// A cell is invalid when the ticker has no price on that date.
type PriceMatrix struct {
	Dates   []time.Time
	Columns map[string][]null.Float
}

// NewPriceMatrix builds the matrix from per ticker series, dates are truncated to the day
// and a later point on the same day replaces an earlier one
func NewPriceMatrix(series map[string]PriceSeries) *PriceMatrix {
	index := make(map[time.Time]int)
	for _, s := range series {
		for _, p := range s {
			index[ex.DateOnly(p.Date)] = 0
		}
	}

	dates := slices.SortedFunc(maps.Keys(index), func(a, b time.Time) int { return a.Compare(b) })
	for i, d := range dates {
		index[d] = i
	}

	columns := make(map[string][]null.Float, len(series))
	for ticker, s := range series {
		col := make([]null.Float, len(dates))
		for _, p := range s {
			col[index[ex.DateOnly(p.Date)]] = p.Price
		}
		columns[ticker] = col
	}

	return &PriceMatrix{Dates: dates, Columns: columns}
}

// Tickers are sorted so that iteration order is stable
func (pm *PriceMatrix) Tickers() []string {
	if pm == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(pm.Columns))
}

func (pm *PriceMatrix) Len() int {
	if pm == nil {
		return 0
	}
	return len(pm.Dates)
}

// Series returns the column for ticker, nil when the ticker is not in the matrix
func (pm *PriceMatrix) Series(ticker string) PriceSeries {
	if pm == nil {
		return nil
	}
	col, ok := pm.Columns[ticker]
	if !ok {
		return nil
	}

	res := make(PriceSeries, len(pm.Dates))
	for i, d := range pm.Dates {
		res[i] = PricePoint{Date: d, Price: col[i]}
	}
	return res
}

// Between restricts the matrix to the days in [start, end], both ends inclusive
func (pm *PriceMatrix) Between(start, end time.Time) *PriceMatrix {
	res := &PriceMatrix{Columns: make(map[string][]null.Float)}
	if pm == nil {
		return res
	}

	start, end = ex.DateOnly(start), ex.DateOnly(end)
	lo, _ := slices.BinarySearchFunc(pm.Dates, start, func(d, t time.Time) int { return d.Compare(t) })
	hi, found := slices.BinarySearchFunc(pm.Dates, end, func(d, t time.Time) int { return d.Compare(t) })
	if found {
		hi++
	}
	if lo >= hi {
		for t := range pm.Columns {
			res.Columns[t] = []null.Float{}
		}
		res.Dates = []time.Time{}
		return res
	}

	res.Dates = slices.Clone(pm.Dates[lo:hi])
	for t, col := range pm.Columns {
		res.Columns[t] = slices.Clone(col[lo:hi])
	}
	return res
}
