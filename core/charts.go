package core

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/vicanso/go-charts/v2"

	ex "ndx.service/data/extensions"
)

type ChartKind string

const (
	ChartPortfolio   ChartKind = "portfolio"
	ChartInstruments ChartKind = "instruments"
)

var ErrNoChartData = errors.New("no data to chart")

const (
	chartWidth      = 1000
	chartHeight     = 560
	chartXAxisSplit = 8
)

func ParseChartKind(s string) (ChartKind, error) {
	switch ChartKind(s) {
	case "", ChartPortfolio:
		return ChartPortfolio, nil
	case ChartInstruments:
		return ChartInstruments, nil
	default:
		return "", fmt.Errorf("unknown chart kind %q, expected %s or %s", s, ChartPortfolio, ChartInstruments)
	}
}

// RenderChart draws the analysis as a PNG line chart in percent
func RenderChart(a *Analysis, kind ChartKind) ([]byte, error) {
	switch kind {
	case ChartInstruments:
		tickers := slices.Sorted(maps.Keys(a.Instruments))
		series := make([]ReturnSeries, len(tickers))
		for i, t := range tickers {
			series[i] = a.Instruments[t]
		}
		return renderLines("Cumulative Return of Stocks", tickers, series)
	default:
		return renderLines("Cumulative Return of Portfolio", []string{"Portfolio"}, []ReturnSeries{a.Portfolio})
	}
}

// renderLines expects every series to share the dates of the first
func renderLines(title string, names []string, series []ReturnSeries) ([]byte, error) {
	if len(series) == 0 || len(series[0]) == 0 {
		return nil, ErrNoChartData
	}

	labels := make([]string, len(series[0]))
	for i, p := range series[0] {
		labels[i] = ex.FmtShort(p.Date)
	}

	values := make([][]float64, len(series))
	for i, s := range series {
		if len(s) != len(labels) {
			return nil, fmt.Errorf("series %s has %d points, expected %d", names[i], len(s), len(labels))
		}
		values[i] = make([]float64, len(s))
		for j, p := range s {
			values[i][j] = p.Value * 100
		}
	}

	painter, err := charts.LineRender(values,
		charts.TitleTextOptionFunc(title, "cumulative return %"),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: min(chartXAxisSplit, len(labels))}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names, Top: charts.PositionBottom}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	)
	if err != nil {
		return nil, fmt.Errorf("error rendering chart: %w", err)
	}

	return painter.Bytes()
}
