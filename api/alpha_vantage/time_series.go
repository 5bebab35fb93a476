package alpha_vantage

import (
	"strings"
)

// TimeSeries specifies the daily series to query for stock data.
type TimeSeries uint8

const (
	TimeSeriesDaily TimeSeries = iota
	TimeSeriesDailyAdjusted
)

func (t TimeSeries) Function() string {
	switch t {
	case TimeSeriesDaily:
		return "TIME_SERIES_DAILY"
	case TimeSeriesDailyAdjusted:
		return "TIME_SERIES_DAILY_ADJUSTED"
	default:
		return ""
	}
}

// TimeSeriesKey is the top level json key holding the rows, both daily variants share one
func (t TimeSeries) TimeSeriesKey() string {
	switch t {
	case TimeSeriesDaily, TimeSeriesDailyAdjusted:
		return "Time Series (Daily)"
	default:
		return ""
	}
}

func (t TimeSeries) IsAdjusted() bool {
	return strings.HasSuffix(t.Function(), "_ADJUSTED")
}

// IsDaily series accept the outputsize parameter
func (t TimeSeries) IsDaily() bool {
	return t == TimeSeriesDaily || t == TimeSeriesDailyAdjusted
}
