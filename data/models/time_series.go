package models

import (
	"time"

	"github.com/guregu/null/v6"
)

type TimeSeriesResult struct {
	Metadata   *TimeSeriesMetadata
	TimeSeries []*TimeSeriesData
}

// TimeSeriesMetadata is one row per symbol, shared by the provider response and the store
type TimeSeriesMetadata struct {
	Id            int32     `db:"id"`
	Symbol        string    `db:"symbol"`
	LastRefreshed time.Time `db:"last_refreshed"`
	TimeZone      string    `db:"-"`
}

type TimeSeriesOHLCV struct {
	Open   null.Float `db:"open"`
	High   null.Float `db:"high"`
	Low    null.Float `db:"low"`
	Close  null.Float `db:"close"`
	Volume null.Float `db:"volume"`
}

type TimeSeriesData struct {
	SourceId  int32     `db:"source_id"`
	Timestamp time.Time `db:"timestamp"`
	TimeSeriesOHLCV
	AdjustedClose  null.Float `db:"adjusted_close"`
	DividendAmount null.Float `db:"dividend_amount"`
}

// TimeSeriesPrice is the slim projection used to build return series
type TimeSeriesPrice struct {
	Timestamp     time.Time  `db:"timestamp"`
	AdjustedClose null.Float `db:"adjusted_close"`
}
