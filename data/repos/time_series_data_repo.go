package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	m "ndx.service/data/models"
	q "ndx.service/data/queries"
)

const timeSeriesDataTable = "av_time_series_data"

var timeSeriesDataColumns = []string{
	"source_id", "timestamp", "open", "high", "low",
	"close", "volume", "adjusted_close", "dividend_amount",
}

// GetTimeSeriesPricesBetween returns adjusted closes in [start, end] ascending, both ends inclusive by calendar day
func (pg *Postgres) GetTimeSeriesPricesBetween(ctx context.Context, symbol string, start, end time.Time) ([]*m.TimeSeriesPrice, error) {
	args := pgx.NamedArgs{
		"symbol": symbol,
		"start":  start,
		"end":    end.AddDate(0, 0, 1),
	}

	res, err := Query[m.TimeSeriesPrice](ctx, pg, q.Get(q.QueryHelper.Select.TimeSeriesPricesBetween), args)
	if err != nil {
		return nil, fmt.Errorf("unable to query prices by symbol (%s): %w", symbol, err)
	}
	return res, nil
}

// GetMostRecentTimestampForSymbol returns nil when nothing is stored for the symbol
func (pg *Postgres) GetMostRecentTimestampForSymbol(ctx context.Context, symbol string) (*time.Time, error) {
	args := pgx.NamedArgs{
		"symbol": symbol,
	}

	var res *time.Time
	if err := pg.db.QueryRow(ctx, q.Get(q.QueryHelper.Select.MostRecentTimestampBySymbol), args).Scan(&res); err != nil {
		return nil, fmt.Errorf("unable to query most recent timestamp for symbol (%s): %w", symbol, err)
	}
	return res, nil
}

func (pg *Postgres) InsertTimeSeriesData(ctx context.Context, data []*m.TimeSeriesData, sourceId int32, tx pgx.Tx) (int64, error) {
	entries := make([][]any, len(data))
	for i, ent := range data {
		entries[i] = []any{
			sourceId, ent.Timestamp, ent.Open, ent.High, ent.Low,
			ent.Close, ent.Volume, ent.AdjustedClose, ent.DividendAmount,
		}
	}

	return pg.BulkInsert(ctx, timeSeriesDataTable, timeSeriesDataColumns, entries, tx)
}
