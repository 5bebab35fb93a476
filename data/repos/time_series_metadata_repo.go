package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	m "ndx.service/data/models"
	q "ndx.service/data/queries"
)

// GetMetaDataBySymbol returns nil without error when the symbol is unknown
func (pg *Postgres) GetMetaDataBySymbol(ctx context.Context, symbol string) (*m.TimeSeriesMetadata, error) {
	args := pgx.NamedArgs{
		"symbol": symbol,
	}

	res, err := Query[m.TimeSeriesMetadata](ctx, pg, q.Get(q.QueryHelper.Select.MetaDataBySymbol), args)
	if err != nil {
		return nil, fmt.Errorf("unable to query metadata by symbol (%s): %w", symbol, err)
	}

	if len(res) == 0 {
		return nil, nil
	}

	return res[0], nil
}

func (pg *Postgres) InsertNewMetaData(ctx context.Context, metadata *m.TimeSeriesMetadata, tx pgx.Tx) error {
	args := pgx.NamedArgs{
		"symbol":         metadata.Symbol,
		"last_refreshed": metadata.LastRefreshed,
	}

	if err := pg.on(tx).QueryRow(ctx, q.Get(q.QueryHelper.Insert.Metadata), args).Scan(&metadata.Id); err != nil {
		return fmt.Errorf("error inserting new metadata: %w", err)
	}

	return nil
}

func (pg *Postgres) UpdateLastRefreshedDate(ctx context.Context, symbol string, lastRefreshed time.Time, tx pgx.Tx) error {
	args := pgx.NamedArgs{
		"last_refreshed": lastRefreshed,
		"symbol":         symbol,
	}

	if _, err := pg.on(tx).Exec(ctx, q.Get(q.QueryHelper.Update.LastRefreshedDate), args); err != nil {
		return fmt.Errorf("error updating last refreshed date for %s: %w", symbol, err)
	}
	return nil
}
