package core

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"

	ex "ndx.service/data/extensions"
	m "ndx.service/data/models"
)

// SyncSymbolTimeSeriesData brings the stored history of symbol up to date. A symbol synced
// within the refresh interval is left alone. Only rows newer than the newest stored
// timestamp are inserted, together with the refresh mark, in one transaction.
// Returns when the symbol was last synced.
func (ps *PriceService) SyncSymbolTimeSeriesData(ctx context.Context, symbol string) (time.Time, error) {
	if ps.store == nil {
		return time.Time{}, fmt.Errorf("no price store configured, cannot sync %s", symbol)
	}

	md, err := ps.store.GetMetaDataBySymbol(ctx, symbol)
	if err != nil {
		return time.Time{}, fmt.Errorf("error determining if meta data exists in sync data: %w", err)
	}

	if md == nil {
		log.Info().Str("symbol", symbol).Msg("adding new symbol to price store")
		md = &m.TimeSeriesMetadata{
			Symbol:        symbol,
			LastRefreshed: time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC),
		}

		if err := ps.store.InsertNewMetaData(ctx, md, nil); err != nil {
			return time.Time{}, fmt.Errorf("error adding %s to db: %w", symbol, err)
		}
	}

	if md.LastRefreshed.After(time.Now().Add(-ps.refreshInterval)) {
		log.Debug().Str("symbol", symbol).Str("last_refreshed", ex.FmtLong(md.LastRefreshed)).Msg("symbol is fresh, skipping sync")
		return md.LastRefreshed, nil
	}

	mrd, err := ps.store.GetMostRecentTimestampForSymbol(ctx, symbol)
	if err != nil {
		return time.Time{}, fmt.Errorf("error getting most recent time series date for symbol %s: %w", symbol, err)
	}

	tsr, err := ps.source.DailyAdjusted(ctx, symbol)
	if err != nil {
		return time.Time{}, err
	}

	toInsert := ex.FilterMultiplePtr(tsr.TimeSeries, func(t *m.TimeSeriesData) bool {
		return mrd == nil || t.Timestamp.After(*mrd)
	})

	tx, err := ps.store.GetTransaction(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op once committed

	var ra int64
	if len(toInsert) > 0 {
		ra, err = ps.store.InsertTimeSeriesData(ctx, toInsert, md.Id, tx)
		if err != nil {
			return time.Time{}, fmt.Errorf("error inserting time series data: %w", err)
		}
	}

	syncedAt := time.Now().UTC()
	if err := ps.store.UpdateLastRefreshedDate(ctx, symbol, syncedAt, tx); err != nil {
		return time.Time{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, fmt.Errorf("error committing transaction to sync symbol %s: %w", symbol, err)
	}

	log.Info().Str("symbol", symbol).Int("received", len(tsr.TimeSeries)).Int64("inserted", ra).Msg("synced time series")
	return syncedAt, nil
}
