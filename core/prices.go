package core

import (
	"context"
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	av "ndx.service/api/alpha_vantage"
	ex "ndx.service/data/extensions"
	m "ndx.service/data/models"
	r "ndx.service/data/repos"
)

const (
	DefaultFetchConcurrency = 4
	DefaultRefreshInterval  = 24 * time.Hour
)

type PriceSource interface {
	DailyAdjusted(ctx context.Context, ticker string) (*m.TimeSeriesResult, error)
}

// PriceService turns tickers into a PriceMatrix. With a store attached every ticker is
// synced into Postgres first and read back from there, otherwise the source is hit directly.
type PriceService struct {
	source          PriceSource
	store           *r.Postgres
	concurrency     int
	refreshInterval time.Duration
	market          *time.Location

	// one sync per symbol at a time across requests
	syncs singleflight.Group
}

func NewPriceService(source PriceSource, store *r.Postgres, concurrency int, refreshInterval time.Duration) *PriceService {
	if concurrency <= 0 {
		concurrency = DefaultFetchConcurrency
	}
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}

	return &PriceService{
		source:          source,
		store:           store,
		concurrency:     concurrency,
		refreshInterval: refreshInterval,
		market:          marketLocation(),
	}
}

// PriceMatrix fetches adjusted closes for tickers over [start, end]. Every ticker must
// have at least one price in range, otherwise a DataUnavailableError names it.
func (ps *PriceService) PriceMatrix(ctx context.Context, tickers []string, start, end time.Time) (*PriceMatrix, error) {
	if len(tickers) == 0 {
		return nil, &MissingSelectionError{Prompt: PromptSelectTickers}
	}

	start, end = ex.DateOnly(start), ex.DateOnly(end)
	if start.After(end) {
		empty := make(map[string]PriceSeries, len(tickers))
		for _, t := range tickers {
			empty[t] = PriceSeries{}
		}
		return NewPriceMatrix(empty), nil
	}

	results := make([]PriceSeries, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ps.concurrency)
	for i, ticker := range tickers {
		g.Go(func() error {
			s, err := ps.series(gctx, ticker, start, end)
			if err != nil {
				return err
			}
			if len(s) == 0 {
				return &DataUnavailableError{
					Ticker: ticker,
					Reason: fmt.Sprintf("no prices between %s and %s", ex.FmtShort(start), ex.FmtShort(end)),
				}
			}
			results[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	series := make(map[string]PriceSeries, len(tickers))
	for i, t := range tickers {
		series[t] = results[i]
	}

	return NewPriceMatrix(series), nil
}

func (ps *PriceService) series(ctx context.Context, ticker string, start, end time.Time) (PriceSeries, error) {
	if ps.store != nil {
		return ps.storedSeries(ctx, ticker, start, end)
	}

	tsr, err := ps.source.DailyAdjusted(ctx, ticker)
	if err != nil {
		return nil, err
	}

	return clip(tsr.TimeSeries, start, end), nil
}

func (ps *PriceService) storedSeries(ctx context.Context, ticker string, start, end time.Time) (PriceSeries, error) {
	_, err := shared(ctx, &ps.syncs, ticker, func(ctx context.Context) (time.Time, error) {
		return ps.SyncSymbolTimeSeriesData(ctx, ticker)
	})
	if err != nil {
		return nil, err
	}

	rows, err := ps.store.GetTimeSeriesPricesBetween(ctx, ticker, start, end)
	if err != nil {
		return nil, &DataUnavailableError{Ticker: ticker, Reason: "price store read failed", Err: err}
	}

	return storedPrices(rows, ps.market), nil
}

// storedPrices dates stored bars by their calendar day in the market zone, the store
// hands timestamps back in the host's zone
func storedPrices(rows []*m.TimeSeriesPrice, market *time.Location) PriceSeries {
	res := make(PriceSeries, len(rows))
	for i, row := range rows {
		res[i] = PricePoint{Date: ex.DateOnly(row.Timestamp.In(market)), Price: row.AdjustedClose}
	}
	return res
}

func marketLocation() *time.Location {
	loc, err := time.LoadLocation(av.MarketTimeZone)
	if err != nil {
		log.Warn().Err(err).Str("time_zone", av.MarketTimeZone).Msg("market time zone unavailable, dating stored prices in UTC")
		return time.UTC
	}
	return loc
}

// clip keeps the rows dated within [start, end] by calendar day, rows must be ascending
func clip(rows []*m.TimeSeriesData, start, end time.Time) PriceSeries {
	res := make(PriceSeries, 0, len(rows))
	for _, row := range rows {
		d := ex.DateOnly(row.Timestamp)
		if d.Before(start) || d.After(end) {
			continue
		}
		res = append(res, PricePoint{Date: d, Price: adjustedOrClose(row)})
	}
	return res
}

func adjustedOrClose(row *m.TimeSeriesData) null.Float {
	if row.AdjustedClose.Valid {
		return row.AdjustedClose
	}
	return row.Close
}
