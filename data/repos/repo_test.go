package repos

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	ex "ndx.service/data/extensions"
	m "ndx.service/data/models"
)

func Test_Base_CanGetConnectionAndPing(t *testing.T) {
	ctx := context.Background()
	pg := getConnection(t, ctx)

	if err := pg.Ping(ctx); err != nil {
		t.Errorf("error pinging postgres database: %s", err)
	}
}

func Test_TimeSeriesMetaDataRepo_CanInsertAndGet(t *testing.T) {
	symbol := "_TEST"

	testMetaData := m.TimeSeriesMetadata{
		Symbol:        symbol,
		LastRefreshed: time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC),
	}

	ctx := context.Background()
	pg := getConnection(t, ctx)

	exists, err := pg.GetMetaDataBySymbol(ctx, symbol)
	if err != nil {
		t.Fatalf("error determining if meta symbol exists for %s (should be false): %s", symbol, err)
	}
	if exists != nil {
		t.Fatalf("symbol %s has not been inserted yet, so exists should be false", symbol)
	}

	if err := pg.InsertNewMetaData(ctx, &testMetaData, nil); err != nil {
		t.Fatalf("error inserting new meta data: %s", err)
	}
	if testMetaData.Id == 0 {
		t.Fatalf("id for test meta data failed to set properly")
	}

	defer pg.deleteTestTimeSeriesData(t, ctx, testMetaData.Id)

	res, err := pg.GetMetaDataBySymbol(ctx, symbol)
	if err != nil {
		t.Fatalf("error getting meta data by symbol, %s", err)
	}
	ex.AssertAreEqual(t, "id", testMetaData.Id, res.Id)
	ex.AssertAreEqual(t, "symbol", testMetaData.Symbol, res.Symbol)
	if !testMetaData.LastRefreshed.Equal(res.LastRefreshed) {
		t.Fatalf("last refreshed time did not match, inserted %s, got back %s", ex.FmtLong(testMetaData.LastRefreshed), ex.FmtLong(res.LastRefreshed))
	}

	newer := testMetaData.LastRefreshed.AddDate(0, 0, 3)
	if err := pg.UpdateLastRefreshedDate(ctx, symbol, newer, nil); err != nil {
		t.Fatalf("error updating last refreshed date: %s", err)
	}

	res, err = pg.GetMetaDataBySymbol(ctx, symbol)
	if err != nil {
		t.Fatalf("error getting meta data by symbol, %s", err)
	}
	if !newer.Equal(res.LastRefreshed) {
		t.Fatalf("last refreshed time was not updated, expected %s, got %s", ex.FmtLong(newer), ex.FmtLong(res.LastRefreshed))
	}
}

func Test_TimeSeriesDataRepo_CanInsertAndGet(t *testing.T) {
	symbol := "_TEST2"

	testMetaData := m.TimeSeriesMetadata{
		Symbol:        symbol,
		LastRefreshed: time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC),
	}

	ctx := context.Background()
	pg := getConnection(t, ctx)

	if err := pg.InsertNewMetaData(ctx, &testMetaData, nil); err != nil {
		t.Fatalf("error inserting new meta data: %s", err)
	}

	defer pg.deleteTestTimeSeriesData(t, ctx, testMetaData.Id)

	mrd, err := pg.GetMostRecentTimestampForSymbol(ctx, symbol)
	if err != nil {
		t.Fatalf("error getting most recent timestamp: %s", err)
	}
	ex.AssertNillability(t, "most recent timestamp before insert", true, mrd)

	testTimeSeriesData := []*m.TimeSeriesData{
		{
			Timestamp: time.Date(2025, time.October, 30, 0, 0, 0, 0, time.UTC),
			TimeSeriesOHLCV: m.TimeSeriesOHLCV{
				Open:   null.FloatFrom(100),
				High:   null.FloatFrom(105),
				Low:    null.FloatFrom(95),
				Close:  null.FloatFrom(102),
				Volume: null.FloatFrom(1000),
			},
			AdjustedClose:  null.FloatFrom(50),
			DividendAmount: null.FloatFrom(1),
		},
		{
			Timestamp: time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC),
			TimeSeriesOHLCV: m.TimeSeriesOHLCV{
				Open:   null.FloatFrom(102),
				High:   null.FloatFrom(107),
				Low:    null.FloatFrom(97),
				Close:  null.FloatFrom(104),
				Volume: null.FloatFrom(2000),
			},
			AdjustedClose: null.FloatFrom(51),
		},
	}

	tx, err := pg.GetTransaction(ctx)
	if err != nil {
		t.Fatalf("error beginning transaction: %s", err)
	}
	ct, err := pg.InsertTimeSeriesData(ctx, testTimeSeriesData, testMetaData.Id, tx)
	if err != nil {
		_ = tx.Rollback(ctx)
		t.Fatalf("error inserting time series data: %s", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("error committing transaction: %s", err)
	}
	ex.AssertAreEqual(t, "rows inserted", int64(len(testTimeSeriesData)), ct)

	all, err := pg.GetTimeSeriesPricesBetween(ctx, symbol, testTimeSeriesData[0].Timestamp, testTimeSeriesData[1].Timestamp)
	if err != nil {
		t.Fatalf("error getting prices between: %s", err)
	}
	ex.AssertAreEqual(t, "row count", 2, len(all))
	comparePrice(t, testTimeSeriesData[0], all[0])
	comparePrice(t, testTimeSeriesData[1], all[1])

	prices, err := pg.GetTimeSeriesPricesBetween(ctx, symbol, testTimeSeriesData[1].Timestamp, testTimeSeriesData[1].Timestamp)
	if err != nil {
		t.Fatalf("error getting prices between: %s", err)
	}
	ex.AssertAreEqual(t, "prices in range", 1, len(prices))
	comparePrice(t, testTimeSeriesData[1], prices[0])

	mrd, err = pg.GetMostRecentTimestampForSymbol(ctx, symbol)
	if err != nil {
		t.Fatalf("error getting most recent timestamp: %s", err)
	}
	ex.AssertNillability(t, "most recent timestamp after insert", false, mrd)
	if !mrd.Equal(testTimeSeriesData[1].Timestamp) {
		t.Fatalf("most recent timestamp mismatch, expected %s, got %s", ex.FmtLong(testTimeSeriesData[1].Timestamp), ex.FmtLong(*mrd))
	}
}

func comparePrice(t *testing.T, expected *m.TimeSeriesData, actual *m.TimeSeriesPrice) {
	t.Helper()
	if !expected.Timestamp.Equal(actual.Timestamp) {
		t.Fatalf("value mismatch for timestamp, expected %v, got %v", ex.FmtLong(expected.Timestamp), ex.FmtLong(actual.Timestamp))
	}
	ex.AssertAreEqual(t, "adjusted close", expected.AdjustedClose, actual.AdjustedClose)
}

// getConnection skips the calling test when no database is configured
func getConnection(t *testing.T, ctx context.Context) *Postgres {
	t.Helper()
	_ = godotenv.Load("../../.env")

	connectionString := os.Getenv("DATABASE_URL")
	if connectionString == "" {
		t.Skip("DATABASE_URL not set, skipping postgres repo test")
	}

	res, err := GetPostgresConnection(ctx, connectionString)
	if err != nil {
		t.Fatalf("error getting postgres connection: %s", err)
	}

	t.Cleanup(res.Close)

	if err := res.Migrate(ctx); err != nil {
		t.Fatalf("error migrating: %s", err)
	}

	return res
}

func (pg *Postgres) deleteTestTimeSeriesData(t *testing.T, ctx context.Context, id int32) {
	t.Helper()

	args := pgx.NamedArgs{"source_id": id}
	if _, err := pg.db.Exec(ctx, "DELETE FROM av_time_series_data WHERE source_id = @source_id", args); err != nil {
		t.Errorf("cleanup av_time_series_data failed: %s", err)
	}

	if _, err := pg.db.Exec(ctx, "DELETE FROM av_time_series_metadata WHERE id = @source_id", args); err != nil {
		t.Errorf("cleanup av_time_series_metadata failed: %s", err)
	}
}
