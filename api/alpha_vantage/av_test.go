package alpha_vantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	c "ndx.service/api"
	ex "ndx.service/data/extensions"
)

func Test_DoesNullFloatWorkHowIThink(t *testing.T) {
	var nullFloat null.Float

	if nullFloat.Valid {
		t.Fatalf("expected .valid to be false")
	}

	validFloat := null.FloatFrom(64)
	if !validFloat.Valid {
		t.Fatalf("value is set, expected .valid to be true now")
	}

	ex.AssertAreEqual(t, "value", 64.0, validFloat.Float64)
	ex.AssertAreEqual(t, "empty string", false, parseFloat("").Valid)
	ex.AssertAreEqual(t, "garbage", false, parseFloat("n/a").Valid)
}

func Test_TimeSeries_Keys(t *testing.T) {
	ex.AssertAreEqual(t, "daily adjusted function", "TIME_SERIES_DAILY_ADJUSTED", TimeSeriesDailyAdjusted.Function())
	ex.AssertAreEqual(t, "daily adjusted key", "Time Series (Daily)", TimeSeriesDailyAdjusted.TimeSeriesKey())
	ex.AssertAreEqual(t, "daily key", "Time Series (Daily)", TimeSeriesDaily.TimeSeriesKey())
	ex.AssertAreEqual(t, "adjusted", true, TimeSeriesDailyAdjusted.IsAdjusted())
	ex.AssertAreEqual(t, "not adjusted", false, TimeSeriesDaily.IsAdjusted())
	ex.AssertAreEqual(t, "daily", true, TimeSeriesDaily.IsDaily())
	ex.AssertAreEqual(t, "unknown is not daily", false, TimeSeries(9).IsDaily())
	ex.AssertAreEqual(t, "unknown function", "", TimeSeries(9).Function())
}

func Test_AlphaVantage_DailyAdjusted(t *testing.T) {
	fixture, err := os.ReadFile("testdata/daily_adjusted.json")
	require.NoError(t, err)

	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"path":       r.URL.Path,
			"function":   r.URL.Query().Get("function"),
			"symbol":     r.URL.Query().Get("symbol"),
			"outputsize": r.URL.Query().Get("outputsize"),
			"apikey":     r.URL.Query().Get("apikey"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(fixture)
	}))
	defer srv.Close()

	client, err := GetClient(srv.URL, "av-test-api-key", time.Second, nil)
	require.NoError(t, err)

	res, err := client.DailyAdjusted(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "/query", gotQuery["path"])
	assert.Equal(t, "TIME_SERIES_DAILY_ADJUSTED", gotQuery["function"])
	assert.Equal(t, "AAPL", gotQuery["symbol"])
	assert.Equal(t, "full", gotQuery["outputsize"])
	assert.Equal(t, "av-test-api-key", gotQuery["apikey"])

	// meta data
	assert.Equal(t, "AAPL", res.Metadata.Symbol)
	assert.Equal(t, "US/Eastern", res.Metadata.TimeZone)
	assert.Equal(t, "2024-01-04", ex.FmtShort(res.Metadata.LastRefreshed))
	assert.Equal(t, "America/New_York", res.Metadata.LastRefreshed.Location().String())

	// rows come back ascending
	require.Len(t, res.TimeSeries, 3)
	assert.Equal(t, "2024-01-02", ex.FmtShort(res.TimeSeries[0].Timestamp))
	assert.Equal(t, "2024-01-03", ex.FmtShort(res.TimeSeries[1].Timestamp))
	assert.Equal(t, "2024-01-04", ex.FmtShort(res.TimeSeries[2].Timestamp))

	first := res.TimeSeries[0]
	assert.Equal(t, null.FloatFrom(200.0), first.AdjustedClose)
	assert.Equal(t, null.FloatFrom(187.15), first.Open)
	assert.Equal(t, null.FloatFrom(185.64), first.Close)
	assert.Equal(t, null.FloatFrom(82488674), first.Volume)

	// a blank adjusted close stays invalid rather than becoming zero
	assert.False(t, res.TimeSeries[1].AdjustedClose.Valid)
	assert.Equal(t, null.FloatFrom(0.24), res.TimeSeries[1].DividendAmount)
}

func Test_AlphaVantage_FailureBodiesAreDataUnavailable(t *testing.T) {
	bodies := map[string]string{
		"note":          `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`,
		"information":   `{"Information": "The **demo** API key is for demo purposes only."}`,
		"error message": `{"Error Message": "Invalid API call."}`,
		"empty":         `{}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			client, err := GetClient(srv.URL, "key", time.Second, nil)
			require.NoError(t, err)

			_, err = client.DailyAdjusted(context.Background(), "ZZZZ")

			var due *c.DataUnavailableError
			require.True(t, errors.As(err, &due), "expected DataUnavailableError, got %v", err)
			assert.Equal(t, "ZZZZ", due.Ticker)
			assert.NotEmpty(t, due.Reason)
		})
	}
}

func Test_AlphaVantage_UpstreamStatusIsDataUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := GetClient(srv.URL, "key", time.Second, nil)
	require.NoError(t, err)

	_, err = client.DailyAdjusted(context.Background(), "AAPL")

	var due *c.DataUnavailableError
	require.True(t, errors.As(err, &due))

	var se *c.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}

func Test_ParseDate(t *testing.T) {
	d, err := parseDate("2024-01-02", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("2024-01-02 16:00:00", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 16, d.Hour())

	_, err = parseDate("01/02/2024", time.UTC)
	assert.Error(t, err)
}
