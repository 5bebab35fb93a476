package wikipedia

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	c "ndx.service/api"
)

func TestParseConstituentsPicksTableWithTickerAndSector(t *testing.T) {
	f, err := os.Open("testdata/nasdaq100.html")
	require.NoError(t, err)
	defer f.Close()

	res, err := ParseConstituents(f)
	require.NoError(t, err)

	require.Len(t, res, 4)

	assert.Equal(t, "ADBE", res[0].Ticker)
	assert.Equal(t, "Adobe Inc.", res[0].Company)
	assert.Equal(t, "Information Technology", res[0].Sector)
	assert.Equal(t, "Application Software", res[0].SubIndustry)

	// footnotes stripped and whitespace collapsed
	assert.Equal(t, "Amazon", res[1].Company)
	assert.Equal(t, "Consumer Discretionary", res[1].Sector)

	// duplicate listing dropped
	assert.Equal(t, "AAPL", res[2].Ticker)
	assert.Equal(t, "Technology Hardware, Storage & Peripherals", res[2].SubIndustry)

	// tickers are upper cased
	assert.Equal(t, "COST", res[3].Ticker)
}

func TestParseConstituentsAcceptsSymbolHeader(t *testing.T) {
	html := `<table>
		<tr><th>Symbol</th><th>Security</th><th>GICS Sector</th></tr>
		<tr><td>MSFT</td><td>Microsoft</td><td>Information Technology</td></tr>
	</table>`

	res, err := ParseConstituents(strings.NewReader(html))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "MSFT", res[0].Ticker)
	assert.Equal(t, "Microsoft", res[0].Company)
	assert.Empty(t, res[0].SubIndustry)
}

func TestParseConstituentsWithoutMatchingTable(t *testing.T) {
	html := `<table><tr><th>Ticker</th><th>Weight</th></tr><tr><td>AAPL</td><td>9%</td></tr></table>`

	_, err := ParseConstituents(strings.NewReader(html))

	var due *c.DataUnavailableError
	require.True(t, errors.As(err, &due))
	assert.Contains(t, due.Reason, "GICS sector")
}

func TestParseConstituentsWithEmptyTable(t *testing.T) {
	html := `<table><tr><th>Ticker</th><th>GICS Sector</th></tr></table>`

	_, err := ParseConstituents(strings.NewReader(html))

	var due *c.DataUnavailableError
	require.True(t, errors.As(err, &due))
}

func TestClientConstituentsRequestsConfiguredPage(t *testing.T) {
	page, err := os.ReadFile("testdata/nasdaq100.html")
	require.NoError(t, err)

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write(page)
	}))
	defer srv.Close()

	client, err := GetClient(srv.URL+"/wiki/Nasdaq-100", time.Second)
	require.NoError(t, err)

	res, err := client.Constituents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/wiki/Nasdaq-100", gotPath)
	assert.Len(t, res, 4)
}

func TestClientConstituentsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := GetClient(srv.URL+"/wiki/Missing", time.Second)
	require.NoError(t, err)

	_, err = client.Constituents(context.Background())

	var due *c.DataUnavailableError
	require.True(t, errors.As(err, &due))
}
