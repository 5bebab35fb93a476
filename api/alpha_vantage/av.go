package alpha_vantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/phuslu/log"
	"golang.org/x/time/rate"

	c "ndx.service/api"
	e "ndx.service/data/extensions"
	m "ndx.service/data/models"
)

// public
const (
	BaseUrlDefault = "https://www.alphavantage.co"
	TimeoutDefault = time.Second * 30

	// MarketTimeZone is the zone daily bar timestamps are midnights of
	MarketTimeZone = "America/New_York"
)

// private
const (
	// default query parameters
	defaultOutputSize = "full"
	defaultDataType   = "json"

	// api request elements
	query    = "query"
	symbol   = "symbol"
	function = "function"

	metaDataKey = "Meta Data"
)

var (
	timeSeriesDateFormats = []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
	}

	ohlcvResultKeys = map[string]string{
		"Open":   ". open",
		"High":   ". high",
		"Low":    ". low",
		"Close":  ". close",
		"Volume": ". volume",
	}

	// bodies carrying any of these keys instead of data are quota or usage failures
	failureKeys = []string{"Error Message", "Note", "Information"}
)

type AlphaVantageClient struct {
	*c.Client
}

func GetClient(baseUrl, apiKey string, timeout time.Duration, limiter *rate.Limiter) (*AlphaVantageClient, error) {
	client, err := c.ClientFactory(baseUrl, apiKey, timeout, limiter)
	if err != nil {
		return nil, fmt.Errorf("error creating alpha vantage client: %w", err)
	}
	return &AlphaVantageClient{client}, nil
}

// DailyAdjusted fetches the full daily adjusted history for ticker
// https://www.alphavantage.co/documentation/#dailyadj
func (avc *AlphaVantageClient) DailyAdjusted(ctx context.Context, ticker string) (*m.TimeSeriesResult, error) {
	return avc.GetTimeSeries(ctx, TimeSeriesDailyAdjusted, ticker)
}

// GetTimeSeries returns the series rows ascending by timestamp
func (avc *AlphaVantageClient) GetTimeSeries(ctx context.Context, ts TimeSeries, ticker string) (*m.TimeSeriesResult, error) {
	if avc == nil {
		panic("alpha vantage client has not been set.")
	}

	params := map[string]string{
		function: ts.Function(),
		symbol:   ticker,
	}
	if ts.IsDaily() {
		params["outputsize"] = defaultOutputSize
	}

	response, err := avc.Client.Connection.Request(ctx, avc.buildRequestPath(params))
	if err != nil {
		return nil, &c.DataUnavailableError{Ticker: ticker, Reason: "price request failed", Err: err}
	}

	defer response.Body.Close()

	raw, err := parseRawJson(response.Body)
	if err != nil {
		return nil, &c.DataUnavailableError{Ticker: ticker, Reason: "unreadable price response", Err: err}
	}

	if reason, failed := apiFailure(raw); failed {
		return nil, &c.DataUnavailableError{Ticker: ticker, Reason: reason}
	}

	metaData, timeZone, err := parseMetaData(raw)
	if err != nil {
		return nil, &c.DataUnavailableError{Ticker: ticker, Reason: "malformed meta data", Err: err}
	}

	timeSeriesData, err := parseTimeSeriesDataResult(raw, ts, timeZone)
	if err != nil {
		return nil, &c.DataUnavailableError{Ticker: ticker, Reason: "malformed time series", Err: err}
	}

	return &m.TimeSeriesResult{
		Metadata:   metaData,
		TimeSeries: timeSeriesData,
	}, nil
}

func (avc *AlphaVantageClient) buildRequestPath(params map[string]string) *url.URL {
	// build our URL
	endpoint := &url.URL{}
	endpoint.Path = "/" + query

	// base parameters
	query := endpoint.Query()
	query.Set("apikey", avc.Client.ApiKey)
	query.Set("datatype", defaultDataType)

	// additional parameters
	for key, value := range params {
		query.Set(key, value)
	}

	endpoint.RawQuery = query.Encode()

	return endpoint
}

func parseRawJson(reader io.Reader) (raw map[string]json.RawMessage, err error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	// converting to a <string, raw message> map
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}

	return
}

func apiFailure(raw map[string]json.RawMessage) (string, bool) {
	if _, ok := raw[metaDataKey]; ok {
		return "", false
	}

	for _, key := range failureKeys {
		if msg, ok := raw[key]; ok {
			var s string
			if err := json.Unmarshal(msg, &s); err != nil {
				s = string(msg)
			}
			return s, true
		}
	}

	return "response carried no meta data", true
}

func parseMetaData(raw map[string]json.RawMessage) (*m.TimeSeriesMetadata, *time.Location, error) {
	var metadataElements map[string]string
	if err := json.Unmarshal(raw[metaDataKey], &metadataElements); err != nil {
		return nil, nil, fmt.Errorf("error unmarshaling meta data: %w", err)
	}

	metaDataKeys := slices.Collect(maps.Keys(metadataElements))

	// parse symbol
	sf := func(s string) bool { return strings.HasSuffix(s, ". Symbol") }
	symbolKey, err := e.FilterSingle(metaDataKeys, sf)
	if err != nil {
		return nil, nil, fmt.Errorf("error extracting symbol for meta data")
	}

	// parse time zone
	tzf := func(s string) bool { return strings.HasSuffix(s, ". Time Zone") }
	timeZoneKey, err := e.FilterSingle(metaDataKeys, tzf)
	if err != nil {
		return nil, nil, fmt.Errorf("error extracting time zone for meta data")
	}

	timeZone, err := getTimeZone(metadataElements[timeZoneKey])
	if err != nil {
		return nil, nil, fmt.Errorf("error converting time zone key %s, to time.Location: %w", metadataElements[timeZoneKey], err)
	}

	// parse last refreshed
	lrf := func(s string) bool { return strings.HasSuffix(s, ". Last Refreshed") }
	lastRefreshedKey, err := e.FilterSingle(metaDataKeys, lrf)
	if err != nil {
		return nil, nil, fmt.Errorf("error extracting last refreshed date")
	}

	lastRefreshed, err := parseDate(metadataElements[lastRefreshedKey], timeZone)
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing last refreshed date")
	}

	res := m.TimeSeriesMetadata{
		Symbol:        metadataElements[symbolKey],
		LastRefreshed: lastRefreshed,
		TimeZone:      metadataElements[timeZoneKey],
	}

	return &res, timeZone, nil
}

func parseTimeSeriesDataResult(raw map[string]json.RawMessage, ts TimeSeries, location *time.Location) ([]*m.TimeSeriesData, error) {
	var timeSeriesElements map[string]map[string]string
	if err := json.Unmarshal(raw[ts.TimeSeriesKey()], &timeSeriesElements); err != nil {
		return nil, fmt.Errorf("error unmarshaling time series %q: %w", ts.TimeSeriesKey(), err)
	}

	if len(timeSeriesElements) == 0 {
		return nil, fmt.Errorf("time series %q is empty", ts.TimeSeriesKey())
	}

	// populate the lookups
	var firstValue map[string]string
	for _, v := range timeSeriesElements {
		firstValue = v
		break
	}
	valueKeys := slices.Collect(maps.Keys(firstValue))

	ohlcvLookup, err := getLookupKey(ohlcvResultKeys, firstValue)
	if err != nil {
		return nil, err
	}

	var adjustedCloseKey, dividendAmountKey string
	if ts.IsAdjusted() {
		// parse adjusted close key in raw json lookup
		acf := func(s string) bool { return strings.HasSuffix(s, ". adjusted close") }
		if adjustedCloseKey, err = e.FilterSingle(valueKeys, acf); err != nil {
			return nil, fmt.Errorf("error extracting adjusted close key for time series")
		}

		// get dividend amount key in raw json lookup
		daf := func(s string) bool { return strings.HasSuffix(s, ". dividend amount") }
		if dividendAmountKey, err = e.FilterSingle(valueKeys, daf); err != nil {
			return nil, fmt.Errorf("error extracting dividend amount key for time series")
		}
	}

	timeSeries := make([]*m.TimeSeriesData, 0, len(timeSeriesElements))
	for timeSeriesKey, timeSeriesValue := range timeSeriesElements {
		// get timestamp
		timestamp, err := parseDate(timeSeriesKey, location)
		if err != nil {
			return nil, fmt.Errorf("error converting TIMESTAMP from string to time.Time: %w", err)
		}

		// get OHLCV
		ohlcv, err := parseOHLCV(timeSeriesValue, ohlcvLookup)
		if err != nil {
			return nil, fmt.Errorf("error parsing OHLCV: %w", err)
		}

		row := &m.TimeSeriesData{
			Timestamp:       timestamp,
			TimeSeriesOHLCV: ohlcv,
			AdjustedClose:   ohlcv.Close,
		}
		if ts.IsAdjusted() {
			row.AdjustedClose = parseFloat(timeSeriesValue[adjustedCloseKey])
			row.DividendAmount = parseFloat(timeSeriesValue[dividendAmountKey])
		}

		timeSeries = append(timeSeries, row)
	}

	slices.SortFunc(timeSeries, func(a, b *m.TimeSeriesData) int { return a.Timestamp.Compare(b.Timestamp) })

	return timeSeries, nil
}

func parseOHLCV(value, lookup map[string]string) (res m.TimeSeriesOHLCV, err error) {
	v := reflect.ValueOf(&res).Elem()
	for jsonKey, structAttribute := range lookup {
		field := v.FieldByName(structAttribute)
		if !field.IsValid() {
			return res, fmt.Errorf("field %s does not exist", structAttribute)
		}
		if !field.CanSet() {
			return res, fmt.Errorf("field %s cannot be set", structAttribute)
		}

		pv := parseFloat(value[jsonKey])
		field.Set(reflect.ValueOf(pv))
	}
	return
}

func getLookupKey(expectedKeys, values map[string]string) (map[string]string, error) {
	res := make(map[string]string)
	responseValueHeaders := slices.Collect(maps.Keys(values))

	for key, value := range expectedKeys {
		f := func(s string) bool {
			return strings.HasSuffix(strings.ToLower(s), strings.ToLower(value))
		}
		if jsonKey, err := e.FilterSingle(responseValueHeaders, f); err == nil {
			res[jsonKey] = key
		}
	}

	if len(res) == 0 {
		return nil, fmt.Errorf("error generating key value map from av response object. Available headers: %v", responseValueHeaders)
	}

	return res, nil
}

func getTimeZone(location string) (*time.Location, error) {
	var loc string
	switch strings.ToUpper(location) {
	case "US/EASTERN":
		loc = MarketTimeZone
	default:
		log.Warn().Str("time_zone", location).Msg("time zone not recognized, defaulting to UTC")
		return time.UTC, nil
	}

	res, err := time.LoadLocation(loc)
	if err != nil {
		return nil, fmt.Errorf("error parsing time zone %s in time.LoadLocation", loc)
	}

	return res, nil
}

func parseDate(dateString string, location *time.Location) (time.Time, error) {
	for _, format := range timeSeriesDateFormats {
		t, err := time.ParseInLocation(format, dateString, location)
		if err != nil {
			continue
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("error converting date %s to time.Time", dateString)
}

func parseFloat(val string) null.Float {
	if val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return null.FloatFrom(f)
		}
	}
	return null.Float{}
}
