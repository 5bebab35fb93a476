package api

import "fmt"

// StatusError is returned for any non 200 upstream response
type StatusError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// DataUnavailableError means a provider could not deliver usable data.
// Ticker is empty when the failure is not specific to one instrument.
type DataUnavailableError struct {
	Ticker string
	Reason string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	msg := "data unavailable"
	if e.Ticker != "" {
		msg += " for " + e.Ticker
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}
