package core

import (
	"fmt"

	"ndx.service/api"
)

// DataUnavailableError is raised by the providers, aliased so callers only need core
type DataUnavailableError = api.DataUnavailableError

const (
	PromptSelectSector  = "select sector to begin."
	PromptSelectTickers = "select ticker(s) to proceed."
)

// MissingSelectionError short circuits a request that has nothing to compute.
// Prompt is user facing.
type MissingSelectionError struct {
	Prompt string
}

func (e *MissingSelectionError) Error() string {
	return e.Prompt
}

// InvalidRequestError wraps malformed input such as unparseable dates
type InvalidRequestError struct {
	Err error
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Err.Error()
}

func (e *InvalidRequestError) Unwrap() error {
	return e.Err
}

// Warning is a non fatal condition returned alongside results
type Warning interface {
	error
	Code() string
}

// WeightImbalanceWarning reports that the supplied weights did not sum to 1
// and were rescaled, or replaced with equal weights when they summed to 0
type WeightImbalanceWarning struct {
	Sum           float64
	EqualWeighted bool
}

func (w *WeightImbalanceWarning) Error() string {
	if w.EqualWeighted {
		return "weights sum to 0, assigned equal weights"
	}
	return fmt.Sprintf("weights sum to %.2f instead of 1.00, rescaled proportionally", w.Sum)
}

func (w *WeightImbalanceWarning) Code() string {
	return "weight_imbalance"
}
