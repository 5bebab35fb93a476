package models

import dm "ndx.service/data/models"

// AnalysisRequest is the body of a returns request. Dates are YYYY-MM-DD, empty dates
// take the configured defaults.
type AnalysisRequest struct {
	Sectors []string           `json:"sectors" validate:"omitempty,dive,required"`
	Tickers []string           `json:"tickers" validate:"omitempty,dive,required"`
	Weights map[string]float64 `json:"weights" validate:"omitempty,dive,keys,required,endkeys,gte=0,lte=1"`
	Start   string             `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End     string             `json:"end" validate:"omitempty,datetime=2006-01-02"`
}

type SeriesPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type WarningResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AnalysisResponse struct {
	Id              string                   `json:"id"`
	Start           string                   `json:"start"`
	End             string                   `json:"end"`
	Tickers         []string                 `json:"tickers"`
	Selected        []dm.Constituent         `json:"selected"`
	Weights         map[string]float64       `json:"weights,omitempty"`
	Warnings        []WarningResponse        `json:"warnings,omitempty"`
	Instruments     map[string][]SeriesPoint `json:"instruments"`
	Portfolio       []SeriesPoint            `json:"portfolio"`
	FinalReturn     float64                  `json:"finalReturn"`
	FinalReturnText string                   `json:"finalReturnText"`
	Summary         string                   `json:"summary"`
}

type ConstituentsResponse struct {
	Count        int              `json:"count"`
	Constituents []dm.Constituent `json:"constituents"`
}

type SectorsResponse struct {
	Sectors []string `json:"sectors"`
}

type RefreshResponse struct {
	Count    int    `json:"count"`
	LoadedAt string `json:"loadedAt"`
}

type PingResponse struct {
	Message string `json:"message"`
}
