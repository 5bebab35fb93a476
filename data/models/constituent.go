package models

// Constituent is one row of the index membership table
type Constituent struct {
	Ticker      string `json:"ticker"`
	Company     string `json:"company,omitempty"`
	Sector      string `json:"sector"`
	SubIndustry string `json:"subIndustry,omitempty"`
}
