package models

import "github.com/shopspring/decimal"

const SummaryPrefix = "Cumulative Return of Portfolio: "

// FormatPercent renders a fraction as a percentage with two decimals, 0.1234 -> "12.34%"
func FormatPercent(v float64) string {
	return decimal.NewFromFloat(v).Shift(2).StringFixed(2) + "%"
}

func FormatSummary(final float64) string {
	return SummaryPrefix + FormatPercent(final)
}
