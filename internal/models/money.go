package models

import "github.com/shopspring/decimal"

func init() {
	// Prices and costs travel as JSON numbers, like every other numeric field.
	decimal.MarshalJSONWithoutQuotes = true
}

// Money parses a float coming from imports or request bodies into a decimal
// rounded to cents.
func Money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
