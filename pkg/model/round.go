package model

import "github.com/shopspring/decimal"

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Round3 is a shortcut for the precision used for deltas and metrics
func Round3(v float64) float64 {
	return Round(v, 3)
}
