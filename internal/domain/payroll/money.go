package payroll

import "github.com/shopspring/decimal"

// round2 rounds a monetary amount to two decimals. Decimal arithmetic avoids
// the float drift that shows up when summing many component amounts.
func round2(value float64) float64 {
	rounded, _ := decimal.NewFromFloat(value).Round(2).Float64()
	return rounded
}

func sum2(values ...float64) float64 {
	total := decimal.Zero
	for _, value := range values {
		total = total.Add(decimal.NewFromFloat(value))
	}
	result, _ := total.Round(2).Float64()
	return result
}
