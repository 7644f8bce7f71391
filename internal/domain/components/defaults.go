package components

import "github.com/shopspring/decimal"

// ResolveDefault returns the amount the UI pre-fills for a component: the
// configured default for fixed components, or the percentage rate applied
// against the basic salary. Always rounded to two decimals.
func ResolveDefault(c Component, basicSalary float64) float64 {
	if c.CalcMode == CalcPercentage {
		amount := decimal.NewFromFloat(basicSalary).
			Mul(decimal.NewFromFloat(c.PercentageRate)).
			Div(decimal.NewFromInt(100)).
			Round(2)
		value, _ := amount.Float64()
		return value
	}
	value, _ := decimal.NewFromFloat(c.DefaultAmount).Round(2).Float64()
	return value
}
