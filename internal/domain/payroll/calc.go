package payroll

import (
	"github.com/shopspring/decimal"

	"campus/internal/domain/components"
)

// Compute derives the monetary totals for one staff member and period. It is
// pure and safe to call repeatedly for previews.
//
// Only selections referencing an active component of the matching type
// contribute; everything else contributes zero. Unselected components are not
// defaulted here: the UI pre-fills defaults as placeholders, and whatever the
// caller submits is what counts. Deductions exceeding gross produce a negative
// net salary on purpose, so a human sees the condition instead of a silently
// clamped number.
func Compute(basicSalary float64, earnings, deductions Selections, active []components.Component) Totals {
	earningIDs := make(map[string]bool, len(active))
	deductionIDs := make(map[string]bool, len(active))
	for _, c := range active {
		if !c.Active {
			continue
		}
		switch c.Type {
		case components.TypeEarning:
			earningIDs[c.ID] = true
		case components.TypeDeduction:
			deductionIDs[c.ID] = true
		}
	}

	earningsBreakdown := Selections{}
	earningsSum := decimal.Zero
	for id, amount := range earnings {
		if !earningIDs[id] {
			continue
		}
		rounded := round2(amount)
		earningsBreakdown[id] = rounded
		earningsSum = earningsSum.Add(decimal.NewFromFloat(rounded))
	}

	deductionsBreakdown := Selections{}
	deductionsSum := decimal.Zero
	for id, amount := range deductions {
		if !deductionIDs[id] {
			continue
		}
		rounded := round2(amount)
		deductionsBreakdown[id] = rounded
		deductionsSum = deductionsSum.Add(decimal.NewFromFloat(rounded))
	}

	basic := decimal.NewFromFloat(round2(basicSalary))
	gross := basic.Add(earningsSum)
	net := gross.Sub(deductionsSum)

	grossValue, _ := gross.Round(2).Float64()
	deductionsValue, _ := deductionsSum.Round(2).Float64()
	netValue, _ := net.Round(2).Float64()
	basicValue, _ := basic.Float64()

	return Totals{
		BasicSalary:     basicValue,
		GrossSalary:     grossValue,
		TotalDeductions: deductionsValue,
		NetSalary:       netValue,
		Earnings:        earningsBreakdown,
		Deductions:      deductionsBreakdown,
	}
}

// ValidatePeriod rejects malformed periods before any storage round trip.
func ValidatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return ErrPeriodOutOfRange
	}
	if year < 2000 || year > 2100 {
		return ErrPeriodOutOfRange
	}
	return nil
}
