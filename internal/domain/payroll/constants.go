package payroll

const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"

	PaymentMethodBank = "bank_transfer"
	PaymentMethodCash = "cash"

	// Stamped on records generated for staff without a configured base salary
	// so the zero amounts are visible as a data gap, not a decision.
	NoteMissingBaseSalary = "base salary not configured at time of generation"
)
