package components

import "time"

const (
	TypeEarning   = "earning"
	TypeDeduction = "deduction"

	CalcFixed      = "fixed"
	CalcPercentage = "percentage"
)

// Component is a configurable salary component. Components are never hard
// deleted so that historical payroll breakdowns stay interpretable.
type Component struct {
	ID             string    `json:"id"`
	SchoolID       string    `json:"schoolId"`
	Name           string    `json:"name"`
	NameLocal      string    `json:"nameLocal"`
	Type           string    `json:"type"`
	CalcMode       string    `json:"calcMode"`
	DefaultAmount  float64   `json:"defaultAmount"`
	PercentageRate float64   `json:"percentageRate"`
	Taxable        bool      `json:"taxable"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
}

func ValidType(value string) bool {
	return value == TypeEarning || value == TypeDeduction
}

func ValidCalcMode(value string) bool {
	return value == CalcFixed || value == CalcPercentage
}
