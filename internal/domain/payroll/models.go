package payroll

import "time"

// Selections maps a salary component id to the amount entered for it.
type Selections map[string]float64

type Totals struct {
	BasicSalary     float64    `json:"basicSalary"`
	GrossSalary     float64    `json:"grossSalary"`
	TotalDeductions float64    `json:"totalDeductions"`
	NetSalary       float64    `json:"netSalary"`
	Earnings        Selections `json:"earningsBreakdown"`
	Deductions      Selections `json:"deductionsBreakdown"`
}

// Record is the persisted per-staff-per-period payroll artifact. At most one
// exists per (school, staff, month, year); the store enforces that.
type Record struct {
	ID              string     `json:"id"`
	SchoolID        string     `json:"schoolId"`
	StaffID         string     `json:"staffId"`
	Month           int        `json:"month"`
	Year            int        `json:"year"`
	BasicSalary     float64    `json:"basicSalary"`
	Earnings        Selections `json:"earningsBreakdown"`
	Deductions      Selections `json:"deductionsBreakdown"`
	GrossSalary     float64    `json:"grossSalary"`
	TotalDeductions float64    `json:"totalDeductions"`
	NetSalary       float64    `json:"netSalary"`
	PaymentMethod   string     `json:"paymentMethod"`
	PaymentStatus   string     `json:"paymentStatus"`
	PaymentDate     *time.Time `json:"paymentDate,omitempty"`
	Notes           string     `json:"notes"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type UpsertParams struct {
	SchoolID      string
	StaffID       string
	Month         int
	Year          int
	Totals        Totals
	PaymentMethod string
	PaymentStatus string
	Notes         string
}

type SubmitInput struct {
	StaffID       string     `json:"staffId"`
	Month         int        `json:"month"`
	Year          int        `json:"year"`
	BasicSalary   *float64   `json:"basicSalary,omitempty"`
	Earnings      Selections `json:"earningsSelections"`
	Deductions    Selections `json:"deductionsSelections"`
	PaymentMethod string     `json:"paymentMethod"`
	Notes         string     `json:"notes"`
}

type BulkResult struct {
	Created []Record `json:"created"`
	Skipped []string `json:"skipped"`
}

type Summary struct {
	TotalGross      float64        `json:"totalGross"`
	TotalDeductions float64        `json:"totalDeductions"`
	TotalNet        float64        `json:"totalNet"`
	RecordCount     int            `json:"recordCount"`
	CountByStatus   map[string]int `json:"countByStatus"`
}
