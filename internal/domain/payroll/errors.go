package payroll

import "errors"

var (
	ErrPeriodOutOfRange   = errors.New("payroll period out of range")
	ErrInvalidBasicSalary = errors.New("basic salary must be a finite non-negative number")
	ErrMissingBaseSalary  = errors.New("staff member has no base salary on file")
	ErrStaffNotFound      = errors.New("staff member not found")
	ErrUnknownComponent   = errors.New("unknown salary component in selection")
	ErrRecordNotFound     = errors.New("payroll record not found")
	ErrInvalidStatus      = errors.New("unknown payment status")
	ErrInvalidTransition  = errors.New("invalid payment status transition")
	ErrTerminalStatus     = errors.New("payment status is terminal")
)
