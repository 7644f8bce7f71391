package payroll

// ValidStatus reports whether value is one of the known payment statuses.
func ValidStatus(value string) bool {
	switch value {
	case StatusPending, StatusProcessed, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses cannot be left again; correcting a mistaken paid or
// cancelled marking is an administrative problem, not a transition.
func Terminal(status string) bool {
	return status == StatusPaid || status == StatusCancelled
}

// CanTransition implements the payment lifecycle:
// pending -> processed -> paid, with cancellation allowed from any non-terminal
// state. Re-applying the current status is allowed and treated as a no-op by
// the store.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	if Terminal(from) {
		return false
	}
	switch from {
	case StatusPending:
		return to == StatusProcessed || to == StatusPaid || to == StatusCancelled
	case StatusProcessed:
		return to == StatusPaid || to == StatusCancelled
	}
	return false
}
