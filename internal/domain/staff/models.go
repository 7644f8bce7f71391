package staff

import "time"

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Member is a staff directory entry. BaseSalary is nil when no salary has been
// configured yet; payroll decides how to treat that.
type Member struct {
	ID          string    `json:"id"`
	SchoolID    string    `json:"schoolId"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	Designation string    `json:"designation"`
	Department  string    `json:"department"`
	BaseSalary  *float64  `json:"baseSalary,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}
