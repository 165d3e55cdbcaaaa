package rental

import (
	"errors"
	"time"

	"github.com/nerrad567/rentwise-core/internal/auth"
)

// DateLayout is how request dates are stored and exchanged.
const DateLayout = "2006-01-02"

// State of a rent request.
type State int

const (
	StatePending  State = 0
	StateAccepted State = 1
)

func (s State) String() string {
	if s == StateAccepted {
		return "ACCEPTED"
	}
	return "PENDING"
}

// RentedProperty is a rent request or, once accepted, a lease.
type RentedProperty struct {
	ID                   int64
	TenantID             int64
	PropertyID           int64
	StartDate            time.Time
	EndDate              time.Time
	FinalMonthlyRent     float64
	FinalSecurityDeposit float64
	DurationMonths       int
	State                State
	CreatedAt            time.Time
}

// NewRequest is a tenant's proposal.
type NewRequest struct {
	TenantUsername  string
	PropertyID      int64
	StartDate       time.Time
	EndDate         time.Time
	ProposedRent    float64
	ProposedDeposit float64
}

// Caller is the authenticated principal attempting a transition.
type Caller struct {
	Username string
	Role     auth.Role
}

// RentRequestView is a pending request as shown to a property's owner.
type RentRequestView struct {
	RequestID            int64   `json:"requestId"`
	UserID               int64   `json:"userId"`
	PropertyID           int64   `json:"propertyId"`
	PropertyAddress      string  `json:"propertyAddress"`
	UserName             string  `json:"userName"`
	UserEmail            string  `json:"userEmail"`
	StartDate            string  `json:"startDate"`
	EndDate              string  `json:"endDate"`
	FinalMonthlyRent     float64 `json:"finalMonthlyRent"`
	FinalSecurityDeposit float64 `json:"finalSecurityDeposit"`
	Duration             int     `json:"duration"`
}

// RentedView is a request or lease as shown to its tenant.
// Status is false while pending and true once accepted.
type RentedView struct {
	ID                   int64   `json:"id"`
	PropertyID           int64   `json:"propertyId"`
	StartDate            string  `json:"startDate"`
	EndDate              string  `json:"endDate"`
	FinalMonthlyRent     float64 `json:"finalMonthlyRent"`
	FinalSecurityDeposit float64 `json:"finalSecurityDeposit"`
	Duration             int     `json:"duration"`
	Status               bool    `json:"status"`
}

// View converts a record into its tenant-facing form.
func (r *RentedProperty) View() RentedView {
	return RentedView{
		ID:                   r.ID,
		PropertyID:           r.PropertyID,
		StartDate:            r.StartDate.Format(DateLayout),
		EndDate:              r.EndDate.Format(DateLayout),
		FinalMonthlyRent:     r.FinalMonthlyRent,
		FinalSecurityDeposit: r.FinalSecurityDeposit,
		Duration:             r.DurationMonths,
		Status:               r.State == StateAccepted,
	}
}

// Domain errors.
var (
	ErrRequestNotFound = errors.New("rent request not found")
	ErrInvalidDates    = errors.New("end date is before start date")
)

// DurationMonths counts whole calendar months from start to end. A month
// is dropped when end's day-of-month falls before start's.
func DurationMonths(start, end time.Time) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	return months
}

// CheckOwnership allows admins and the property's owner.
func CheckOwnership(caller Caller, ownerUsername string) error {
	if caller.Role == auth.RoleAdmin || (caller.Username != "" && caller.Username == ownerUsername) {
		return nil
	}
	return auth.ErrForbidden
}
