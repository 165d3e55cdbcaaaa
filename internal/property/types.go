package property

import (
	"errors"
	"time"
)

// Property is a rentable listing owned by a user.
type Property struct {
	ID              int64     `json:"id"`
	OwnerID         int64     `json:"ownerId"`
	OwnerUsername   string    `json:"ownerUsername"`
	Address         string    `json:"address"`
	MonthlyRent     float64   `json:"monthlyRent"`
	SecurityDeposit float64   `json:"securityDeposit"`
	IsVerified      bool      `json:"isVerified"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Domain errors.
var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrNotWishlisted    = errors.New("property is not in the wishlist")
)
