package profile

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Profile is the per-user billing record. Empty strings mean the value was
// never set.
type Profile struct {
	UserID                uuid.UUID
	Email                 string
	BillingCustomerID     string
	SubscriptionID        string
	SubscriptionStatus    string
	SubscriptionPlan      string
	SubscriptionPeriodEnd *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Update is a partial change set: nil fields are left untouched.
type Update struct {
	Email                 *string
	BillingCustomerID     *string
	SubscriptionID        *string
	SubscriptionStatus    *string
	SubscriptionPlan      *string
	SubscriptionPeriodEnd *time.Time
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.Email == nil && u.BillingCustomerID == nil && u.SubscriptionID == nil &&
		u.SubscriptionStatus == nil && u.SubscriptionPlan == nil && u.SubscriptionPeriodEnd == nil
}

// Store persists account profiles.
type Store interface {
	// GetProfile returns ErrProfileNotFound when the user has no row yet.
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	// GetProfileByCustomerID looks a profile up by its billing customer id.
	GetProfileByCustomerID(ctx context.Context, customerID string) (*Profile, error)
	// UpdateProfile applies the update, creating the row if it does not exist.
	UpdateProfile(ctx context.Context, userID uuid.UUID, upd Update) error
}
