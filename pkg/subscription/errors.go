package subscription

import "errors"

var (
	ErrUnauthenticated      = errors.New("authentication required")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrProfileRead          = errors.New("failed to read account profile")
	ErrProfileWrite         = errors.New("failed to update account profile")
	ErrInvalidWebhook       = errors.New("invalid webhook")

	ErrInvalidCatalog      = errors.New("invalid plan catalog")
	ErrFailedToLoadCatalog = errors.New("failed to load plan catalog")

	ErrLockTimeout     = errors.New("timed out waiting for lock")
	ErrLockUnavailable = errors.New("lock backend unavailable")
)
