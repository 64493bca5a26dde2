package billing

import (
	"context"
	"time"
)

// Provider is the narrow contract the subscription service needs from a
// payment provider. Implementations use the official SDKs, return every
// failure joined with ErrProvider and never retry.
type Provider interface {
	// Name identifies the provider in logs ("stripe", "paddle").
	Name() string

	// CreateCustomer registers a billing customer and returns its id.
	CreateCustomer(ctx context.Context, req CustomerRequest) (string, error)

	// CreateCheckoutSession starts a hosted checkout for an existing customer.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// UpdateSubscription changes a subscription and reports its resulting state.
	UpdateSubscription(ctx context.Context, subscriptionID string, upd SubscriptionUpdate) (*SubscriptionState, error)

	// ParseWebhook verifies the signature and normalises the event.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}

// CustomerRequest describes a customer to create. IdempotencyKey is
// forwarded to providers that support it.
type CustomerRequest struct {
	Email          string
	Metadata       map[string]string
	IdempotencyKey string
}

// CheckoutMode is the kind of hosted checkout.
type CheckoutMode string

const (
	ModeSubscription CheckoutMode = "subscription"
	ModePayment      CheckoutMode = "payment"
)

// CheckoutRequest contains data needed to create a checkout session.
type CheckoutRequest struct {
	CustomerID string
	PriceID    string
	Mode       CheckoutMode
	SuccessURL string // Redirect after successful payment
	CancelURL  string // Redirect if customer cancels
	Metadata   map[string]string
}

// CheckoutSession represents a hosted checkout session.
type CheckoutSession struct {
	ID  string
	URL string
}

// SubscriptionUpdate lists the supported subscription changes.
type SubscriptionUpdate struct {
	CancelAtPeriodEnd bool
}

// SubscriptionState is the provider's view of a subscription after a change.
type SubscriptionState struct {
	ID                string
	Status            string // raw provider status
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  time.Time
}

// EventType is the normalised webhook event type.
type EventType string

const (
	EventCheckoutCompleted    EventType = "checkout_completed"
	EventSubscriptionUpdated  EventType = "subscription_updated"
	EventSubscriptionCanceled EventType = "subscription_canceled"
	EventPaymentFailed        EventType = "payment_failed"
	EventUnknown              EventType = "unknown"
)

// Event is a verified, provider-neutral webhook event.
type Event struct {
	ID                string
	Type              EventType
	ProviderEvent     string // original provider event name
	CustomerID        string
	SubscriptionID    string
	Status            string
	CancelAtPeriodEnd bool
	PriceID           string
	CurrentPeriodEnd  *time.Time
	Metadata          map[string]string
}
