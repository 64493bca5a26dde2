package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeConfig holds configuration for the Stripe billing provider.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

// StripeProvider implements Provider on an explicitly constructed
// stripe-go client. The package-level stripe.Key is never set.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// StripeOption configures StripeProvider.
type StripeOption func(*stripeOptions)

type stripeOptions struct {
	backends *stripe.Backends
}

// WithStripeBackends overrides the HTTP backends, e.g. to point the client
// at a local stub server.
func WithStripeBackends(b *stripe.Backends) StripeOption {
	return func(o *stripeOptions) { o.backends = b }
}

// NewStripeProvider creates a new Stripe billing provider.
// Network retries inside stripe-go are disabled.
func NewStripeProvider(cfg StripeConfig, opts ...StripeOption) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	o := &stripeOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.backends == nil {
		o.backends = stripe.NewBackendsWithConfig(&stripe.BackendConfig{
			MaxNetworkRetries: stripe.Int64(0),
		})
	}

	return &StripeProvider{
		api:           client.New(cfg.SecretKey, o.backends),
		webhookSecret: cfg.WebhookSecret,
	}, nil
}

func (p *StripeProvider) Name() string { return "stripe" }

// CreateCustomer creates a new Stripe customer.
func (p *StripeProvider) CreateCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	params := &stripe.CustomerParams{
		Metadata: req.Metadata,
	}
	if req.Email != "" {
		params.Email = stripe.String(req.Email)
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	c, err := p.api.Customers.New(params)
	if err != nil {
		return "", stripeError("create customer", err)
	}
	return c.ID, nil
}

// CreateCheckoutSession creates a hosted Stripe Checkout session. Metadata is
// copied onto the subscription so webhook events carry it too.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.CustomerID == "" {
		return nil, errors.Join(ErrProvider, ErrMissingCustomerID)
	}
	if req.PriceID == "" {
		return nil, errors.Join(ErrProvider, ErrMissingPriceID)
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeSubscription
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(req.CustomerID),
		Mode:     stripe.String(string(mode)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(req.PriceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Metadata:   req.Metadata,
	}
	if mode == ModeSubscription && len(req.Metadata) > 0 {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: req.Metadata,
		}
	}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, stripeError("create checkout session", err)
	}
	if s.URL == "" {
		return nil, errors.Join(ErrProvider, ErrNoCheckoutURL)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// UpdateSubscription toggles cancel-at-period-end on a Stripe subscription.
func (p *StripeProvider) UpdateSubscription(ctx context.Context, subscriptionID string, upd SubscriptionUpdate) (*SubscriptionState, error) {
	if subscriptionID == "" {
		return nil, errors.Join(ErrProvider, ErrMissingSubscriptionID)
	}

	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(upd.CancelAtPeriodEnd),
	}
	params.Context = ctx

	sub, err := p.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, stripeError("update subscription", err)
	}

	state := &SubscriptionState{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if end := stripePeriodEnd(sub); end != nil {
		state.CurrentPeriodEnd = *end
	}
	return state, nil
}

// ParseWebhook verifies the Stripe-Signature header and normalises the
// events the subscription service reacts to.
func (p *StripeProvider) ParseWebhook(_ context.Context, payload []byte, signature string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, errors.Join(ErrProvider, ErrWebhookVerificationFailed, err)
	}

	event := &Event{
		ID:            ev.ID,
		Type:          EventUnknown,
		ProviderEvent: string(ev.Type),
	}
	if ev.Data == nil {
		return event, nil
	}

	switch ev.Type {
	case "checkout.session.completed":
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, errors.Join(ErrProvider, ErrInvalidWebhookPayload, err)
		}
		event.Type = EventCheckoutCompleted
		event.Metadata = s.Metadata
		if s.Customer != nil {
			event.CustomerID = s.Customer.ID
		}
		if s.Subscription != nil {
			event.SubscriptionID = s.Subscription.ID
		}
		switch s.PaymentStatus {
		case stripe.CheckoutSessionPaymentStatusPaid:
			event.Status = string(stripe.SubscriptionStatusActive)
		case stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
			event.Status = string(stripe.SubscriptionStatusTrialing)
		default:
			event.Status = string(stripe.SubscriptionStatusIncomplete)
		}

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return nil, errors.Join(ErrProvider, ErrInvalidWebhookPayload, err)
		}
		event.Type = EventSubscriptionUpdated
		if ev.Type == "customer.subscription.deleted" {
			event.Type = EventSubscriptionCanceled
		}
		event.SubscriptionID = sub.ID
		event.Status = string(sub.Status)
		event.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		event.Metadata = sub.Metadata
		event.CurrentPeriodEnd = stripePeriodEnd(&sub)
		if sub.Customer != nil {
			event.CustomerID = sub.Customer.ID
		}
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			event.PriceID = sub.Items.Data[0].Price.ID
		}

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return nil, errors.Join(ErrProvider, ErrInvalidWebhookPayload, err)
		}
		event.Type = EventPaymentFailed
		event.Metadata = inv.Metadata
		if inv.Customer != nil {
			event.CustomerID = inv.Customer.ID
		}
	}

	return event, nil
}

func stripePeriodEnd(sub *stripe.Subscription) *time.Time {
	var unix int64
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		unix = sub.Items.Data[0].CurrentPeriodEnd
	}
	if unix == 0 {
		unix = sub.CancelAt
	}
	if unix == 0 {
		return nil
	}
	t := time.Unix(unix, 0).UTC()
	return &t
}

func stripeError(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.HTTPStatusCode >= http.StatusBadRequest && se.HTTPStatusCode < http.StatusInternalServerError {
		return errors.Join(ErrProvider, ErrProviderRejected, fmt.Errorf("stripe %s: %w", op, err))
	}
	return errors.Join(ErrProvider, fmt.Errorf("stripe %s: %w", op, err))
}

var _ Provider = (*StripeProvider)(nil)
