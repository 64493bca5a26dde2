package billing

import "errors"

var (
	// ErrProvider marks every failure reported by, or while talking to, the billing provider.
	ErrProvider = errors.New("billing provider error")
	// ErrProviderUnavailable is returned without calling the provider while the circuit is open.
	ErrProviderUnavailable = errors.New("billing provider temporarily unavailable")
	// ErrProviderRejected marks requests the provider refused as invalid (4xx).
	ErrProviderRejected = errors.New("billing provider rejected the request")

	ErrUnknownProvider           = errors.New("unknown billing provider")
	ErrMissingAPIKey             = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret      = errors.New("billing provider webhook secret is required")
	ErrInvalidEnvironment        = errors.New("invalid billing provider environment")
	ErrWebhookVerificationFailed = errors.New("webhook signature verification failed")
	ErrInvalidWebhookPayload     = errors.New("invalid webhook payload")
	ErrNoCheckoutURL             = errors.New("no checkout URL returned from provider")
	ErrMissingCustomerID         = errors.New("customer ID is required")
	ErrMissingPriceID            = errors.New("price ID is required")
	ErrMissingSubscriptionID     = errors.New("subscription ID is required")
	ErrUnsupportedUpdate         = errors.New("subscription update not supported by provider")
)
