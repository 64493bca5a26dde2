package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes the circuit breaker around the provider.
type BreakerConfig struct {
	Enabled          bool          `env:"BILLING_BREAKER_ENABLED" envDefault:"true"`
	MaxRequests      uint32        `env:"BILLING_BREAKER_MAX_REQUESTS" envDefault:"1"`      // MaxRequests allowed through while half-open.
	Interval         time.Duration `env:"BILLING_BREAKER_INTERVAL" envDefault:"60s"`        // Interval after which closed-state counts reset.
	Timeout          time.Duration `env:"BILLING_BREAKER_TIMEOUT" envDefault:"30s"`         // Timeout before an open breaker goes half-open.
	FailureThreshold uint32        `env:"BILLING_BREAKER_FAILURE_THRESHOLD" envDefault:"5"` // FailureThreshold consecutive failures open the breaker.
}

type breakerProvider struct {
	next    Provider
	breaker *gobreaker.CircuitBreaker[any]
}

// WithCircuitBreaker wraps provider so that, after FailureThreshold
// consecutive failures, calls fail fast with ErrProviderUnavailable until
// the breaker lets a probe through. Requests the provider rejected as
// invalid and canceled contexts do not count as failures.
func WithCircuitBreaker(provider Provider, cfg BreakerConfig, log *slog.Logger) Provider {
	if provider == nil {
		panic("billing: provider is required")
	}
	if log == nil {
		log = slog.Default()
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        provider.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("billing circuit breaker state changed",
				slog.String("provider", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrProviderRejected) ||
				errors.Is(err, ErrWebhookVerificationFailed) ||
				errors.Is(err, context.Canceled)
		},
	}

	return &breakerProvider{
		next:    provider,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (b *breakerProvider) Name() string { return b.next.Name() }

func (b *breakerProvider) CreateCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	res, err := b.execute(func() (any, error) {
		return b.next.CreateCustomer(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (b *breakerProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	res, err := b.execute(func() (any, error) {
		return b.next.CreateCheckoutSession(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return res.(*CheckoutSession), nil
}

func (b *breakerProvider) UpdateSubscription(ctx context.Context, subscriptionID string, upd SubscriptionUpdate) (*SubscriptionState, error) {
	res, err := b.execute(func() (any, error) {
		return b.next.UpdateSubscription(ctx, subscriptionID, upd)
	})
	if err != nil {
		return nil, err
	}
	return res.(*SubscriptionState), nil
}

// ParseWebhook is local signature verification and bypasses the breaker.
func (b *breakerProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	return b.next.ParseWebhook(ctx, payload, signature)
}

func (b *breakerProvider) execute(fn func() (any, error)) (any, error) {
	res, err := b.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.Join(ErrProviderUnavailable, ErrProvider, err)
	}
	return res, err
}
