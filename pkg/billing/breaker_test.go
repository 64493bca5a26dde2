package billing_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/backdrop/pkg/billing"
	"github.com/dmitrymomot/backdrop/pkg/logger"
)

type countingProvider struct {
	calls atomic.Int32
	err   error
}

func (p *countingProvider) Name() string { return "fake" }

func (p *countingProvider) CreateCustomer(context.Context, billing.CustomerRequest) (string, error) {
	p.calls.Add(1)
	if p.err != nil {
		return "", p.err
	}
	return "cus_1", nil
}

func (p *countingProvider) CreateCheckoutSession(context.Context, billing.CheckoutRequest) (*billing.CheckoutSession, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return &billing.CheckoutSession{ID: "cs_1", URL: "https://pay"}, nil
}

func (p *countingProvider) UpdateSubscription(context.Context, string, billing.SubscriptionUpdate) (*billing.SubscriptionState, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return &billing.SubscriptionState{ID: "sub_1", Status: "active", CancelAtPeriodEnd: true}, nil
}

func (p *countingProvider) ParseWebhook(context.Context, []byte, string) (*billing.Event, error) {
	p.calls.Add(1)
	return &billing.Event{Type: billing.EventUnknown}, p.err
}

func breakerConfig() billing.BreakerConfig {
	return billing.BreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 3,
	}
}

func TestWithCircuitBreaker_PassesThrough(t *testing.T) {
	t.Parallel()

	inner := &countingProvider{}
	p := billing.WithCircuitBreaker(inner, breakerConfig(), logger.Discard())

	id, err := p.CreateCustomer(context.Background(), billing.CustomerRequest{})
	require.NoError(t, err)
	assert.Equal(t, "cus_1", id)

	s, err := p.CreateCheckoutSession(context.Background(), billing.CheckoutRequest{})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", s.ID)

	state, err := p.UpdateSubscription(context.Background(), "sub_1", billing.SubscriptionUpdate{CancelAtPeriodEnd: true})
	require.NoError(t, err)
	assert.True(t, state.CancelAtPeriodEnd)

	assert.Equal(t, "fake", p.Name())
	assert.EqualValues(t, 3, inner.calls.Load())
}

func TestWithCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	inner := &countingProvider{err: errors.Join(billing.ErrProvider, errors.New("503"))}
	p := billing.WithCircuitBreaker(inner, breakerConfig(), logger.Discard())

	for range 3 {
		_, err := p.CreateCustomer(context.Background(), billing.CustomerRequest{})
		assert.ErrorIs(t, err, billing.ErrProvider)
		assert.NotErrorIs(t, err, billing.ErrProviderUnavailable)
	}

	_, err := p.CreateCheckoutSession(context.Background(), billing.CheckoutRequest{})
	assert.ErrorIs(t, err, billing.ErrProviderUnavailable)
	assert.ErrorIs(t, err, billing.ErrProvider)
	assert.EqualValues(t, 3, inner.calls.Load(), "open breaker must not call the provider")
}

func TestWithCircuitBreaker_RejectedRequestsDoNotTrip(t *testing.T) {
	t.Parallel()

	inner := &countingProvider{err: errors.Join(billing.ErrProvider, billing.ErrProviderRejected)}
	p := billing.WithCircuitBreaker(inner, breakerConfig(), logger.Discard())

	for range 5 {
		_, err := p.CreateCheckoutSession(context.Background(), billing.CheckoutRequest{})
		assert.ErrorIs(t, err, billing.ErrProviderRejected)
	}
	assert.EqualValues(t, 5, inner.calls.Load())
}

func TestWithCircuitBreaker_WebhookBypassesBreaker(t *testing.T) {
	t.Parallel()

	inner := &countingProvider{err: errors.Join(billing.ErrProvider, errors.New("down"))}
	p := billing.WithCircuitBreaker(inner, breakerConfig(), logger.Discard())

	for range 3 {
		_, _ = p.UpdateSubscription(context.Background(), "sub_1", billing.SubscriptionUpdate{})
	}
	_, err := p.ParseWebhook(context.Background(), nil, "")
	assert.NotErrorIs(t, err, billing.ErrProviderUnavailable)
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("stripe with breaker", func(t *testing.T) {
		t.Parallel()
		p, err := billing.New(billing.Config{
			Provider: "stripe",
			Stripe:   billing.StripeConfig{SecretKey: "sk_test", WebhookSecret: "whsec"},
			Breaker:  breakerConfig(),
		}, logger.Discard())
		require.NoError(t, err)
		assert.Equal(t, "stripe", p.Name())
	})

	t.Run("paddle", func(t *testing.T) {
		t.Parallel()
		p, err := billing.New(billing.Config{
			Provider: "paddle",
			Paddle:   billing.PaddleConfig{APIKey: "key", WebhookSecret: "secret", Environment: "sandbox"},
		}, logger.Discard())
		require.NoError(t, err)
		assert.Equal(t, "paddle", p.Name())
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		_, err := billing.New(billing.Config{Provider: "lemonsqueezy"}, logger.Discard())
		assert.ErrorIs(t, err, billing.ErrUnknownProvider)
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Parallel()
		_, err := billing.New(billing.Config{Provider: "stripe"}, logger.Discard())
		assert.ErrorIs(t, err, billing.ErrMissingAPIKey)
	})
}
