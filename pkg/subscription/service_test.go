package subscription_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/backdrop/pkg/billing"
	"github.com/dmitrymomot/backdrop/pkg/logger"
	"github.com/dmitrymomot/backdrop/pkg/profile"
	"github.com/dmitrymomot/backdrop/pkg/session"
	"github.com/dmitrymomot/backdrop/pkg/subscription"
)

func newService(store profile.Store, provider billing.Provider, opts ...subscription.Option) *subscription.Service {
	opts = append([]subscription.Option{
		subscription.WithLogger(logger.Discard()),
		subscription.WithRedirectURLs("https://app.example.com", "/dashboard?success=true", "/dashboard?canceled=true"),
	}, opts...)
	return subscription.NewService(store, provider, opts...)
}

func TestNewService_PanicsOnNilDependencies(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { subscription.NewService(nil, &mockProvider{}) })
	assert.Panics(t, func() { subscription.NewService(&mockStore{}, nil) })
}

func TestService_Unauthenticated(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	provider := &mockProvider{}
	svc := newService(store, provider)
	ctx := context.Background()

	_, err := svc.InitiateCheckout(ctx, "price_pro", "Pro")
	assert.ErrorIs(t, err, subscription.ErrUnauthenticated)

	_, err = svc.CancelSubscription(ctx)
	assert.ErrorIs(t, err, subscription.ErrUnauthenticated)

	_, err = svc.GetSubscriptionStatus(ctx)
	assert.ErrorIs(t, err, subscription.ErrUnauthenticated)

	expired := session.WithSession(ctx, &session.Session{
		UserID:    uuid.New(),
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	_, err = svc.GetSubscriptionStatus(expired)
	assert.ErrorIs(t, err, subscription.ErrUnauthenticated)

	// No store or provider interaction at all.
	store.AssertExpectations(t)
	provider.AssertExpectations(t)
	assert.Empty(t, store.Calls)
	assert.Empty(t, provider.Calls)
}

func TestService_InitiateCheckout(t *testing.T) {
	t.Parallel()

	t.Run("first checkout creates and stores the customer", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		ctx := userContext(userID)

		store := &mockStore{}
		provider := &mockProvider{}

		store.On("GetProfile", mock.Anything, userID).Return(nil, profile.ErrProfileNotFound).Once()
		provider.On("CreateCustomer", mock.Anything, billing.CustomerRequest{
			Email:          "user@example.com",
			Metadata:       map[string]string{"userId": userID.String()},
			IdempotencyKey: "customer-" + userID.String(),
		}).Return("cus_new", nil).Once()
		store.On("UpdateProfile", mock.Anything, userID, mock.MatchedBy(func(u profile.Update) bool {
			return u.BillingCustomerID != nil && *u.BillingCustomerID == "cus_new" &&
				u.Email != nil && *u.Email == "user@example.com"
		})).Return(nil).Once()
		provider.On("CreateCheckoutSession", mock.Anything, billing.CheckoutRequest{
			CustomerID: "cus_new",
			PriceID:    "price_pro",
			Mode:       billing.ModeSubscription,
			SuccessURL: "https://app.example.com/dashboard?success=true",
			CancelURL:  "https://app.example.com/dashboard?canceled=true",
			Metadata:   map[string]string{"userId": userID.String(), "planName": "Pro"},
		}).Return(&billing.CheckoutSession{ID: "cs_1", URL: "https://checkout/cs_1"}, nil).Once()

		res, err := newService(store, provider).InitiateCheckout(ctx, "price_pro", "Pro")
		require.NoError(t, err)
		assert.Equal(t, "cs_1", res.SessionID)
		assert.Equal(t, "https://checkout/cs_1", res.URL)

		store.AssertExpectations(t)
		provider.AssertExpectations(t)
	})

	t.Run("existing customer is reused", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		ctx := userContext(userID)

		store := &mockStore{}
		provider := &mockProvider{}

		store.On("GetProfile", mock.Anything, userID).
			Return(&profile.Profile{UserID: userID, BillingCustomerID: "cus_existing"}, nil).Once()
		provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(r billing.CheckoutRequest) bool {
			return r.CustomerID == "cus_existing" && r.PriceID == "price_pro"
		})).Return(&billing.CheckoutSession{ID: "cs_2", URL: "https://checkout/cs_2"}, nil).Once()

		res, err := newService(store, provider).InitiateCheckout(ctx, "price_pro", "Pro")
		require.NoError(t, err)
		assert.Equal(t, "cs_2", res.SessionID)

		provider.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
		store.AssertExpectations(t)
		provider.AssertExpectations(t)
	})

	t.Run("profile read error", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := &mockStore{}
		provider := &mockProvider{}
		store.On("GetProfile", mock.Anything, userID).Return(nil, errors.New("connection refused")).Once()

		_, err := newService(store, provider).InitiateCheckout(userContext(userID), "price_pro", "Pro")
		assert.ErrorIs(t, err, subscription.ErrProfileRead)
		assert.Empty(t, provider.Calls)
	})

	t.Run("profile write error leaves orphaned customer", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := &mockStore{}
		provider := &mockProvider{}
		store.On("GetProfile", mock.Anything, userID).Return(nil, profile.ErrProfileNotFound).Once()
		provider.On("CreateCustomer", mock.Anything, mock.Anything).Return("cus_orphan", nil).Once()
		store.On("UpdateProfile", mock.Anything, userID, mock.Anything).Return(errors.New("disk full")).Once()

		_, err := newService(store, provider).InitiateCheckout(userContext(userID), "price_pro", "Pro")
		assert.ErrorIs(t, err, subscription.ErrProfileWrite)
		provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
		provider.AssertExpectations(t)
	})

	t.Run("customer creation failure", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := &mockStore{}
		provider := &mockProvider{}
		store.On("GetProfile", mock.Anything, userID).Return(nil, profile.ErrProfileNotFound).Once()
		provider.On("CreateCustomer", mock.Anything, mock.Anything).
			Return("", errors.Join(billing.ErrProvider, errors.New("timeout"))).Once()

		_, err := newService(store, provider).InitiateCheckout(userContext(userID), "price_pro", "Pro")
		assert.ErrorIs(t, err, billing.ErrProvider)
		store.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("checkout session failure", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := &mockStore{}
		provider := &mockProvider{}
		store.On("GetProfile", mock.Anything, userID).
			Return(&profile.Profile{UserID: userID, BillingCustomerID: "cus_1"}, nil).Once()
		provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return(nil, errors.Join(billing.ErrProvider, errors.New("boom"))).Once()

		_, err := newService(store, provider).InitiateCheckout(userContext(userID), "price_pro", "Pro")
		assert.ErrorIs(t, err, billing.ErrProvider)
	})

	t.Run("empty price", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		provider := &mockProvider{}

		_, err := newService(store, provider).InitiateCheckout(userContext(uuid.New()), "", "Pro")
		assert.ErrorIs(t, err, subscription.ErrInvalidPrice)
		assert.Empty(t, store.Calls)
		assert.Empty(t, provider.Calls)
	})

	t.Run("catalog rejects unlisted price and names the plan", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		catalog, err := subscription.NewCatalog(subscription.Plan{PriceID: "price_pro", Name: "Pro"})
		require.NoError(t, err)

		store := &mockStore{}
		provider := &mockProvider{}
		svc := newService(store, provider, subscription.WithCatalog(catalog))

		_, err = svc.InitiateCheckout(userContext(userID), "price_unknown", "Hacker")
		assert.ErrorIs(t, err, subscription.ErrInvalidPrice)
		assert.Empty(t, provider.Calls)

		store.On("GetProfile", mock.Anything, userID).
			Return(&profile.Profile{UserID: userID, BillingCustomerID: "cus_1"}, nil).Once()
		provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(r billing.CheckoutRequest) bool {
			return r.Metadata["planName"] == "Pro"
		})).Return(&billing.CheckoutSession{ID: "cs_3", URL: "https://checkout/cs_3"}, nil).Once()

		_, err = svc.InitiateCheckout(userContext(userID), "price_pro", "")
		require.NoError(t, err)
		provider.AssertExpectations(t)
	})
}

func TestService_CancelSubscription(t *testing.T) {
	t.Parallel()

	periodEnd := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no profile", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := &mockStore{}
		provider := &mockProvider{}
		store.On("GetProfile", mock.Anything, userID).Return(nil, profile.ErrProfileNotFound).Once()

		_, err := newService(store, provider).CancelSubscription(userContext(userID))
		assert.ErrorIs(t, err, subscription.ErrNoActiveSubscription)
		assert.Empty(t, provider.Calls)
	})

	t.Run("no subscription id", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := &mockStore{}
		provider := &mockProvider{}
		store.On("GetProfile", mock.Anything, userID).
			Return(&profile.Profile{UserID: userID, BillingCustomerID: "cus_1"}, nil).Once()

		_, err := newService(store, provider).CancelSubscription(userContext(userID))
		assert.ErrorIs(t, err, subscription.ErrNoActiveSubscription)
		assert.Empty(t, provider.Calls)
		store.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("read error", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := &mockStore{}
		provider := &mockProvider{}
		store.On("GetProfile", mock.Anything, userID).Return(nil, errors.New("timeout")).Once()

		_, err := newService(store, provider).CancelSubscription(userContext(userID))
		assert.ErrorIs(t, err, subscription.ErrProfileRead)
		assert.Empty(t, provider.Calls)
	})

	t.Run("provider failure keeps local status", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := &mockStore{}
		provider := &mockProvider{}
		store.On("GetProfile", mock.Anything, userID).
			Return(&profile.Profile{UserID: userID, SubscriptionID: "sub_1"}, nil).Once()
		provider.On("UpdateSubscription", mock.Anything, "sub_1", billing.SubscriptionUpdate{CancelAtPeriodEnd: true}).
			Return(nil, errors.Join(billing.ErrProvider, errors.New("502"))).Once()

		_, err := newService(store, provider).CancelSubscription(userContext(userID))
		assert.ErrorIs(t, err, billing.ErrProvider)
		store.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("local write failure is not rolled back", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := &mockStore{}
		provider := &mockProvider{}
		store.On("GetProfile", mock.Anything, userID).
			Return(&profile.Profile{UserID: userID, SubscriptionID: "sub_1"}, nil).Once()
		provider.On("UpdateSubscription", mock.Anything, "sub_1", billing.SubscriptionUpdate{CancelAtPeriodEnd: true}).
			Return(&billing.SubscriptionState{ID: "sub_1", CancelAtPeriodEnd: true, CurrentPeriodEnd: periodEnd}, nil).Once()
		store.On("UpdateProfile", mock.Anything, userID, mock.Anything).Return(errors.New("write failed")).Once()

		_, err := newService(store, provider).CancelSubscription(userContext(userID))
		assert.ErrorIs(t, err, subscription.ErrProfileWrite)
		provider.AssertNumberOfCalls(t, "UpdateSubscription", 1)
	})
}

func TestService_CancelSubscription_EndToEnd(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	periodEnd := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

	store := profile.NewMemoryStore()
	require.NoError(t, store.UpdateProfile(context.Background(), userID, profile.Update{
		BillingCustomerID:  ptr("cus_1"),
		SubscriptionID:     ptr("sub_1"),
		SubscriptionStatus: ptr("active"),
		SubscriptionPlan:   ptr("Pro"),
	}))

	provider := &mockProvider{}
	provider.On("UpdateSubscription", mock.Anything, "sub_1", billing.SubscriptionUpdate{CancelAtPeriodEnd: true}).
		Return(&billing.SubscriptionState{ID: "sub_1", Status: "active", CancelAtPeriodEnd: true, CurrentPeriodEnd: periodEnd}, nil).Once()

	svc := newService(store, provider)
	ctx := userContext(userID)

	res, err := svc.CancelSubscription(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Message)
	assert.True(t, periodEnd.Equal(res.WillEndOn))
	assert.Equal(t, "2030-06-01T12:00:00Z", res.WillEndOn.Format(time.RFC3339))

	p, err := store.GetProfile(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "canceling", p.SubscriptionStatus)

	status, err := svc.GetSubscriptionStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCanceling, status.Status)
	assert.Equal(t, "Pro", status.Plan)
	require.NotNil(t, status.CurrentPeriodEnd)
	assert.True(t, periodEnd.Equal(*status.CurrentPeriodEnd))

	provider.AssertExpectations(t)
}

func TestService_InitiateCheckout_EndToEnd(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	store := profile.NewMemoryStore()
	provider := &mockProvider{}
	provider.On("CreateCustomer", mock.Anything, mock.Anything).Return("cus_42", nil).Once()
	provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(r billing.CheckoutRequest) bool {
		return r.CustomerID == "cus_42"
	})).Return(&billing.CheckoutSession{ID: "cs_1", URL: "https://checkout/cs_1"}, nil).Twice()

	svc := newService(store, provider)
	ctx := userContext(userID)

	_, err := svc.InitiateCheckout(ctx, "price_pro", "Pro")
	require.NoError(t, err)
	_, err = svc.InitiateCheckout(ctx, "price_pro", "Pro")
	require.NoError(t, err)

	p, err := store.GetProfile(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "cus_42", p.BillingCustomerID)
	provider.AssertNumberOfCalls(t, "CreateCustomer", 1)
	provider.AssertExpectations(t)
}

type countingCustomers struct {
	mockProvider
	created atomic.Int32
}

func (c *countingCustomers) CreateCustomer(context.Context, billing.CustomerRequest) (string, error) {
	n := c.created.Add(1)
	time.Sleep(5 * time.Millisecond)
	return "cus_" + string(rune('0'+n)), nil
}

func (c *countingCustomers) CreateCheckoutSession(_ context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error) {
	return &billing.CheckoutSession{ID: "cs_" + req.CustomerID, URL: "https://checkout"}, nil
}

func TestService_InitiateCheckout_ConcurrentFirstCheckoutCreatesOneCustomer(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	store := profile.NewMemoryStore()
	provider := &countingCustomers{}
	svc := newService(store, provider, subscription.WithLocker(subscription.NewMemoryLocker()))
	ctx := userContext(userID)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.InitiateCheckout(ctx, "price_pro", "Pro")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, provider.created.Load())
}

func TestService_GetSubscriptionStatus(t *testing.T) {
	t.Parallel()

	t.Run("no profile resolves to free defaults", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := &mockStore{}
		store.On("GetProfile", mock.Anything, userID).Return(nil, profile.ErrProfileNotFound).Once()

		res, err := newService(store, &mockProvider{}).GetSubscriptionStatus(userContext(userID))
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusFree, res.Status)
		assert.Equal(t, "Free", res.Plan)
		assert.Nil(t, res.CurrentPeriodEnd)
	})

	t.Run("empty profile fields resolve to free defaults", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := &mockStore{}
		store.On("GetProfile", mock.Anything, userID).
			Return(&profile.Profile{UserID: userID, BillingCustomerID: "cus_1"}, nil).Once()

		res, err := newService(store, &mockProvider{}).GetSubscriptionStatus(userContext(userID))
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusFree, res.Status)
		assert.Equal(t, "Free", res.Plan)
		assert.Nil(t, res.CurrentPeriodEnd)
	})

	t.Run("stored subscription", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		end := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		store := &mockStore{}
		store.On("GetProfile", mock.Anything, userID).Return(&profile.Profile{
			UserID:                userID,
			SubscriptionStatus:    "past_due",
			SubscriptionPlan:      "Team",
			SubscriptionPeriodEnd: &end,
		}, nil).Once()

		res, err := newService(store, &mockProvider{}).GetSubscriptionStatus(userContext(userID))
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusPastDue, res.Status)
		assert.Equal(t, "Team", res.Plan)
		assert.Equal(t, &end, res.CurrentPeriodEnd)
	})

	t.Run("read error", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		store := &mockStore{}
		store.On("GetProfile", mock.Anything, userID).Return(nil, errors.New("boom")).Once()

		_, err := newService(store, &mockProvider{}).GetSubscriptionStatus(userContext(userID))
		assert.ErrorIs(t, err, subscription.ErrProfileRead)
	})
}
