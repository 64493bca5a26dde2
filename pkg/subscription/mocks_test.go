package subscription_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/backdrop/pkg/billing"
	"github.com/dmitrymomot/backdrop/pkg/profile"
	"github.com/dmitrymomot/backdrop/pkg/session"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetProfile(ctx context.Context, userID uuid.UUID) (*profile.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profile.Profile), args.Error(1)
}

func (m *mockStore) GetProfileByCustomerID(ctx context.Context, customerID string) (*profile.Profile, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profile.Profile), args.Error(1)
}

func (m *mockStore) UpdateProfile(ctx context.Context, userID uuid.UUID, upd profile.Update) error {
	args := m.Called(ctx, userID, upd)
	return args.Error(0)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) CreateCustomer(ctx context.Context, req billing.CustomerRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutSession), args.Error(1)
}

func (m *mockProvider) UpdateSubscription(ctx context.Context, subscriptionID string, upd billing.SubscriptionUpdate) (*billing.SubscriptionState, error) {
	args := m.Called(ctx, subscriptionID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SubscriptionState), args.Error(1)
}

func (m *mockProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*billing.Event, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Event), args.Error(1)
}

func userContext(userID uuid.UUID) context.Context {
	return session.WithSession(context.Background(), &session.Session{
		UserID: userID,
		Email:  "user@example.com",
	})
}

func ptr[T any](v T) *T { return &v }
