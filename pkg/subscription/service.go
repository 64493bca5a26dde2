package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/backdrop/pkg/billing"
	"github.com/dmitrymomot/backdrop/pkg/logger"
	"github.com/dmitrymomot/backdrop/pkg/profile"
	"github.com/dmitrymomot/backdrop/pkg/session"
)

// CheckoutResult is returned by InitiateCheckout.
type CheckoutResult struct {
	SessionID string
	URL       string
}

// CancelResult is returned by CancelSubscription.
type CancelResult struct {
	Message   string
	WillEndOn time.Time
}

// StatusResult is returned by GetSubscriptionStatus. Status and Plan are
// never empty.
type StatusResult struct {
	Status           Status
	Plan             string
	CurrentPeriodEnd *time.Time
}

const cancelMessage = "Subscription will be canceled at the end of the billing period"

// Service orchestrates checkout, cancellation and status reads for the
// user of the current request. The session is taken from the context.
type Service struct {
	store    profile.Store
	provider billing.Provider
	locker   Locker
	catalog  *Catalog
	log      *slog.Logger

	successURL string
	cancelURL  string
	lockTTL    time.Duration
	lockWait   time.Duration
}

// NewService creates a new Service with the given dependencies.
// Panics if store or provider is nil to fail fast during initialization.
func NewService(store profile.Store, provider billing.Provider, opts ...Option) *Service {
	if store == nil {
		panic("subscription: profile store is required")
	}
	if provider == nil {
		panic("subscription: billing provider is required")
	}

	s := &Service{
		store:    store,
		provider: provider,
		log:      slog.Default(),
		lockTTL:  30 * time.Second,
		lockWait: 5 * time.Second,
	}
	WithRedirectURLs("http://localhost:3000", "/dashboard?success=true", "/dashboard?canceled=true")(s)

	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("subscription"), logger.Provider(provider.Name()))

	return s
}

// Catalog returns the configured plan catalog, or nil.
func (s *Service) Catalog() *Catalog { return s.catalog }

// InitiateCheckout starts a hosted subscription checkout for priceID. The
// billing customer is created on the first call and reused afterwards.
func (s *Service) InitiateCheckout(ctx context.Context, priceID, planName string) (*CheckoutResult, error) {
	sess, ok := authenticated(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	if priceID == "" {
		return nil, errors.Join(ErrInvalidPrice, errors.New("price id is required"))
	}
	if s.catalog != nil {
		plan, found := s.catalog.Lookup(priceID)
		if !found {
			return nil, errors.Join(ErrInvalidPrice, errors.New("price "+priceID+" is not offered"))
		}
		if planName == "" {
			planName = plan.Name
		}
	}

	p, err := s.loadProfile(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	customerID := ""
	if p != nil {
		customerID = p.BillingCustomerID
	}
	if customerID == "" {
		customerID, err = s.ensureCustomer(ctx, sess)
		if err != nil {
			return nil, err
		}
	}

	cs, err := s.provider.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		CustomerID: customerID,
		PriceID:    priceID,
		Mode:       billing.ModeSubscription,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
		Metadata: map[string]string{
			"userId":   sess.UserID.String(),
			"planName": planName,
		},
	})
	if err != nil {
		s.log.ErrorContext(ctx, "failed to create checkout session",
			logger.UserID(sess.UserID.String()),
			logger.CustomerID(customerID),
			logger.Error(err),
		)
		return nil, err
	}

	s.log.InfoContext(ctx, "checkout session created",
		logger.UserID(sess.UserID.String()),
		logger.CustomerID(customerID),
		slog.String("price_id", priceID),
	)
	return &CheckoutResult{SessionID: cs.ID, URL: cs.URL}, nil
}

// ensureCustomer creates the billing customer and stores its id. With a
// Locker configured, concurrent first checkouts of one user create a single
// customer; if the lock cannot be taken the call proceeds unlocked.
func (s *Service) ensureCustomer(ctx context.Context, sess *session.Session) (string, error) {
	userID := sess.UserID.String()

	if s.locker != nil {
		lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
		release, err := s.locker.Lock(lockCtx, "billing-customer:"+userID, s.lockTTL)
		cancel()
		if err != nil {
			s.log.WarnContext(ctx, "customer creation lock not acquired, proceeding without it",
				logger.UserID(userID), logger.Error(err))
		} else {
			defer release()

			// Another request may have created the customer while we waited.
			p, err := s.loadProfile(ctx, sess.UserID)
			if err != nil {
				return "", err
			}
			if p != nil && p.BillingCustomerID != "" {
				return p.BillingCustomerID, nil
			}
		}
	}

	customerID, err := s.provider.CreateCustomer(ctx, billing.CustomerRequest{
		Email:          sess.Email,
		Metadata:       map[string]string{"userId": userID},
		IdempotencyKey: "customer-" + userID,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "failed to create billing customer",
			logger.UserID(userID), logger.Error(err))
		return "", err
	}

	upd := profile.Update{BillingCustomerID: &customerID}
	if sess.Email != "" {
		upd.Email = &sess.Email
	}
	if err := s.store.UpdateProfile(ctx, sess.UserID, upd); err != nil {
		s.log.ErrorContext(ctx, "billing customer created but not saved, customer is orphaned",
			logger.UserID(userID),
			logger.CustomerID(customerID),
			logger.Error(err),
		)
		return "", errors.Join(ErrProfileWrite, err)
	}

	s.log.InfoContext(ctx, "billing customer created",
		logger.UserID(userID), logger.CustomerID(customerID))
	return customerID, nil
}

// CancelSubscription schedules cancellation at the end of the current
// billing period and marks the local status as canceling.
func (s *Service) CancelSubscription(ctx context.Context) (*CancelResult, error) {
	sess, ok := authenticated(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	p, err := s.loadProfile(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.SubscriptionID == "" {
		return nil, ErrNoActiveSubscription
	}

	state, err := s.provider.UpdateSubscription(ctx, p.SubscriptionID, billing.SubscriptionUpdate{CancelAtPeriodEnd: true})
	if err != nil {
		s.log.ErrorContext(ctx, "failed to cancel subscription",
			logger.UserID(sess.UserID.String()),
			logger.SubscriptionID(p.SubscriptionID),
			logger.Error(err),
		)
		return nil, err
	}

	status := string(StatusCanceling)
	upd := profile.Update{SubscriptionStatus: &status}
	if !state.CurrentPeriodEnd.IsZero() {
		upd.SubscriptionPeriodEnd = &state.CurrentPeriodEnd
	}
	if err := s.store.UpdateProfile(ctx, sess.UserID, upd); err != nil {
		s.log.ErrorContext(ctx, "subscription canceled at provider but local status not saved",
			logger.UserID(sess.UserID.String()),
			logger.SubscriptionID(p.SubscriptionID),
			logger.Error(err),
		)
		return nil, errors.Join(ErrProfileWrite, err)
	}

	s.log.InfoContext(ctx, "subscription set to cancel at period end",
		logger.UserID(sess.UserID.String()),
		logger.SubscriptionID(p.SubscriptionID),
		slog.Time("period_end", state.CurrentPeriodEnd),
	)
	return &CancelResult{Message: cancelMessage, WillEndOn: state.CurrentPeriodEnd}, nil
}

// GetSubscriptionStatus reports the stored subscription state, substituting
// the free tier when nothing is recorded.
func (s *Service) GetSubscriptionStatus(ctx context.Context) (*StatusResult, error) {
	sess, ok := authenticated(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	p, err := s.loadProfile(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	res := &StatusResult{Status: StatusFree, Plan: FreePlanName}
	if p == nil {
		return res, nil
	}
	res.Status = ParseStatus(p.SubscriptionStatus).Effective()
	if p.SubscriptionPlan != "" {
		res.Plan = p.SubscriptionPlan
	}
	res.CurrentPeriodEnd = p.SubscriptionPeriodEnd
	return res, nil
}

// loadProfile returns nil without error when the user has no profile yet.
func (s *Service) loadProfile(ctx context.Context, userID uuid.UUID) (*profile.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			return nil, nil
		}
		s.log.ErrorContext(ctx, "failed to read profile",
			logger.UserID(userID.String()), logger.Error(err))
		return nil, errors.Join(ErrProfileRead, err)
	}
	return p, nil
}

func authenticated(ctx context.Context) (*session.Session, bool) {
	sess, ok := session.FromContext(ctx)
	if !ok || !sess.IsAuthenticated() || sess.IsExpired() {
		return nil, false
	}
	return sess, true
}
