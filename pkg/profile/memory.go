package profile

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a concurrency-safe in-process Store for tests and local runs.
type MemoryStore struct {
	mu         sync.RWMutex
	profiles   map[uuid.UUID]*Profile
	byCustomer map[string]uuid.UUID
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:   make(map[uuid.UUID]*Profile),
		byCustomer: make(map[string]uuid.UUID),
		now:        time.Now,
	}
}

func (s *MemoryStore) GetProfile(_ context.Context, userID uuid.UUID) (*Profile, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidUserID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return clone(p), nil
}

func (s *MemoryStore) GetProfileByCustomerID(_ context.Context, customerID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byCustomer[customerID]
	if !ok || customerID == "" {
		return nil, ErrProfileNotFound
	}
	return clone(s.profiles[userID]), nil
}

func (s *MemoryStore) UpdateProfile(_ context.Context, userID uuid.UUID, upd Update) error {
	if userID == uuid.Nil {
		return ErrInvalidUserID
	}
	if upd.IsEmpty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if upd.BillingCustomerID != nil && *upd.BillingCustomerID != "" {
		if owner, ok := s.byCustomer[*upd.BillingCustomerID]; ok && owner != userID {
			return ErrDuplicateCustomerID
		}
	}

	now := s.now()
	p, ok := s.profiles[userID]
	if !ok {
		p = &Profile{UserID: userID, CreatedAt: now}
		s.profiles[userID] = p
	}
	p.UpdatedAt = now

	if upd.Email != nil {
		p.Email = *upd.Email
	}
	if upd.BillingCustomerID != nil {
		if p.BillingCustomerID != "" {
			delete(s.byCustomer, p.BillingCustomerID)
		}
		p.BillingCustomerID = *upd.BillingCustomerID
		if p.BillingCustomerID != "" {
			s.byCustomer[p.BillingCustomerID] = userID
		}
	}
	if upd.SubscriptionID != nil {
		p.SubscriptionID = *upd.SubscriptionID
	}
	if upd.SubscriptionStatus != nil {
		p.SubscriptionStatus = *upd.SubscriptionStatus
	}
	if upd.SubscriptionPlan != nil {
		p.SubscriptionPlan = *upd.SubscriptionPlan
	}
	if upd.SubscriptionPeriodEnd != nil {
		t := *upd.SubscriptionPeriodEnd
		p.SubscriptionPeriodEnd = &t
	}
	return nil
}

func clone(p *Profile) *Profile {
	c := *p
	if p.SubscriptionPeriodEnd != nil {
		t := *p.SubscriptionPeriodEnd
		c.SubscriptionPeriodEnd = &t
	}
	return &c
}

var _ Store = (*MemoryStore)(nil)
