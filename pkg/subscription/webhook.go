package subscription

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/backdrop/pkg/billing"
	"github.com/dmitrymomot/backdrop/pkg/logger"
	"github.com/dmitrymomot/backdrop/pkg/profile"
)

// SyncFromWebhook verifies a provider notification and mirrors the
// subscription it describes onto the owner's profile. Events that do not
// concern a known account are acknowledged without changes.
func (s *Service) SyncFromWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrWebhookVerificationFailed) || errors.Is(err, billing.ErrInvalidWebhookPayload) {
			s.log.WarnContext(ctx, "rejected webhook", logger.Error(err))
			return errors.Join(ErrInvalidWebhook, err)
		}
		return err
	}

	log := s.log.With(
		logger.Event(event.ProviderEvent),
		slog.String("event_id", event.ID),
		logger.CustomerID(event.CustomerID),
		logger.SubscriptionID(event.SubscriptionID),
	)

	if event.Type == billing.EventUnknown {
		log.DebugContext(ctx, "ignoring webhook event")
		return nil
	}

	p, err := s.findEventProfile(ctx, event)
	if err != nil {
		return err
	}
	if p == nil {
		log.WarnContext(ctx, "webhook event does not match any profile")
		return nil
	}

	// Only a completed checkout may switch the profile to another
	// subscription. Anything else about a different one is stale.
	if event.Type != billing.EventCheckoutCompleted &&
		p.SubscriptionID != "" && event.SubscriptionID != "" && p.SubscriptionID != event.SubscriptionID {
		log.InfoContext(ctx, "ignoring event for a replaced subscription",
			slog.String("current_subscription_id", p.SubscriptionID))
		return nil
	}

	if status := ParseStatus(event.Status); !status.IsKnown() {
		log.WarnContext(ctx, "provider reported an unrecognised status, storing it verbatim",
			slog.String("status", status.String()))
	}

	upd := s.eventUpdate(event, p)
	if upd.IsEmpty() {
		return nil
	}
	if err := s.store.UpdateProfile(ctx, p.UserID, upd); err != nil {
		log.ErrorContext(ctx, "failed to apply webhook event", logger.UserID(p.UserID.String()), logger.Error(err))
		return errors.Join(ErrProfileWrite, err)
	}

	log.InfoContext(ctx, "subscription synced from webhook", logger.UserID(p.UserID.String()))
	return nil
}

// findEventProfile matches by billing customer id first, then by the userId
// metadata set at checkout. It returns nil when neither matches.
func (s *Service) findEventProfile(ctx context.Context, event *billing.Event) (*profile.Profile, error) {
	if event.CustomerID != "" {
		p, err := s.store.GetProfileByCustomerID(ctx, event.CustomerID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, profile.ErrProfileNotFound) {
			return nil, errors.Join(ErrProfileRead, err)
		}
	}

	userID, err := uuid.Parse(event.Metadata["userId"])
	if err != nil || userID == uuid.Nil {
		return nil, nil
	}
	p, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		// Checkout completed before the profile row was visible; the row is
		// created by the update.
		p = &profile.Profile{UserID: userID}
	}
	return p, nil
}

func (s *Service) eventUpdate(event *billing.Event, p *profile.Profile) profile.Update {
	var upd profile.Update

	if event.SubscriptionID != "" && event.SubscriptionID != p.SubscriptionID {
		upd.SubscriptionID = &event.SubscriptionID
	}
	if event.CustomerID != "" && p.BillingCustomerID == "" {
		upd.BillingCustomerID = &event.CustomerID
	}

	status := ParseStatus(event.Status)
	switch event.Type {
	case billing.EventSubscriptionCanceled:
		if status == StatusUnset {
			status = StatusCanceled
		}
	case billing.EventPaymentFailed:
		if status == StatusUnset {
			status = StatusPastDue
		}
	}
	if event.CancelAtPeriodEnd && (status == StatusActive || status == StatusTrialing) {
		status = StatusCanceling
	}
	if status != StatusUnset {
		raw := status.String()
		upd.SubscriptionStatus = &raw
	}

	plan := event.Metadata["planName"]
	if plan == "" {
		if cp, ok := s.catalog.Lookup(event.PriceID); ok {
			plan = cp.Name
		}
	}
	if plan != "" {
		upd.SubscriptionPlan = &plan
	}

	if event.CurrentPeriodEnd != nil {
		end := *event.CurrentPeriodEnd
		upd.SubscriptionPeriodEnd = &end
	}
	return upd
}
