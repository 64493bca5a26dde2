// Package subscription implements the user-facing subscription lifecycle:
// starting a hosted checkout, scheduling cancellation and reporting the
// current state, plus mirroring provider webhooks onto the account profile.
//
// # Architecture
//
// Service sits between three collaborators:
//
//   - profile.Store persists the billing customer id and the mirrored
//     subscription state per user
//   - billing.Provider talks to Stripe or Paddle
//   - session (from the request context) identifies the caller
//
// Every operation reads the session first and fails with ErrUnauthenticated
// before touching the store or the provider.
//
// # Checkout
//
// The billing customer is created lazily on the first checkout and its id
// saved to the profile; later checkouts reuse it. An optional Locker
// (RedisLocker across instances, MemoryLocker in a single process) keeps
// two concurrent first checkouts from creating two customers, and Stripe
// additionally receives the idempotency key "customer-<userID>".
//
// If the customer is created but saving its id fails, the call returns
// ErrProfileWrite and the customer stays orphaned at the provider. The
// orphan is logged with its id; there is no compensation.
//
// # Cancellation
//
// CancelSubscription asks the provider to cancel at period end and marks the
// local status StatusCanceling. A failed local write after the provider call
// returns ErrProfileWrite; the provider-side change is not rolled back.
//
// # Status
//
// Status mirrors the provider's value, with StatusUnset for "nothing
// recorded". GetSubscriptionStatus maps unset to StatusFree and an empty plan
// to FreePlanName, so callers never see an empty state.
//
// # Webhooks
//
// SyncFromWebhook verifies the provider signature, finds the profile by
// billing customer id (falling back to the userId checkout metadata) and
// stores subscription id, status, plan and period end.
//
// # Plan catalog
//
// An optional Catalog, loaded from YAML with LoadCatalog, whitelists the
// prices checkout accepts and supplies plan display names.
//
// # Errors
//
//   - ErrUnauthenticated: no session in context
//   - ErrInvalidPrice: empty or unlisted price id
//   - ErrNoActiveSubscription: nothing to cancel
//   - ErrProfileRead / ErrProfileWrite: store failures
//   - billing.ErrProvider: provider failures, passed through
package subscription
