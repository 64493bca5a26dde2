// Package billing adapts payment providers (Stripe, Paddle) to the Provider
// interface used by the subscription service.
//
// Adapters are constructed once with explicit credentials; no SDK global
// state is touched. Every error is joined with ErrProvider so callers can
// classify provider failures with errors.Is. Adapters never retry;
// WithCircuitBreaker adds fail-fast behaviour while the provider is down.
//
//	provider, err := billing.New(cfg, log)
//	if err != nil {
//		return err
//	}
//	customerID, err := provider.CreateCustomer(ctx, billing.CustomerRequest{Email: email})
package billing
