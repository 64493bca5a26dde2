package billing

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Config selects and configures the billing provider.
type Config struct {
	Provider string `env:"BILLING_PROVIDER" envDefault:"stripe"`
	Stripe   StripeConfig
	Paddle   PaddleConfig
	Breaker  BreakerConfig
}

// New builds the configured provider, wrapped in a circuit breaker when
// enabled.
func New(cfg Config, log *slog.Logger) (Provider, error) {
	var (
		provider Provider
		err      error
	)

	switch strings.ToLower(cfg.Provider) {
	case "stripe", "":
		provider, err = NewStripeProvider(cfg.Stripe)
	case "paddle":
		provider, err = NewPaddleProvider(cfg.Paddle)
	default:
		return nil, errors.Join(ErrUnknownProvider, fmt.Errorf("billing provider %q", cfg.Provider))
	}
	if err != nil {
		return nil, err
	}

	if cfg.Breaker.Enabled {
		provider = WithCircuitBreaker(provider, cfg.Breaker, log)
	}
	return provider, nil
}
