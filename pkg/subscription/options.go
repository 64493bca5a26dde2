package subscription

import (
	"log/slog"
	"strings"
)

// Option configures a Service instance.
type Option func(*Service)

// WithConfig applies redirect URLs and lock timings from cfg.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		WithRedirectURLs(cfg.BaseURL, cfg.SuccessPath, cfg.CancelPath)(s)
		if cfg.LockTTL > 0 {
			s.lockTTL = cfg.LockTTL
		}
		if cfg.LockWait > 0 {
			s.lockWait = cfg.LockWait
		}
	}
}

// WithRedirectURLs sets where hosted checkout sends the user back to.
// Paths are joined to baseURL.
func WithRedirectURLs(baseURL, successPath, cancelPath string) Option {
	return func(s *Service) {
		base := strings.TrimRight(baseURL, "/")
		if base == "" {
			return
		}
		s.successURL = base + ensureLeadingSlash(successPath)
		s.cancelURL = base + ensureLeadingSlash(cancelPath)
	}
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithLocker serialises first-time customer creation per user.
func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithCatalog restricts checkout to the catalog's prices and supplies
// display names.
func WithCatalog(c *Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

func ensureLeadingSlash(p string) string {
	if p == "" || strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}
