package session

import (
	"strings"
	"time"
)

// Config holds the auth provider settings used to verify access tokens.
// Either JWKSURL (or ProviderURL, from which the JWKS URL is derived) or
// JWTSecret must be set.
type Config struct {
	ProviderURL string        `env:"AUTH_PROVIDER_URL"`
	JWKSURL     string        `env:"AUTH_JWKS_URL"`
	JWTSecret   string        `env:"AUTH_JWT_SECRET"`
	Audience    string        `env:"AUTH_JWT_AUDIENCE" envDefault:"authenticated"`
	Issuer      string        `env:"AUTH_JWT_ISSUER"`
	CookieName  string        `env:"AUTH_COOKIE_NAME" envDefault:"sb-access-token"`
	Leeway      time.Duration `env:"AUTH_JWT_LEEWAY" envDefault:"30s"`
}

const (
	authPath = "/auth/v1"
	jwksPath = authPath + "/.well-known/jwks.json"
)

func (c Config) jwksURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	if c.ProviderURL != "" {
		return strings.TrimRight(c.ProviderURL, "/") + jwksPath
	}
	return ""
}

func (c Config) issuer() string {
	if c.Issuer != "" {
		return c.Issuer
	}
	if c.ProviderURL != "" {
		return strings.TrimRight(c.ProviderURL, "/") + authPath
	}
	return ""
}
