package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Resolver turns an inbound request into a session.
type Resolver interface {
	Resolve(r *http.Request) (*Session, error)
}

// Claims is the subset of the auth provider's access token claims we rely on.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenResolver validates the auth provider's JWT access token.
type TokenResolver struct {
	transport Transport
	keyFunc   jwt.Keyfunc
	parser    *jwt.Parser
}

type resolverOptions struct {
	audience string
	issuer   string
	leeway   time.Duration
	methods  []string
}

// ResolverOption configures TokenResolver.
type ResolverOption func(*resolverOptions)

// WithAudience requires the token's aud claim to contain audience.
func WithAudience(audience string) ResolverOption {
	return func(o *resolverOptions) { o.audience = audience }
}

// WithIssuer requires the token's iss claim to equal issuer.
func WithIssuer(issuer string) ResolverOption {
	return func(o *resolverOptions) { o.issuer = issuer }
}

// WithLeeway tolerates clock skew when checking exp and nbf.
func WithLeeway(d time.Duration) ResolverOption {
	return func(o *resolverOptions) { o.leeway = d }
}

// WithValidMethods restricts accepted signing algorithms.
func WithValidMethods(methods ...string) ResolverOption {
	return func(o *resolverOptions) { o.methods = methods }
}

// NewTokenResolver creates a resolver reading tokens from transport and
// verifying them with keyFunc. Panics if either is nil.
func NewTokenResolver(transport Transport, keyFunc jwt.Keyfunc, opts ...ResolverOption) *TokenResolver {
	if transport == nil {
		panic("session: transport is required")
	}
	if keyFunc == nil {
		panic("session: key func is required")
	}

	o := &resolverOptions{}
	for _, opt := range opts {
		opt(o)
	}

	parserOpts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if o.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(o.audience))
	}
	if o.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(o.issuer))
	}
	if o.leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(o.leeway))
	}
	if len(o.methods) > 0 {
		parserOpts = append(parserOpts, jwt.WithValidMethods(o.methods))
	}

	return &TokenResolver{
		transport: transport,
		keyFunc:   keyFunc,
		parser:    jwt.NewParser(parserOpts...),
	}
}

// NewFromConfig builds a TokenResolver reading the token from the provider's
// cookie or the Authorization header. With a shared secret, HS256 tokens are
// verified against it; an explicit JWKSURL adds the asymmetric methods on top.
// Without a secret, keys come from the JWKS endpoint, derived from
// ProviderURL when JWKSURL is empty. The JWKS background refresh stops when
// ctx is done.
func NewFromConfig(ctx context.Context, cfg Config) (*TokenResolver, error) {
	transport := NewCompositeTransport(
		NewCookieTransport(cfg.CookieName),
		NewHeaderTransport("Authorization"),
	)

	opts := []ResolverOption{
		WithAudience(cfg.Audience),
		WithIssuer(cfg.issuer()),
		WithLeeway(cfg.Leeway),
	}

	jwksURL := cfg.JWKSURL
	if cfg.JWTSecret == "" {
		jwksURL = cfg.jwksURL()
	}

	var jwks jwt.Keyfunc
	if jwksURL != "" {
		k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
		if err != nil {
			return nil, errors.Join(ErrNoKeySource, err)
		}
		jwks = k.Keyfunc
	}

	switch {
	case cfg.JWTSecret != "" && jwks != nil:
		opts = append(opts, WithValidMethods(append(hmacMethods(), asymmetricMethods()...)...))
		return NewTokenResolver(transport, methodKeyfunc([]byte(cfg.JWTSecret), jwks), opts...), nil
	case cfg.JWTSecret != "":
		opts = append(opts, WithValidMethods(hmacMethods()...))
		return NewTokenResolver(transport, methodKeyfunc([]byte(cfg.JWTSecret), nil), opts...), nil
	case jwks != nil:
		opts = append(opts, WithValidMethods(asymmetricMethods()...))
		return NewTokenResolver(transport, jwks, opts...), nil
	}

	return nil, ErrNoKeySource
}

func hmacMethods() []string { return []string{jwt.SigningMethodHS256.Alg()} }

func asymmetricMethods() []string { return []string{"RS256", "ES256", "EdDSA"} }

// methodKeyfunc picks the key by the token's signing method: HMAC tokens get
// the shared secret, anything else goes to jwks.
func methodKeyfunc(secret []byte, jwks jwt.Keyfunc) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
			if len(secret) == 0 {
				return nil, jwt.ErrTokenUnverifiable
			}
			return secret, nil
		}
		if jwks == nil {
			return nil, jwt.ErrTokenUnverifiable
		}
		return jwks(token)
	}
}

// Resolve reads and verifies the access token. It returns ErrSessionNotFound
// when the request has no token, ErrSessionExpired for an expired token and
// ErrInvalidSession for anything else the parser rejects.
func (tr *TokenResolver) Resolve(r *http.Request) (*Session, error) {
	raw, err := tr.transport.GetToken(r)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	claims := &Claims{}
	if _, err := tr.parser.ParseWithClaims(raw, claims, tr.keyFunc); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Join(ErrSessionExpired, err)
		}
		return nil, errors.Join(ErrInvalidSession, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return nil, errors.Join(ErrInvalidSession, errors.New("subject is not a user id"))
	}

	s := &Session{UserID: userID, Email: claims.Email}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}
