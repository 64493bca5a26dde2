package session

import "errors"

var (
	// ErrSessionNotFound indicates the request carries no credential.
	ErrSessionNotFound = errors.New("session.not_found")

	// ErrInvalidSession indicates the credential was rejected.
	ErrInvalidSession = errors.New("session.invalid")

	// ErrSessionExpired indicates the credential has expired.
	ErrSessionExpired = errors.New("session.expired")

	// ErrNoKeySource indicates neither a JWKS endpoint nor a shared secret is configured.
	ErrNoKeySource = errors.New("session.no_key_source")

	// ErrNoTransport indicates no transport is configured.
	ErrNoTransport = errors.New("session.no_transport")
)
