package session

import "net/http"

// Transport defines where the access token is read from.
// Tokens are issued and refreshed by the auth provider, never by this service.
type Transport interface {
	// GetToken extracts the access token from the request.
	GetToken(r *http.Request) (string, error)
}
