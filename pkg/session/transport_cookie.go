package session

import "net/http"

// CookieTransport reads the access token from the auth provider's cookie.
type CookieTransport struct {
	cookieName string
}

// NewCookieTransport creates a new cookie-based transport.
func NewCookieTransport(cookieName string) *CookieTransport {
	return &CookieTransport{cookieName: cookieName}
}

// GetToken extracts the access token from the cookie.
func (t *CookieTransport) GetToken(r *http.Request) (string, error) {
	c, err := r.Cookie(t.cookieName)
	if err != nil || c.Value == "" {
		return "", ErrSessionNotFound
	}
	return c.Value, nil
}
