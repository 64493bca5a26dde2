package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is the authenticated identity resolved from the auth provider's
// access token. Only the user id is relied on for authorization.
type Session struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsAuthenticated returns true if the session carries a user id.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != uuid.Nil
}

// IsExpired returns true if the session has an expiry and it has passed.
func (s *Session) IsExpired() bool {
	return s != nil && !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}
