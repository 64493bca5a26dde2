package session

import (
	"net/http"

	"github.com/dmitrymomot/backdrop/handler"
)

// Middleware resolves the session and stores it in the request context.
// Requests without a valid token pass through unauthenticated.
func Middleware(resolver Resolver) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("session: resolver is required")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := resolver.Resolve(r)
			if err != nil || !s.IsAuthenticated() || s.IsExpired() {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// RequireAuth answers 401 with a JSON error body when the context has no
// authenticated session. It must run after Middleware.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			_ = handler.JSONError(handler.ErrUnauthorized.Code, handler.ErrUnauthorized.Message).Render(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
