// Package session resolves the authenticated user from the auth provider's
// access token.
//
// Tokens are issued, refreshed and revoked by the external provider. This
// package only reads them: a Transport extracts the raw token (cookie or
// Authorization header) and TokenResolver verifies signature, expiry,
// audience and issuer before exposing a Session with the user id.
//
// Verification keys come either from the provider's JWKS endpoint, fetched
// and refreshed in the background by MicahParks/keyfunc, or from a shared
// HS256 secret.
//
//	resolver, err := session.NewFromConfig(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	r.Use(session.Middleware(resolver))
//
// Handlers read the session back with FromContext or UserIDFromContext.
// RequireAuth rejects requests without one with a JSON 401.
package session
