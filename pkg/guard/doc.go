// Package guard implements the route guard that runs before any handler.
//
// Paths are classified as protected, auth-only or unclassified. A protected
// path requested without a session is redirected to the login path; an
// auth-only path requested with a session is redirected to the landing
// page. Everything else passes through unchanged. Redirects are 303 See
// Other, or a DataStar redirect event for DataStar requests.
//
//	g := guard.NewFromConfig(cfg)
//	r.Use(session.Middleware(resolver), g.Middleware)
package guard
