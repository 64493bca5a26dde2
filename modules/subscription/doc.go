// Package subscription exposes the subscription service over HTTP.
//
// Router returns a chi router meant to be mounted at /subscription. The
// checkout, cancel and status endpoints require a session resolved by
// session.Middleware and answer 401 without one. Every error response is
// {"error": "<message>"}; ErrorRules lists the status mapping.
package subscription
