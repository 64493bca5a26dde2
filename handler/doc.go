// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives a Context and a request value filled in by the
// configured binders, and returns a Response. Wrap turns it into an
// http.HandlerFunc:
//
//	r.Post("/checkout", handler.Wrap(checkout,
//		handler.WithBinder[CheckoutRequest](binder.JSON()),
//		handler.WithErrorHandler[CheckoutRequest](errs),
//	))
//
// # Responses
//
// JSON writes a value as the response body. JSONError writes the
// {"error": "..."} shape used by every error response. Redirect answers with
// 303 See Other, or with a DataStar Server-Sent Event when the request came
// from DataStar. Fail routes an error to the error handler.
//
// # Errors
//
// NewErrorHandler maps errors to status codes with ErrorRule values, falling
// back to HTTPError and binder errors, and to 500 for anything else.
// Messages of unmapped errors are never sent to the client.
package handler
