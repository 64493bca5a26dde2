package handler

import (
	"net/http"
)

// HandlerFunc handles a request whose input has been bound into R.
//
// Example:
//
//	checkout := handler.HandlerFunc[CheckoutRequest](
//		func(ctx handler.Context, req CheckoutRequest) handler.Response {
//			res, err := svc.InitiateCheckout(ctx, req.PriceID, req.PlanName)
//			if err != nil {
//				return handler.Fail(err)
//			}
//			return handler.JSON(res)
//		},
//	)
type HandlerFunc[R any] func(ctx Context, req R) Response

// Response renders itself to an http.ResponseWriter. A non-nil error from
// Render is passed to the ErrorHandler, so Render must not write anything
// before failing.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind parses an HTTP request into v.
type Bind func(r *http.Request, v any) error

// ErrorHandler writes the response for a failed request.
type ErrorHandler func(ctx Context, err error)

// WrapOption configures Wrap.
type WrapOption[R any] func(*wrapConfig[R])

type wrapConfig[R any] struct {
	binders      []Bind
	errorHandler ErrorHandler
}

// WithBinder adds a request binder. Binders run in order.
func WithBinder[R any](b Bind) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		if b != nil {
			c.binders = append(c.binders, b)
		}
	}
}

// WithErrorHandler sets the error handler. Defaults to NewErrorHandler(nil).
func WithErrorHandler[R any](h ErrorHandler) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// Wrap converts a typed HandlerFunc to an http.HandlerFunc.
//
//	r.Post("/checkout", handler.Wrap(checkout,
//		handler.WithBinder[CheckoutRequest](binder.JSON()),
//		handler.WithErrorHandler[CheckoutRequest](errorHandler),
//	))
func Wrap[R any](h HandlerFunc[R], opts ...WrapOption[R]) http.HandlerFunc {
	cfg := &wrapConfig[R]{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.errorHandler == nil {
		cfg.errorHandler = NewErrorHandler(nil)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := NewContext(w, r)

		var req R
		for _, bind := range cfg.binders {
			if err := bind(r, &req); err != nil {
				cfg.errorHandler(ctx, err)
				return
			}
		}

		response := h(ctx, req)
		if response == nil {
			cfg.errorHandler(ctx, ErrNilResponse)
			return
		}
		if err := response.Render(w, r); err != nil {
			cfg.errorHandler(ctx, err)
		}
	}
}

// failResponse hands err to the error handler.
type failResponse struct{ err error }

func (f failResponse) Render(http.ResponseWriter, *http.Request) error { return f.err }

// Fail returns a response that routes err through the error handler.
func Fail(err error) Response {
	if err == nil {
		err = ErrNilResponse
	}
	return failResponse{err: err}
}
