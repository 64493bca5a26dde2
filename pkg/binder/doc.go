// Package binder decodes HTTP request bodies into typed values for use with
// handler.Wrap.
//
// JSON enforces an application/json content type, a body size limit and, by
// default, rejects unknown fields. Every failure wraps one of the package
// errors, and IsBindingError lets error handlers answer 400 for them:
//
//	type CheckoutRequest struct {
//		PriceID  string `json:"priceId"`
//		PlanName string `json:"planName"`
//	}
//
//	var req CheckoutRequest
//	if err := binder.JSON()(r, &req); err != nil {
//		// binder.IsBindingError(err) == true
//	}
package binder
