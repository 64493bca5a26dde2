package subscription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/backdrop/handler"
	"github.com/dmitrymomot/backdrop/pkg/billing"
	"github.com/dmitrymomot/backdrop/pkg/binder"
	"github.com/dmitrymomot/backdrop/pkg/logger"
	"github.com/dmitrymomot/backdrop/pkg/session"
	subsvc "github.com/dmitrymomot/backdrop/pkg/subscription"
)

// Service is the subscription behaviour exposed over HTTP.
type Service interface {
	InitiateCheckout(ctx context.Context, priceID, planName string) (*subsvc.CheckoutResult, error)
	CancelSubscription(ctx context.Context) (*subsvc.CancelResult, error)
	GetSubscriptionStatus(ctx context.Context) (*subsvc.StatusResult, error)
	SyncFromWebhook(ctx context.Context, payload []byte, signature string) error
	Catalog() *subsvc.Catalog
}

// signatureHeaders are checked in order for the webhook signature.
var signatureHeaders = []string{"Stripe-Signature", "Paddle-Signature"}

const maxWebhookSize = 1 << 20

// ErrorRules maps service and provider errors to HTTP responses.
func ErrorRules() []handler.ErrorRule {
	return []handler.ErrorRule{
		handler.MapError(subsvc.ErrUnauthenticated, http.StatusUnauthorized, "Unauthorized"),
		handler.MapError(subsvc.ErrNoActiveSubscription, http.StatusBadRequest, "No active subscription found"),
		handler.MapError(subsvc.ErrInvalidPrice, http.StatusBadRequest, "Invalid price"),
		handler.MapError(subsvc.ErrInvalidWebhook, http.StatusBadRequest, "Invalid webhook"),
		handler.MapError(subsvc.ErrProfileRead, http.StatusInternalServerError, "Failed to load account profile"),
		handler.MapError(subsvc.ErrProfileWrite, http.StatusInternalServerError, "Failed to update account profile"),
		handler.MapError(billing.ErrProvider, http.StatusInternalServerError, "Billing provider error"),
	}
}

type module struct {
	svc Service
}

// Router mounts the subscription endpoints:
//
//	POST /checkout   start a hosted checkout (session)
//	POST /cancel     cancel at period end (session)
//	GET  /           current subscription status (session)
//	GET  /plans      plan catalog
//	POST /webhook    provider notifications (signature)
//
// Example:
//
//	r.Mount("/subscription", subscription.Router(svc, log))
func Router(svc Service, log *slog.Logger) chi.Router {
	if svc == nil {
		panic("subscription module: service is required")
	}
	if log == nil {
		log = slog.Default()
	}
	m := &module{svc: svc}
	errs := handler.NewErrorHandler(log.With(logger.Component("subscription_http")), ErrorRules()...)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(session.RequireAuth)

		r.Post("/checkout", handler.Wrap(m.checkout,
			handler.WithBinder[CheckoutRequest](binder.JSON(binder.AllowUnknownFields())),
			handler.WithErrorHandler[CheckoutRequest](errs),
		))
		r.Post("/cancel", handler.Wrap(m.cancel,
			handler.WithErrorHandler[struct{}](errs),
		))
		r.Get("/", handler.Wrap(m.status,
			handler.WithErrorHandler[struct{}](errs),
		))
	})

	r.Get("/plans", handler.Wrap(m.plans,
		handler.WithErrorHandler[struct{}](errs),
	))
	r.Post("/webhook", handler.Wrap(m.webhook,
		handler.WithBinder[WebhookRequest](bindWebhook),
		handler.WithErrorHandler[WebhookRequest](errs),
	))

	return r
}

func (m *module) checkout(ctx handler.Context, req CheckoutRequest) handler.Response {
	res, err := m.svc.InitiateCheckout(ctx, req.PriceID, req.PlanName)
	if err != nil {
		return handler.Fail(err)
	}
	if handler.IsDataStar(ctx.Request()) {
		return handler.Redirect(res.URL)
	}
	return handler.JSON(CheckoutResponse{SessionID: res.SessionID, URL: res.URL})
}

func (m *module) cancel(ctx handler.Context, _ struct{}) handler.Response {
	res, err := m.svc.CancelSubscription(ctx)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(CancelResponse{Message: res.Message, WillEndOn: utc(&res.WillEndOn)})
}

func (m *module) status(ctx handler.Context, _ struct{}) handler.Response {
	res, err := m.svc.GetSubscriptionStatus(ctx)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(StatusResponse{
		Status:           res.Status.String(),
		Plan:             res.Plan,
		CurrentPeriodEnd: utc(res.CurrentPeriodEnd),
	})
}

func (m *module) plans(_ handler.Context, _ struct{}) handler.Response {
	return handler.JSON(toPlans(m.svc.Catalog()))
}

func (m *module) webhook(ctx handler.Context, req WebhookRequest) handler.Response {
	if err := m.svc.SyncFromWebhook(ctx, req.Payload, req.Signature); err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(WebhookResponse{Received: true})
}

// bindWebhook reads the raw body; signature checks need the exact bytes.
func bindWebhook(r *http.Request, v any) error {
	req, ok := v.(*WebhookRequest)
	if !ok {
		return fmt.Errorf("webhook binder: unexpected target %T", v)
	}

	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxWebhookSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.Join(binder.ErrBodyTooLarge, err)
		}
		return errors.Join(binder.ErrFailedToParseJSON, err)
	}
	req.Payload = body

	for _, h := range signatureHeaders {
		if sig := r.Header.Get(h); sig != "" {
			req.Signature = sig
			break
		}
	}
	return nil
}
