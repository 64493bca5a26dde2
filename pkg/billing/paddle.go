package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for Paddle billing provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

type paddleCustomers interface {
	CreateCustomer(ctx context.Context, req *paddle.CreateCustomerRequest) (*paddle.Customer, error)
}

type paddleTransactions interface {
	CreateTransaction(ctx context.Context, req *paddle.CreateTransactionRequest) (*paddle.Transaction, error)
}

type paddleSubscriptions interface {
	CancelSubscription(ctx context.Context, req *paddle.CancelSubscriptionRequest) (*paddle.Subscription, error)
}

type webhookVerifier interface {
	Verify(req *http.Request) (bool, error)
}

// PaddleProvider implements Provider for Paddle Billing. Checkout is
// transaction based; cancellation is scheduled for the next billing period.
type PaddleProvider struct {
	customers     paddleCustomers
	transactions  paddleTransactions
	subscriptions paddleSubscriptions
	verifier      webhookVerifier
}

// NewPaddleProvider creates a new Paddle billing provider.
func NewPaddleProvider(cfg PaddleConfig, opts ...paddle.Option) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey, opts...)
	case "production", "":
		client, err = paddle.New(cfg.APIKey, opts...)
	default:
		return nil, errors.Join(ErrInvalidEnvironment, fmt.Errorf("paddle environment %q", cfg.Environment))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleProvider{
		customers:     client.CustomersClient,
		transactions:  client.TransactionsClient,
		subscriptions: client.SubscriptionsClient,
		verifier:      paddle.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

func (p *PaddleProvider) Name() string { return "paddle" }

// CreateCustomer creates a Paddle customer. Paddle has no idempotency keys;
// the key is kept in custom data for traceability.
func (p *PaddleProvider) CreateCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	data := customData(req.Metadata)
	if req.IdempotencyKey != "" {
		data["idempotency_key"] = req.IdempotencyKey
	}

	c, err := p.customers.CreateCustomer(ctx, &paddle.CreateCustomerRequest{
		Email:      req.Email,
		CustomData: data,
	})
	if err != nil {
		return "", errors.Join(ErrProvider, fmt.Errorf("paddle create customer: %w", err))
	}
	return c.ID, nil
}

// CreateCheckoutSession creates a transaction whose checkout URL hosts the
// payment. Paddle has no cancel URL; CancelURL is ignored.
func (p *PaddleProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.PriceID == "" {
		return nil, errors.Join(ErrProvider, ErrMissingPriceID)
	}
	if req.CustomerID == "" {
		return nil, errors.Join(ErrProvider, ErrMissingCustomerID)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	transactionReq := &paddle.CreateTransactionRequest{
		Items:      []paddle.CreateTransactionItems{*item},
		CustomerID: paddle.PtrTo(req.CustomerID),
		CustomData: customData(req.Metadata),
	}
	if req.SuccessURL != "" {
		transactionReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	transaction, err := p.transactions.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return nil, errors.Join(ErrProvider, fmt.Errorf("paddle create transaction: %w", err))
	}
	if transaction.Checkout == nil || transaction.Checkout.URL == nil || *transaction.Checkout.URL == "" {
		return nil, errors.Join(ErrProvider, ErrNoCheckoutURL)
	}

	return &CheckoutSession{
		ID:  transaction.ID,
		URL: *transaction.Checkout.URL,
	}, nil
}

// UpdateSubscription schedules cancellation at the end of the current
// billing period. Undoing a scheduled cancellation is not supported.
func (p *PaddleProvider) UpdateSubscription(ctx context.Context, subscriptionID string, upd SubscriptionUpdate) (*SubscriptionState, error) {
	if subscriptionID == "" {
		return nil, errors.Join(ErrProvider, ErrMissingSubscriptionID)
	}
	if !upd.CancelAtPeriodEnd {
		return nil, errors.Join(ErrProvider, ErrUnsupportedUpdate)
	}

	sub, err := p.subscriptions.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: subscriptionID,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromNextBillingPeriod),
	})
	if err != nil {
		return nil, errors.Join(ErrProvider, fmt.Errorf("paddle cancel subscription: %w", err))
	}

	state := &SubscriptionState{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.ScheduledChange != nil && string(sub.ScheduledChange.Action) == "cancel",
	}
	if sub.CurrentBillingPeriod != nil {
		state.CurrentPeriodEnd = parsePaddleTime(sub.CurrentBillingPeriod.EndsAt)
	} else if sub.ScheduledChange != nil {
		state.CurrentPeriodEnd = parsePaddleTime(sub.ScheduledChange.EffectiveAt)
	}
	return state, nil
}

type paddleNotification struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

type paddleEntity struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	CustomerID     string         `json:"customer_id"`
	SubscriptionID string         `json:"subscription_id"`
	CustomData     map[string]any `json:"custom_data"`
	Items          []struct {
		PriceID string `json:"price_id"`
		Price   *struct {
			ID string `json:"id"`
		} `json:"price"`
	} `json:"items"`
	CurrentBillingPeriod *struct {
		EndsAt string `json:"ends_at"`
	} `json:"current_billing_period"`
	ScheduledChange *struct {
		Action string `json:"action"`
	} `json:"scheduled_change"`
}

// ParseWebhook validates the Paddle-Signature header and parses the
// notification.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Join(ErrProvider, err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrProvider, ErrWebhookVerificationFailed, err)
	}
	if !valid {
		return nil, errors.Join(ErrProvider, ErrWebhookVerificationFailed)
	}

	var n paddleNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, errors.Join(ErrProvider, ErrInvalidWebhookPayload, err)
	}

	event := &Event{
		ID:            n.EventID,
		Type:          EventUnknown,
		ProviderEvent: n.EventType,
	}

	var data paddleEntity
	if len(n.Data) > 0 {
		if err := json.Unmarshal(n.Data, &data); err != nil {
			return nil, errors.Join(ErrProvider, ErrInvalidWebhookPayload, err)
		}
	}
	event.CustomerID = data.CustomerID
	event.Metadata = stringMetadata(data.CustomData)
	if len(data.Items) > 0 {
		event.PriceID = data.Items[0].PriceID
		if data.Items[0].Price != nil && data.Items[0].Price.ID != "" {
			event.PriceID = data.Items[0].Price.ID
		}
	}

	switch {
	case n.EventType == "transaction.completed":
		if data.SubscriptionID == "" {
			return event, nil
		}
		event.Type = EventCheckoutCompleted
		event.SubscriptionID = data.SubscriptionID
		event.Status = "active"

	case n.EventType == "transaction.payment_failed":
		event.Type = EventPaymentFailed
		event.SubscriptionID = data.SubscriptionID

	case strings.HasPrefix(n.EventType, "subscription."):
		event.Type = EventSubscriptionUpdated
		if n.EventType == "subscription.canceled" {
			event.Type = EventSubscriptionCanceled
		}
		event.SubscriptionID = data.ID
		event.Status = data.Status
		event.CancelAtPeriodEnd = data.ScheduledChange != nil && data.ScheduledChange.Action == "cancel"
		if data.CurrentBillingPeriod != nil {
			if t := parsePaddleTime(data.CurrentBillingPeriod.EndsAt); !t.IsZero() {
				event.CurrentPeriodEnd = &t
			}
		}
	}

	return event, nil
}

func customData(metadata map[string]string) paddle.CustomData {
	data := make(paddle.CustomData, len(metadata))
	for k, v := range metadata {
		data[k] = v
	}
	return data
}

func stringMetadata(data map[string]any) map[string]string {
	if len(data) == 0 {
		return nil
	}
	out := make(map[string]string, len(data))
	for k, v := range data {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func parsePaddleTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

var _ Provider = (*PaddleProvider)(nil)
