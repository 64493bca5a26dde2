package subscription

import (
	"time"

	subsvc "github.com/dmitrymomot/backdrop/pkg/subscription"
)

// CheckoutRequest is the body of POST /checkout.
type CheckoutRequest struct {
	PriceID  string `json:"priceId"`
	PlanName string `json:"planName"`
}

type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CancelResponse reports when access ends. WillEndOn is null when the
// provider did not report a period end.
type CancelResponse struct {
	Message   string     `json:"message"`
	WillEndOn *time.Time `json:"willEndOn"`
}

type StatusResponse struct {
	Status           string     `json:"status"`
	Plan             string     `json:"plan"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd"`
}

type PlanResponse struct {
	PriceID     string `json:"priceId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Interval    string `json:"interval"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency,omitempty"`
	TrialDays   int    `json:"trialDays,omitempty"`
}

type PlansResponse struct {
	Plans []PlanResponse `json:"plans"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

// WebhookRequest is the raw provider notification.
type WebhookRequest struct {
	Payload   []byte
	Signature string
}

func utc(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC().Truncate(time.Second)
	return &u
}

func toPlans(c *subsvc.Catalog) PlansResponse {
	plans := c.Plans()
	out := PlansResponse{Plans: make([]PlanResponse, 0, len(plans))}
	for _, p := range plans {
		out.Plans = append(out.Plans, PlanResponse{
			PriceID:     p.PriceID,
			Name:        p.Name,
			Description: p.Description,
			Interval:    string(p.Interval),
			Amount:      p.Price.Amount,
			Currency:    p.Price.Currency,
			TrialDays:   p.TrialDays,
		})
	}
	return out
}
