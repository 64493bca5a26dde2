package subscription

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BillingInterval represents the billing frequency for a subscription plan.
type BillingInterval string

const (
	BillingIntervalNone    BillingInterval = "none" // Free plans with no billing
	BillingIntervalMonthly BillingInterval = "monthly"
	BillingIntervalAnnual  BillingInterval = "annual"
)

// Money represents a monetary amount in the smallest currency unit.
// For example, $10.99 USD would be Amount: 1099, Currency: "USD".
type Money struct {
	Amount   int64  `yaml:"amount"`   // Amount in smallest currency unit (cents for USD)
	Currency string `yaml:"currency"` // ISO 4217 currency code
}

// Plan is a purchasable plan. PriceID is the billing provider's price id.
type Plan struct {
	PriceID     string          `yaml:"price_id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Interval    BillingInterval `yaml:"interval"`
	Price       Money           `yaml:"price"`
	TrialDays   int             `yaml:"trial_days"`
}

// Catalog is the whitelist of purchasable prices.
type Catalog struct {
	plans   []Plan
	byPrice map[string]Plan
}

// NewCatalog validates plans and builds a catalog preserving their order.
func NewCatalog(plans ...Plan) (*Catalog, error) {
	c := &Catalog{
		plans:   make([]Plan, 0, len(plans)),
		byPrice: make(map[string]Plan, len(plans)),
	}
	for i, p := range plans {
		if p.PriceID == "" {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("plan #%d has no price_id", i))
		}
		if p.Name == "" {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("plan %s has no name", p.PriceID))
		}
		if p.TrialDays < 0 {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("plan %s has negative trial days: %d", p.PriceID, p.TrialDays))
		}
		if _, dup := c.byPrice[p.PriceID]; dup {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("duplicate price_id %s", p.PriceID))
		}
		if p.Interval == "" {
			p.Interval = BillingIntervalMonthly
		}
		c.plans = append(c.plans, p)
		c.byPrice[p.PriceID] = p
	}
	return c, nil
}

// ParseCatalog reads a YAML document of the form:
//
//	plans:
//	  - price_id: price_pro_monthly
//	    name: Pro
//	    interval: monthly
//	    price: {amount: 1900, currency: USD}
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalog, err)
	}
	return NewCatalog(doc.Plans...)
}

// LoadCatalog reads and parses the YAML catalog at path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalog, err)
	}
	return ParseCatalog(data)
}

// Lookup returns the plan for priceID.
func (c *Catalog) Lookup(priceID string) (Plan, bool) {
	if c == nil {
		return Plan{}, false
	}
	p, ok := c.byPrice[priceID]
	return p, ok
}

// Plans returns the plans in declaration order.
func (c *Catalog) Plans() []Plan {
	if c == nil {
		return nil
	}
	out := make([]Plan, len(c.plans))
	copy(out, c.plans)
	return out
}
