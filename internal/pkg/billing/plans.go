package billing

import (
	"github.com/daniarthurwidodo/next-crm/internal/pkg/env"
)

// Plan keys accepted by the checkout endpoint and stored on subscriptions.
const (
	PlanFree = "free"
	PlanPro  = "pro"

	// DefaultPlanName is used when a webhook payload carries no usable plan
	// hint at all.
	DefaultPlanName = "pro"
)

// Plan describes one purchasable tier.
type Plan struct {
	Key         string
	DisplayName string
	PriceEnvVar string
	priceIDDef  string
}

var plans = map[string]Plan{
	PlanFree: {
		Key:         PlanFree,
		DisplayName: "Start for Free",
		PriceEnvVar: "STRIPE_PRICE_FREE",
		priceIDDef:  "price_0",
	},
	PlanPro: {
		Key:         PlanPro,
		DisplayName: "Go Pro",
		PriceEnvVar: "STRIPE_PRICE_PRO",
		priceIDDef:  "price_1",
	},
}

// ValidPlan returns the plan for a checkout key, or false for anything the
// plan table doesn't know.
func ValidPlan(key string) (Plan, bool) {
	p, ok := plans[key]
	return p, ok
}

// PriceID resolves the Stripe price id for this plan, env-overridable so
// staging and production can point at different Stripe accounts.
func (p Plan) PriceID() string {
	return env.GetEnv(p.PriceEnvVar, p.priceIDDef)
}
