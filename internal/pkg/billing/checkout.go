package billing

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/daniarthurwidodo/next-crm/internal/pkg/env"
)

// ErrInvalidPlan is returned for plan keys outside the plan table, before
// any request reaches Stripe.
var ErrInvalidPlan = errors.New("invalid plan")

// sessionCreator matches checkout/session.New; tests inject their own.
type sessionCreator func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// CheckoutIssuer creates hosted Stripe Checkout sessions for the plan table.
type CheckoutIssuer struct {
	create sessionCreator
}

// NewCheckoutIssuer returns an issuer backed by the live Stripe client. The
// package-level stripe.Key must be set before the first call.
func NewCheckoutIssuer() *CheckoutIssuer {
	return &CheckoutIssuer{create: session.New}
}

// NewCheckoutIssuerWithCreator returns an issuer with a custom session
// creator, used by tests.
func NewCheckoutIssuerWithCreator(create sessionCreator) *CheckoutIssuer {
	return &CheckoutIssuer{create: create}
}

// IssueSession creates a subscription-mode checkout session for the plan key
// and returns the hosted redirect URL. Unknown keys fail with ErrInvalidPlan
// without touching Stripe.
func (ci *CheckoutIssuer) IssueSession(planKey string) (string, error) {
	plan, ok := ValidPlan(planKey)
	if !ok {
		return "", ErrInvalidPlan
	}

	base := env.AppBaseURL()
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(plan.PriceID()),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:          stripe.String(base + "/dashboard?checkout=success"),
		CancelURL:           stripe.String(base + "/pricing?checkout=cancelled"),
		AllowPromotionCodes: stripe.Bool(true),
	}
	params.AddMetadata("plan", plan.Key)

	sess, err := ci.create(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session for plan %s: %w", plan.Key, err)
	}

	return sess.URL, nil
}
