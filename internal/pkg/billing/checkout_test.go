package billing

import (
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v82"
)

func TestValidPlan(t *testing.T) {
	tests := []struct {
		key  string
		ok   bool
		name string
	}{
		{key: "free", ok: true, name: "Start for Free"},
		{key: "pro", ok: true, name: "Go Pro"},
		{key: "enterprise", ok: false},
		{key: "", ok: false},
		{key: "PRO", ok: false},
	}

	for _, tt := range tests {
		plan, ok := ValidPlan(tt.key)
		if ok != tt.ok {
			t.Errorf("ValidPlan(%q) ok = %v, want %v", tt.key, ok, tt.ok)
			continue
		}
		if ok && plan.DisplayName != tt.name {
			t.Errorf("ValidPlan(%q) display name = %q, want %q", tt.key, plan.DisplayName, tt.name)
		}
	}
}

func TestIssueSessionReturnsHostedURL(t *testing.T) {
	var captured *stripe.CheckoutSessionParams
	issuer := NewCheckoutIssuerWithCreator(func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		captured = params
		return &stripe.CheckoutSession{URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
	})

	url, err := issuer.IssueSession("pro")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if url != "https://checkout.stripe.com/c/pay/cs_test_1" {
		t.Errorf("unexpected url %q", url)
	}

	if captured == nil {
		t.Fatal("creator was not called")
	}
	if got := stripe.StringValue(captured.Mode); got != string(stripe.CheckoutSessionModeSubscription) {
		t.Errorf("expected subscription mode, got %q", got)
	}
	if len(captured.LineItems) != 1 || stripe.Int64Value(captured.LineItems[0].Quantity) != 1 {
		t.Error("expected a single line item with quantity 1")
	}
	if captured.Metadata["plan"] != "pro" {
		t.Errorf("expected plan metadata, got %v", captured.Metadata)
	}
	if !stripe.BoolValue(captured.AllowPromotionCodes) {
		t.Error("expected promotion codes allowed")
	}
}

func TestIssueSessionRejectsUnknownPlanWithoutStripeCall(t *testing.T) {
	calls := 0
	issuer := NewCheckoutIssuerWithCreator(func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		calls++
		return nil, nil
	})

	_, err := issuer.IssueSession("platinum")
	if !errors.Is(err, ErrInvalidPlan) {
		t.Fatalf("expected ErrInvalidPlan, got %v", err)
	}
	if calls != 0 {
		t.Errorf("creator must not be called for invalid plan, got %d calls", calls)
	}
}

func TestIssueSessionPropagatesStripeFailure(t *testing.T) {
	issuer := NewCheckoutIssuerWithCreator(func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return nil, errors.New("upstream unavailable")
	})

	_, err := issuer.IssueSession("pro")
	if err == nil {
		t.Fatal("expected error from stripe failure")
	}
	if errors.Is(err, ErrInvalidPlan) {
		t.Error("stripe failure must not look like an invalid plan")
	}
}
