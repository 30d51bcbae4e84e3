package controllers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/daniarthurwidodo/next-crm/internal/pkg/billing"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/env"
)

func setWebhookSecret(t *testing.T, secret string) {
	t.Helper()
	if env.Env == nil {
		env.Env = map[string]string{}
	}
	prev, had := env.Env["STRIPE_WEBHOOK_SECRET"]
	env.Env["STRIPE_WEBHOOK_SECRET"] = secret
	t.Cleanup(func() {
		if had {
			env.Env["STRIPE_WEBHOOK_SECRET"] = prev
		} else {
			delete(env.Env, "STRIPE_WEBHOOK_SECRET")
		}
	})
}

// stripeSignature builds a Stripe-Signature header the way the CLI signs
// payloads: v1 = HMAC-SHA256(secret, "<timestamp>.<payload>").
func stripeSignature(secret string, payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func newWebhookApp() *fiber.App {
	app := fiber.New()
	app.Post("/api/webhooks/stripe", HandleStripeWebhook)
	return app
}

func webhookBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":   "evt_test_1",
		"type": "customer.created",
		"data": map[string]any{"object": map[string]any{"id": "cus_1"}},
	})
	require.NoError(t, err)
	return body
}

func TestStripeWebhookMissingSignatureHeader(t *testing.T) {
	SetupBilling(nil, billing.NewReconciler(nil, nil, nil))
	t.Cleanup(func() { SetupBilling(nil, nil) })
	setWebhookSecret(t, "whsec_test")

	app := newWebhookApp()
	req := httptest.NewRequest(fiber.MethodPost, "/api/webhooks/stripe", bytes.NewReader(webhookBody(t)))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStripeWebhookMissingSecretIsConfigError(t *testing.T) {
	SetupBilling(nil, billing.NewReconciler(nil, nil, nil))
	t.Cleanup(func() { SetupBilling(nil, nil) })
	setWebhookSecret(t, "")

	app := newWebhookApp()
	body := webhookBody(t)
	req := httptest.NewRequest(fiber.MethodPost, "/api/webhooks/stripe", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", stripeSignature("whsec_other", body, time.Now()))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	SetupBilling(nil, billing.NewReconciler(nil, nil, nil))
	t.Cleanup(func() { SetupBilling(nil, nil) })
	setWebhookSecret(t, "whsec_test")

	app := newWebhookApp()
	body := webhookBody(t)

	cases := map[string]string{
		"wrong secret":  stripeSignature("whsec_other", body, time.Now()),
		"stale":         stripeSignature("whsec_test", body, time.Now().Add(-time.Hour)),
		"garbage":       "t=abc,v1=def",
		"tampered body": stripeSignature("whsec_test", []byte(`{"id":"evt_other"}`), time.Now()),
	}

	for name, sig := range cases {
		req := httptest.NewRequest(fiber.MethodPost, "/api/webhooks/stripe", bytes.NewReader(body))
		req.Header.Set("Stripe-Signature", sig)

		resp, err := app.Test(req, -1)
		require.NoError(t, err, name)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, name)
	}
}

func TestCreateCheckoutSessionReturnsURL(t *testing.T) {
	issuer := billing.NewCheckoutIssuerWithCreator(func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return &stripe.CheckoutSession{URL: "https://checkout.stripe.com/c/pay/cs_1"}, nil
	})
	SetupBilling(issuer, nil)
	t.Cleanup(func() { SetupBilling(nil, nil) })

	app := fiber.New()
	app.Post("/api/billing/checkout", HandleCreateCheckoutSession)

	req := httptest.NewRequest(fiber.MethodPost, "/api/billing/checkout", strings.NewReader(`{"plan":"pro"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_1", body["url"])
}

func TestCreateCheckoutSessionInvalidPlan(t *testing.T) {
	calls := 0
	issuer := billing.NewCheckoutIssuerWithCreator(func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		calls++
		return nil, nil
	})
	SetupBilling(issuer, nil)
	t.Cleanup(func() { SetupBilling(nil, nil) })

	app := fiber.New()
	app.Post("/api/billing/checkout", HandleCreateCheckoutSession)

	req := httptest.NewRequest(fiber.MethodPost, "/api/billing/checkout", strings.NewReader(`{"plan":"platinum"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, calls, "no provider session may be created for an invalid plan")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "invalid plan", body["error"])
}

func TestCreateCheckoutSessionStripeFailure(t *testing.T) {
	issuer := billing.NewCheckoutIssuerWithCreator(func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return nil, errors.New("stripe unavailable")
	})
	SetupBilling(issuer, nil)
	t.Cleanup(func() { SetupBilling(nil, nil) })

	app := fiber.New()
	app.Post("/api/billing/checkout", HandleCreateCheckoutSession)

	req := httptest.NewRequest(fiber.MethodPost, "/api/billing/checkout", strings.NewReader(`{"plan":"pro"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
