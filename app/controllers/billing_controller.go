package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/daniarthurwidodo/next-crm/app/models"
	"github.com/daniarthurwidodo/next-crm/app/repository"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/billing"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/env"
)

var (
	checkoutIssuer    *billing.CheckoutIssuer
	billingReconciler *billing.Reconciler
)

// SetupBilling wires the billing handlers; called once from main after the
// repositories and mail queue exist.
func SetupBilling(issuer *billing.CheckoutIssuer, reconciler *billing.Reconciler) {
	checkoutIssuer = issuer
	billingReconciler = reconciler
}

type checkoutRequest struct {
	Plan string `json:"plan"`
}

// HandleCreateCheckoutSession issues a hosted Stripe Checkout session and
// returns its redirect URL.
func HandleCreateCheckoutSession(c *fiber.Ctx) error {
	if checkoutIssuer == nil {
		return internalError(c, errors.New("billing not configured"))
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	url, err := checkoutIssuer.IssueSession(req.Plan)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidPlan) {
			return badRequest(c, "invalid plan")
		}
		log.Errorf("[Billing] Checkout session creation failed: %v", err)
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"url": url})
}

// HandleStripeWebhook is the Stripe event entrypoint. Signature verification
// is the authentication mechanism for this route; it runs before anything
// else touches the payload.
func HandleStripeWebhook(c *fiber.Ctx) error {
	if billingReconciler == nil {
		return internalError(c, errors.New("billing not configured"))
	}

	sigHeader := c.Get("Stripe-Signature")
	if sigHeader == "" {
		return badRequest(c, "missing stripe signature")
	}

	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	if secret == "" {
		log.Error("[Billing] STRIPE_WEBHOOK_SECRET is not configured")
		return internalError(c, errors.New("webhook secret not configured"))
	}

	event, err := webhook.ConstructEventWithOptions(c.Body(), sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return badRequest(c, "invalid stripe signature")
	}

	events := repository.GetGlobalFactory().GetWebhookEventRepository()
	created, record, err := events.CreateIfNotExists(&models.BillingWebhookEvent{
		StripeEventID: event.ID,
		EventType:     string(event.Type),
		PayloadJSON:   string(c.Body()),
	})
	if err != nil {
		return internalError(c, err)
	}
	if !created {
		// At-least-once delivery: replays of a successfully processed event
		// are acknowledged without reprocessing. A retry after a failure
		// runs the reconciler again.
		if record.ProcessedAt != nil && record.ProcessingError == "" {
			log.Infof("[Billing] Duplicate event %s, acknowledging", event.ID)
			return c.JSON(fiber.Map{"received": true})
		}
	}

	if err := billingReconciler.HandleEvent(c.Context(), &event); err != nil {
		log.Errorf("[Billing] Event %s (%s) failed: %v", event.ID, event.Type, err)
		if markErr := events.MarkProcessed(record.ID, err.Error()); markErr != nil {
			log.Errorf("[Billing] Failed to record processing error for %s: %v", event.ID, markErr)
		}
		return internalError(c, err)
	}

	if err := events.MarkProcessed(record.ID, ""); err != nil {
		log.Errorf("[Billing] Failed to mark event %s processed: %v", event.ID, err)
	}

	return c.JSON(fiber.Map{"received": true})
}
