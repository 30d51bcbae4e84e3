package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"

	"github.com/daniarthurwidodo/next-crm/app/models"
	"github.com/daniarthurwidodo/next-crm/app/repository"
)

const fallbackPeriod = 30 * 24 * time.Hour

// Notifier is the fire-and-forget email boundary. Implementations never
// return errors; delivery failures must not affect webhook processing.
type Notifier interface {
	SendWelcome(to, name string)
	SendSubscriptionConfirmed(to, plan string)
	SendPaymentFailed(to, plan string, retryAt time.Time)
	SendSubscriptionCanceled(to, plan string, endsAt time.Time)
}

// Reconciler applies verified Stripe events to the local subscription state.
// Every handler is idempotent: replays of the same event converge on the
// same row because writes are absolute and keyed by the Stripe customer id.
type Reconciler struct {
	users repository.UserRepository
	subs  repository.SubscriptionRepository
	mail  Notifier
	now   func() time.Time
}

// NewReconciler wires a reconciler with its repositories and notifier.
func NewReconciler(users repository.UserRepository, subs repository.SubscriptionRepository, mail Notifier) *Reconciler {
	return &Reconciler{
		users: users,
		subs:  subs,
		mail:  mail,
		now:   time.Now,
	}
}

// HandleEvent dispatches one verified event. An error return means the
// caller should answer 500 so Stripe redelivers; business no-ops (unknown
// customer, unhandled type) return nil and are acknowledged.
func (r *Reconciler) HandleEvent(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session checkoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		return r.handleCheckoutCompleted(ctx, session)
	case "customer.subscription.updated":
		var sub subscriptionPayload
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return r.handleSubscriptionUpdated(ctx, sub)
	case "customer.subscription.deleted":
		var sub subscriptionPayload
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return r.handleSubscriptionDeleted(ctx, sub)
	case "invoice.payment_failed":
		var inv invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		return r.handlePaymentFailed(ctx, inv)
	default:
		log.Infof("[Billing] Ignoring unhandled event type %s (%s)", event.Type, event.ID)
		return nil
	}
}

// handleCheckoutCompleted provisions the buyer and activates their
// subscription. The buyer may not exist yet: hosted checkout is reachable
// without an account, so the webhook is where such users are first created.
func (r *Reconciler) handleCheckoutCompleted(ctx context.Context, session checkoutSession) error {
	email := session.email()
	if email == "" {
		return fmt.Errorf("checkout session %s has no customer email", session.ID)
	}
	if session.Customer == "" {
		return fmt.Errorf("checkout session %s has no customer id", session.ID)
	}

	user, err := r.users.GetByEmail(email)
	newUser := false
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("look up user %s: %w", email, err)
		}
		name := session.CustomerDetails.Name
		if name == "" {
			name = email
		}
		user, err = models.CreateProvisionedUser(name, email)
		if err != nil {
			return fmt.Errorf("build provisioned user: %w", err)
		}
		if err := r.users.Create(user); err != nil {
			return fmt.Errorf("create provisioned user %s: %w", email, err)
		}
		newUser = true
		log.Infof("[Billing] Provisioned user %s from checkout session %s", user.ID, session.ID)
	}

	plan := session.planName()
	if plan == "" {
		plan = DefaultPlanName
	}

	periodEnd := r.now().Add(fallbackPeriod)
	if session.ExpiresAt > 0 {
		periodEnd = time.Unix(session.ExpiresAt, 0)
	}

	sub := &models.Subscription{
		UserID:               user.ID,
		StripeCustomerID:     session.Customer,
		StripeSubscriptionID: session.Subscription,
		Status:               models.SubscriptionStatusActive,
		PlanName:             plan,
		CurrentPeriodEnd:     &periodEnd,
	}
	if err := r.subs.Upsert(sub); err != nil {
		return fmt.Errorf("upsert subscription for customer %s: %w", session.Customer, err)
	}

	if newUser {
		r.mail.SendWelcome(user.Email, user.Name)
	}
	r.mail.SendSubscriptionConfirmed(user.Email, plan)

	log.Infof("[Billing] Checkout completed: customer %s on plan %s (user %s)", session.Customer, plan, user.ID)
	return nil
}

func (r *Reconciler) handleSubscriptionUpdated(ctx context.Context, payload subscriptionPayload) error {
	if payload.Customer == "" {
		return fmt.Errorf("subscription %s has no customer id", payload.ID)
	}

	prevStatus, err := r.subs.GetStatusByCustomerID(payload.Customer)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Billing] Subscription update for unknown customer %s, ignoring", payload.Customer)
			return nil
		}
		return fmt.Errorf("read subscription status for customer %s: %w", payload.Customer, err)
	}

	status := models.NormalizeSubscriptionStatus(payload.Status)
	update := repository.SubscriptionUpdate{Status: &status}
	if payload.ID != "" {
		update.StripeSubscriptionID = &payload.ID
	}
	if plan := payload.planName(); plan != "" {
		update.PlanName = &plan
	}
	if payload.CurrentPeriodEnd > 0 {
		end := time.Unix(payload.CurrentPeriodEnd, 0)
		update.CurrentPeriodEnd = &end
	}

	if err := r.subs.UpdateByCustomerID(payload.Customer, update); err != nil {
		return fmt.Errorf("update subscription for customer %s: %w", payload.Customer, err)
	}

	if status == models.SubscriptionStatusActive && prevStatus != models.SubscriptionStatusActive {
		if sub, email := r.subscriberEmail(payload.Customer); email != "" {
			r.mail.SendSubscriptionConfirmed(email, sub.PlanName)
		}
	}

	log.Infof("[Billing] Subscription updated: customer %s -> %s", payload.Customer, status)
	return nil
}

func (r *Reconciler) handleSubscriptionDeleted(ctx context.Context, payload subscriptionPayload) error {
	if payload.Customer == "" {
		return fmt.Errorf("subscription %s has no customer id", payload.ID)
	}

	exists, err := r.subs.ExistsByCustomerID(payload.Customer)
	if err != nil {
		return fmt.Errorf("check subscription for customer %s: %w", payload.Customer, err)
	}
	if !exists {
		log.Warnf("[Billing] Subscription delete for unknown customer %s, ignoring", payload.Customer)
		return nil
	}

	status := models.SubscriptionStatusCanceled
	update := repository.SubscriptionUpdate{Status: &status}
	if payload.CurrentPeriodEnd > 0 {
		end := time.Unix(payload.CurrentPeriodEnd, 0)
		update.CurrentPeriodEnd = &end
	}
	if err := r.subs.UpdateByCustomerID(payload.Customer, update); err != nil {
		return fmt.Errorf("cancel subscription for customer %s: %w", payload.Customer, err)
	}

	if sub, email := r.subscriberEmail(payload.Customer); email != "" {
		endsAt := r.now()
		if sub.CurrentPeriodEnd != nil {
			endsAt = *sub.CurrentPeriodEnd
		}
		r.mail.SendSubscriptionCanceled(email, sub.PlanName, endsAt)
	}

	log.Infof("[Billing] Subscription canceled: customer %s", payload.Customer)
	return nil
}

func (r *Reconciler) handlePaymentFailed(ctx context.Context, inv invoicePayload) error {
	if inv.Customer == "" {
		return fmt.Errorf("invoice %s has no customer id", inv.ID)
	}

	exists, err := r.subs.ExistsByCustomerID(inv.Customer)
	if err != nil {
		return fmt.Errorf("check subscription for customer %s: %w", inv.Customer, err)
	}
	if !exists {
		log.Warnf("[Billing] Payment failure for unknown customer %s, ignoring", inv.Customer)
		return nil
	}

	// Plan stays untouched; the customer keeps their tier while Stripe
	// retries the charge.
	status := models.SubscriptionStatusPastDue
	if err := r.subs.UpdateByCustomerID(inv.Customer, repository.SubscriptionUpdate{Status: &status}); err != nil {
		return fmt.Errorf("mark subscription past_due for customer %s: %w", inv.Customer, err)
	}

	if sub, email := r.subscriberEmail(inv.Customer); email != "" {
		retryAt := r.now().Add(3 * 24 * time.Hour)
		if inv.NextPaymentAttempt > 0 {
			retryAt = time.Unix(inv.NextPaymentAttempt, 0)
		}
		r.mail.SendPaymentFailed(email, sub.PlanName, retryAt)
	}

	log.Warnf("[Billing] Payment failed: customer %s marked past_due (attempt %d)", inv.Customer, inv.AttemptCount)
	return nil
}

// subscriberEmail resolves the subscription row and its owner's address for
// notification purposes. Lookup failures only suppress the email.
func (r *Reconciler) subscriberEmail(stripeCustomerID string) (*models.Subscription, string) {
	sub, err := r.subs.GetByCustomerID(stripeCustomerID)
	if err != nil {
		log.Errorf("[Billing] Failed to load subscription for customer %s: %v", stripeCustomerID, err)
		return nil, ""
	}
	user, err := r.users.GetByID(sub.UserID)
	if err != nil {
		log.Errorf("[Billing] Failed to load user %s for customer %s: %v", sub.UserID, stripeCustomerID, err)
		return sub, ""
	}
	return sub, user.Email
}
