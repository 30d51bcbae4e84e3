package models

import "time"

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusUnknown  = "unknown"
)

// Subscription mirrors a Stripe subscription for a local user. There is
// exactly one row per Stripe customer id; webhook events mutate it in place
// and cancellation flips status instead of deleting the row.
type Subscription struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UserID               string     `gorm:"type:varchar(36);not null;index" json:"user_id"`
	StripeCustomerID     string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"stripe_customer_id"`
	StripeSubscriptionID string     `gorm:"type:varchar(191);not null;default:''" json:"stripe_subscription_id"`
	Status               string     `gorm:"type:varchar(32);not null;default:'unknown';index" json:"status"`
	PlanName             string     `gorm:"type:varchar(100);not null;default:''" json:"plan_name"`
	CurrentPeriodEnd     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName pins the table so GORM and the SQL migrations agree.
func (Subscription) TableName() string {
	return "user_subscriptions"
}

// IsKnownSubscriptionStatus reports whether Stripe sent a status we track.
func IsKnownSubscriptionStatus(status string) bool {
	switch status {
	case SubscriptionStatusActive, SubscriptionStatusPastDue, SubscriptionStatusCanceled:
		return true
	default:
		return false
	}
}

// NormalizeSubscriptionStatus maps a raw Stripe status onto the local enum.
// Stripe statuses outside the tracked set (trialing, incomplete, unpaid, ...)
// collapse to unknown rather than failing the webhook.
func NormalizeSubscriptionStatus(status string) string {
	if IsKnownSubscriptionStatus(status) {
		return status
	}
	return SubscriptionStatusUnknown
}
