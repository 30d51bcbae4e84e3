package repository

import (
	"time"

	"github.com/daniarthurwidodo/next-crm/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id string) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
}

// SubscriptionUpdate carries the optional fields of a partial subscription
// update. Only non-nil fields are written; updated_at is always bumped.
type SubscriptionUpdate struct {
	Status               *string
	PlanName             *string
	CurrentPeriodEnd     *time.Time
	StripeSubscriptionID *string
}

// SubscriptionRepository defines single-row operations keyed by the Stripe
// customer id. Each webhook event touches exactly one row, so no multi-row
// transactions exist here.
type SubscriptionRepository interface {
	Upsert(sub *models.Subscription) error
	UpdateByCustomerID(stripeCustomerID string, update SubscriptionUpdate) error
	GetByCustomerID(stripeCustomerID string) (*models.Subscription, error)
	GetLatestByUserID(userID string) (*models.Subscription, error)
	ExistsByCustomerID(stripeCustomerID string) (bool, error)
	GetStatusByCustomerID(stripeCustomerID string) (string, error)
}

// WebhookEventRepository persists received Stripe events for deduplication.
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkProcessed(id uint, processingError string) error
}

// Repositories bundles all repository implementations
type Repositories struct {
	User         UserRepository
	Subscription SubscriptionRepository
	WebhookEvent WebhookEventRepository
}
