package repository

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/daniarthurwidodo/next-crm/app/models"
)

// subscriptionRepository implements SubscriptionRepository on GORM.
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a subscription repository backed by GORM.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Upsert inserts or replaces the subscription row for its Stripe customer id.
// All assigned columns are absolute values, which makes webhook redelivery
// naturally idempotent.
func (r *subscriptionRepository) Upsert(sub *models.Subscription) error {
	if strings.TrimSpace(sub.StripeCustomerID) == "" {
		return errors.New("stripe customer id is required")
	}

	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "stripe_customer_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"stripe_subscription_id",
			"status",
			"plan_name",
			"current_period_end",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("stripe_customer_id = ?", sub.StripeCustomerID).First(sub).Error
}

// UpdateByCustomerID applies a partial update; only supplied fields are
// touched and updated_at is always bumped.
func (r *subscriptionRepository) UpdateByCustomerID(stripeCustomerID string, update SubscriptionUpdate) error {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if update.Status != nil {
		updates["status"] = *update.Status
	}
	if update.PlanName != nil {
		updates["plan_name"] = *update.PlanName
	}
	if update.CurrentPeriodEnd != nil {
		updates["current_period_end"] = *update.CurrentPeriodEnd
	}
	if update.StripeSubscriptionID != nil {
		updates["stripe_subscription_id"] = *update.StripeSubscriptionID
	}

	return r.db.Model(&models.Subscription{}).
		Where("stripe_customer_id = ?", stripeCustomerID).
		Updates(updates).Error
}

// GetByCustomerID retrieves the subscription for a Stripe customer.
func (r *subscriptionRepository) GetByCustomerID(stripeCustomerID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("stripe_customer_id = ?", stripeCustomerID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetLatestByUserID returns the most recently created subscription for a user.
func (r *subscriptionRepository) GetLatestByUserID(userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ExistsByCustomerID reports whether a subscription row exists for a customer.
func (r *subscriptionRepository) ExistsByCustomerID(stripeCustomerID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Subscription{}).
		Where("stripe_customer_id = ?", stripeCustomerID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetStatusByCustomerID returns just the status column for a customer.
func (r *subscriptionRepository) GetStatusByCustomerID(stripeCustomerID string) (string, error) {
	var statuses []string
	err := r.db.Model(&models.Subscription{}).
		Where("stripe_customer_id = ?", stripeCustomerID).
		Limit(1).
		Pluck("status", &statuses).Error
	if err != nil {
		return "", err
	}
	if len(statuses) == 0 {
		return "", gorm.ErrRecordNotFound
	}
	return statuses[0], nil
}
