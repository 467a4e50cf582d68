package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
)

type SubscriptionRepository struct {
	DB *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{DB: db}
}

func (r *SubscriptionRepository) Create(sub *model.Subscription) error {
	return r.DB.Create(sub).Error
}

func (r *SubscriptionRepository) FindByID(id string) (*model.Subscription, error) {
	var sub model.Subscription
	if err := r.DB.First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) Update(sub *model.Subscription) error {
	return r.DB.Save(sub).Error
}

func (r *SubscriptionRepository) ListActive() ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.DB.Where("is_active = ?", true).Order("price").Find(&subs).Error
	return subs, err
}

type UserSubscriptionRepository struct {
	DB *gorm.DB
}

func NewUserSubscriptionRepository(db *gorm.DB) *UserSubscriptionRepository {
	return &UserSubscriptionRepository{DB: db}
}

func (r *UserSubscriptionRepository) Create(tx *gorm.DB, us *model.UserSubscription) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Create(us).Error
}

func (r *UserSubscriptionRepository) ListByUser(userID string) ([]model.UserSubscription, error) {
	var subs []model.UserSubscription
	err := r.DB.Preload("Subscription").
		Where("user_id = ?", userID).
		Order("expires_at DESC").
		Find(&subs).Error
	return subs, err
}

// ActiveByUser returns the user's unexpired active grants, newest
// expiry first; the head is the "current" subscription.
func (r *UserSubscriptionRepository) ActiveByUser(tx *gorm.DB, userID string, now time.Time) ([]model.UserSubscription, error) {
	if tx == nil {
		tx = r.DB
	}
	var subs []model.UserSubscription
	err := tx.Preload("Subscription").
		Where("user_id = ? AND status = ? AND expires_at > ?", userID, model.SubscriptionActive, now).
		Order("expires_at DESC").
		Find(&subs).Error
	return subs, err
}

// LatestUnexpired returns the user's newest unexpired grant regardless
// of status, so cancellation can tell "already canceled" from "nothing
// to cancel".
func (r *UserSubscriptionRepository) LatestUnexpired(userID string, now time.Time) (*model.UserSubscription, error) {
	var us model.UserSubscription
	err := r.DB.Preload("Subscription").
		Where("user_id = ? AND expires_at > ?", userID, now).
		Order("expires_at DESC").
		First(&us).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &us, nil
}

// ActiveUserIDs returns users holding an unexpired active grant of any
// of the given plans.
func (r *UserSubscriptionRepository) ActiveUserIDs(subscriptionIDs []string, now time.Time) ([]string, error) {
	if len(subscriptionIDs) == 0 {
		return nil, nil
	}
	var ids []string
	err := r.DB.Model(&model.UserSubscription{}).
		Where("subscription_id IN ? AND status = ? AND expires_at > ?", subscriptionIDs, model.SubscriptionActive, now).
		Distinct().
		Pluck("user_id", &ids).Error
	return ids, err
}

// FindRenewable locks the user's latest active grant of the plan for a
// renewal extension.
func (r *UserSubscriptionRepository) FindRenewable(tx *gorm.DB, userID, subscriptionID string) (*model.UserSubscription, error) {
	var us model.UserSubscription
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND subscription_id = ? AND status = ?", userID, subscriptionID, model.SubscriptionActive).
		Order("expires_at DESC").
		First(&us).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &us, nil
}

func (r *UserSubscriptionRepository) Save(tx *gorm.DB, us *model.UserSubscription) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Save(us).Error
}

// Cancel marks an active grant canceled; RowsAffected is 0 when it was
// already canceled or belongs to someone else.
func (r *UserSubscriptionRepository) Cancel(id, userID string, at time.Time) (int64, error) {
	res := r.DB.Model(&model.UserSubscription{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, model.SubscriptionActive).
		Updates(map[string]interface{}{"status": model.SubscriptionCanceled, "canceled_at": at})
	return res.RowsAffected, res.Error
}

type OrderRepository struct {
	DB *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{DB: db}
}

func (r *OrderRepository) Create(order *model.SubscriptionOrder) error {
	return r.DB.Create(order).Error
}

// LockByPaymentID fetches the order under FOR UPDATE so concurrent
// webhook deliveries serialize on it.
func (r *OrderRepository) LockByPaymentID(tx *gorm.DB, paymentID string) (*model.SubscriptionOrder, error) {
	var order model.SubscriptionOrder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Subscription").
		First(&order, "payment_id = ?", paymentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) Save(tx *gorm.DB, order *model.SubscriptionOrder) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Save(order).Error
}

func (r *OrderRepository) ListByUser(userID string) ([]model.SubscriptionOrder, error) {
	var orders []model.SubscriptionOrder
	err := r.DB.Preload("Subscription").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}
