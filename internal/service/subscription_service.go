package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/util"
	"exam_prep_backend/pkg/logger"
)

// SubscriptionService lists plans and opens checkout sessions. Granting
// access happens in ProvisioningService once the gateway confirms
// payment.
type SubscriptionService struct {
	subs     *repository.SubscriptionRepository
	userSubs *repository.UserSubscriptionRepository
	orders   *repository.OrderRepository
	gateway  PaymentGateway
}

func NewSubscriptionService(
	subs *repository.SubscriptionRepository,
	userSubs *repository.UserSubscriptionRepository,
	orders *repository.OrderRepository,
	gateway PaymentGateway,
) *SubscriptionService {
	return &SubscriptionService{subs: subs, userSubs: userSubs, orders: orders, gateway: gateway}
}

func (s *SubscriptionService) ListPlans() ([]model.Subscription, error) {
	return s.subs.ListActive()
}

// UserSubscriptionView flags which grant is the current one.
type UserSubscriptionView struct {
	model.UserSubscription
	IsCurrent bool `json:"isCurrent"`
}

// ListMine returns the user's grants, newest expiry first. The current
// grant is the latest active unexpired one.
func (s *SubscriptionService) ListMine(userID string, now time.Time) ([]UserSubscriptionView, error) {
	grants, err := s.userSubs.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	views := make([]UserSubscriptionView, 0, len(grants))
	currentSeen := false
	for _, g := range grants {
		isCurrent := false
		if !currentSeen && g.IsCurrent(now) {
			isCurrent = true
			currentSeen = true
		}
		views = append(views, UserSubscriptionView{UserSubscription: g, IsCurrent: isCurrent})
	}
	return views, nil
}

// Order opens a checkout session for a plan and stores the pending
// order keyed by the gateway payment id. A user holding a current
// entitlement cannot order again until it expires or is canceled.
func (s *SubscriptionService) Order(ctx context.Context, user *model.User, subscriptionID, returnURL, description string, now time.Time) (*model.SubscriptionOrder, error) {
	plan, err := s.subs.FindByID(subscriptionID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, util.ErrSubscriptionInactive
	}

	active, err := s.userSubs.ActiveByUser(nil, user.ID, now)
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		return nil, util.ErrAlreadyHasSubscription
	}

	paymentID := fmt.Sprintf("sub-%s", model.GenerateUUID())
	confirmationURL, err := s.gateway.CreateTransaction(ctx, CheckoutRequest{
		OrderID:     paymentID,
		Amount:      plan.Price,
		Description: description,
		ReturnURL:   returnURL,
		User:        user,
	})
	if err != nil {
		logger.Log.Warn("checkout session failed",
			zap.String("user_id", user.ID), zap.String("subscription_id", plan.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", util.ErrPaymentGateway, err)
	}

	order := &model.SubscriptionOrder{
		PaymentID:       paymentID,
		UserID:          user.ID,
		SubscriptionID:  plan.ID,
		Amount:          plan.Price,
		Status:          model.OrderPending,
		ConfirmationURL: confirmationURL,
	}
	if err := s.orders.Create(order); err != nil {
		return nil, err
	}
	logger.Log.Info("subscription order opened",
		zap.String("user_id", user.ID), zap.String("payment_id", paymentID), zap.Int64("amount", plan.Price))
	order.Subscription = plan
	return order, nil
}

func (s *SubscriptionService) ListOrders(userID string) ([]model.SubscriptionOrder, error) {
	return s.orders.ListByUser(userID)
}

// Cancel revokes the user's current grant. The paid-for window is
// untouched; expires_at keeps its value so access runs out naturally.
func (s *SubscriptionService) Cancel(userID string, now time.Time) error {
	grant, err := s.userSubs.LatestUnexpired(userID, now)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return util.ErrNoActiveSubscription
		}
		return err
	}
	if grant.Status == model.SubscriptionCanceled || grant.CanceledAt != nil {
		return util.ErrAlreadyCanceled
	}

	affected, err := s.userSubs.Cancel(grant.ID, userID, now)
	if err != nil {
		return err
	}
	if affected == 0 {
		// Lost the race against another cancel.
		return util.ErrAlreadyCanceled
	}
	logger.Log.Info("subscription canceled", zap.String("user_id", userID), zap.String("grant_id", grant.ID))
	return nil
}
