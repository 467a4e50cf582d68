package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
)

func newSubscriptionService(f *fixture, gateway PaymentGateway) *SubscriptionService {
	if gateway == nil {
		gateway = &stubGateway{}
	}
	return NewSubscriptionService(f.subs, f.userSubs, f.orders, gateway)
}

func TestOrderOpensCheckout(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	user := f.createUser(t)
	plan := f.createPlan(t, true, 3)
	svc := newSubscriptionService(f, nil)

	order, err := svc.Order(context.Background(), user, plan.ID, "https://shop.example/return", "Full course", now)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, order.Status)
	assert.Equal(t, plan.Price, order.Amount)
	assert.True(t, strings.HasPrefix(order.PaymentID, "sub-"))
	assert.Contains(t, order.ConfirmationURL, order.PaymentID)

	orders, err := svc.ListOrders(user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestOrderInactivePlan(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t)
	plan := f.createPlan(t, true, 3)
	plan.IsActive = false
	require.NoError(t, f.subs.Update(plan))

	_, err := newSubscriptionService(f, nil).Order(context.Background(), user, plan.ID, "", "", time.Now())
	assert.ErrorIs(t, err, util.ErrSubscriptionInactive)
}

func TestOrderRejectsExistingSubscription(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	user := f.createUser(t)
	plan := f.createPlan(t, true, 3)
	f.grantPlan(t, user, plan, now.AddDate(0, 2, 0))

	_, err := newSubscriptionService(f, nil).Order(context.Background(), user, plan.ID, "", "", now)
	assert.ErrorIs(t, err, util.ErrAlreadyHasSubscription)

	orders, err := f.orders.ListByUser(user.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderExpiredGrantAllowsReorder(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	user := f.createUser(t)
	plan := f.createPlan(t, true, 3)
	f.grantPlan(t, user, plan, now.AddDate(0, -1, 0))

	_, err := newSubscriptionService(f, nil).Order(context.Background(), user, plan.ID, "", "", now)
	require.NoError(t, err)
}

func TestOrderGatewayFailure(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t)
	plan := f.createPlan(t, true, 3)
	gateway := &stubGateway{createErr: errors.New("connection refused")}

	_, err := newSubscriptionService(f, gateway).Order(context.Background(), user, plan.ID, "", "", time.Now())
	assert.ErrorIs(t, err, util.ErrPaymentGateway)

	// Nothing half-created.
	orders, err := f.orders.ListByUser(user.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestListMineMarksCurrent(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	user := f.createUser(t)
	plan := f.createPlan(t, true, 3)

	expired := f.grantPlan(t, user, plan, now.AddDate(0, -1, 0))
	current := f.grantPlan(t, user, plan, now.AddDate(0, 2, 0))

	views, err := newSubscriptionService(f, nil).ListMine(user.ID, now)
	require.NoError(t, err)
	require.Len(t, views, 2)

	byID := map[string]UserSubscriptionView{}
	for _, v := range views {
		byID[v.ID] = v
	}
	assert.True(t, byID[current.ID].IsCurrent)
	assert.False(t, byID[expired.ID].IsCurrent)
}

func TestCancelSubscription(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	user := f.createUser(t)
	other := f.createUser(t)
	plan := f.createPlan(t, true, 3)
	grant := f.grantPlan(t, user, plan, now.AddDate(0, 2, 0))

	svc := newSubscriptionService(f, nil)

	// Nothing to cancel for a user without a grant.
	assert.ErrorIs(t, svc.Cancel(other.ID, now), util.ErrNoActiveSubscription)

	require.NoError(t, svc.Cancel(user.ID, now))

	var fresh model.UserSubscription
	require.NoError(t, f.db.First(&fresh, "id = ?", grant.ID).Error)
	assert.Equal(t, model.SubscriptionCanceled, fresh.Status)
	require.NotNil(t, fresh.CanceledAt)

	// The paid-for window stays as it was.
	assert.WithinDuration(t, grant.ExpiresAt, fresh.ExpiresAt, time.Second)

	assert.ErrorIs(t, svc.Cancel(user.ID, now), util.ErrAlreadyCanceled)

	// canceled_at is written exactly once.
	var again model.UserSubscription
	require.NoError(t, f.db.First(&again, "id = ?", grant.ID).Error)
	assert.Equal(t, fresh.CanceledAt.Unix(), again.CanceledAt.Unix())
}

func TestListPlansOnlyActive(t *testing.T) {
	f := newFixture(t)
	f.createPlan(t, true, 3)
	inactive := f.createPlan(t, false, 1)
	inactive.IsActive = false
	require.NoError(t, f.subs.Update(inactive))

	plans, err := newSubscriptionService(f, nil).ListPlans()
	require.NoError(t, err)
	require.Len(t, plans, 1)
}
