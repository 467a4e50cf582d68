package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
)

type stubGateway struct {
	createErr error
	verifyErr error
}

func (g *stubGateway) CreateTransaction(_ context.Context, req CheckoutRequest) (string, error) {
	if g.createErr != nil {
		return "", g.createErr
	}
	return "https://pay.example/redirect/" + req.OrderID, nil
}

func (g *stubGateway) VerifyNotification(_ *PaymentNotification) error {
	return g.verifyErr
}

type provisioningEnv struct {
	f       *fixture
	svc     *ProvisioningService
	gateway *stubGateway
	user    *model.User
	plan    *model.Subscription
	lesson  *model.Lesson
	order   *model.SubscriptionOrder
	now     time.Time
}

func newProvisioningEnv(t *testing.T) *provisioningEnv {
	f := newFixture(t)
	now := time.Now()

	user := f.createUser(t)
	plan := f.createPlan(t, true, 1)
	task := f.createTask(t, 1, 1, 1, "42")
	lesson := f.createLesson(t, now.AddDate(0, 0, 10), task)
	f.bindLessonToPlan(t, lesson, plan)

	order := &model.SubscriptionOrder{
		PaymentID:      "sub-test-payment",
		UserID:         user.ID,
		SubscriptionID: plan.ID,
		Amount:         plan.Price,
		Status:         model.OrderPending,
	}
	require.NoError(t, f.orders.Create(order))

	gateway := &stubGateway{}
	svc := NewProvisioningService(f.db, f.orders, f.userSubs, f.lessons, f.userLessons, f.userTasks, gateway)
	return &provisioningEnv{f: f, svc: svc, gateway: gateway, user: user, plan: plan, lesson: lesson, order: order, now: now}
}

func settlement(paymentID string) *PaymentNotification {
	return &PaymentNotification{
		OrderID:           paymentID,
		StatusCode:        "200",
		GrossAmount:       "990000.00",
		SignatureKey:      "stub",
		TransactionStatus: "settlement",
	}
}

func TestProvisioningGrantsAccess(t *testing.T) {
	env := newProvisioningEnv(t)

	require.NoError(t, env.svc.HandlePaymentNotification(settlement(env.order.PaymentID), env.now))

	grants, err := env.f.userSubs.ActiveByUser(nil, env.user.ID, env.now)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	wantExpiry := util.AddCalendarMonths(env.now, env.plan.DurationMonths)
	assert.WithinDuration(t, wantExpiry, grants[0].ExpiresAt, time.Second)
	assert.WithinDuration(t, env.now, grants[0].PurchasedAt, time.Second)

	ul, err := env.f.userLessons.FindByUserAndLesson(env.user.ID, env.lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonNotStarted, ul.Status)
	require.NotNil(t, ul.CompleteTasksDeadline)

	uts, err := env.f.userTasks.ListByUserLesson(nil, ul.ID)
	require.NoError(t, err)
	assert.Len(t, uts, 1)

	var order model.SubscriptionOrder
	require.NoError(t, env.f.db.First(&order, "payment_id = ?", env.order.PaymentID).Error)
	assert.Equal(t, model.OrderCompleted, order.Status)
	require.NotNil(t, order.CompletedAt)
}

func TestProvisioningIsIdempotent(t *testing.T) {
	env := newProvisioningEnv(t)
	n := settlement(env.order.PaymentID)

	require.NoError(t, env.svc.HandlePaymentNotification(n, env.now))
	require.NoError(t, env.svc.HandlePaymentNotification(n, env.now.Add(time.Minute)))

	var grantCount int64
	require.NoError(t, env.f.db.Model(&model.UserSubscription{}).
		Where("user_id = ?", env.user.ID).Count(&grantCount).Error)
	assert.Equal(t, int64(1), grantCount)

	var lessonCount int64
	require.NoError(t, env.f.db.Model(&model.UserLesson{}).
		Where("user_id = ?", env.user.ID).Count(&lessonCount).Error)
	assert.Equal(t, int64(1), lessonCount)
}

func TestProvisioningRenewsExistingGrant(t *testing.T) {
	env := newProvisioningEnv(t)
	oldExpiry := env.now.AddDate(0, 0, 10)
	grant := env.f.grantPlan(t, env.user, env.plan, oldExpiry)
	firstPurchase := env.now.AddDate(0, -1, 0)
	require.NoError(t, env.f.db.Model(grant).Update("purchased_at", firstPurchase).Error)

	require.NoError(t, env.svc.HandlePaymentNotification(settlement(env.order.PaymentID), env.now))

	var grants []model.UserSubscription
	require.NoError(t, env.f.db.Where("user_id = ?", env.user.ID).Find(&grants).Error)
	require.Len(t, grants, 1)
	wantExpiry := util.AddCalendarMonths(oldExpiry, env.plan.DurationMonths)
	assert.WithinDuration(t, wantExpiry, grants[0].ExpiresAt, time.Second)

	// The renewal payment refreshes purchased_at.
	assert.WithinDuration(t, env.now, grants[0].PurchasedAt, time.Second)
}

func TestProvisioningRenewalWindowStartsAtPriorExpiry(t *testing.T) {
	env := newProvisioningEnv(t)
	oldExpiry := env.now.AddDate(0, 0, 10)
	env.f.grantPlan(t, env.user, env.plan, oldExpiry)

	// Opens inside the already-provisioned period of the first purchase.
	early := env.f.createLesson(t, env.now.AddDate(0, 0, 5))
	env.f.bindLessonToPlan(t, early, env.plan)

	require.NoError(t, env.svc.HandlePaymentNotification(settlement(env.order.PaymentID), env.now))

	_, err := env.f.userLessons.FindByUserAndLesson(env.user.ID, early.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	// The extension window [old expiry, new expiry) is provisioned.
	_, err = env.f.userLessons.FindByUserAndLesson(env.user.ID, env.lesson.ID)
	require.NoError(t, err)
}

func TestProvisioningIgnoresNonSettlingStatus(t *testing.T) {
	env := newProvisioningEnv(t)
	n := settlement(env.order.PaymentID)
	n.TransactionStatus = "pending"

	require.NoError(t, env.svc.HandlePaymentNotification(n, env.now))

	var order model.SubscriptionOrder
	require.NoError(t, env.f.db.First(&order, "payment_id = ?", env.order.PaymentID).Error)
	assert.Equal(t, model.OrderPending, order.Status)

	grants, err := env.f.userSubs.ActiveByUser(nil, env.user.ID, env.now)
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestProvisioningUnknownOrder(t *testing.T) {
	env := newProvisioningEnv(t)
	err := env.svc.HandlePaymentNotification(settlement("sub-missing"), env.now)
	assert.ErrorIs(t, err, util.ErrOrderNotFound)
}

func TestProvisioningRejectsBadSignature(t *testing.T) {
	env := newProvisioningEnv(t)
	env.gateway.verifyErr = util.ErrInvalidSignature

	err := env.svc.HandlePaymentNotification(settlement(env.order.PaymentID), env.now)
	assert.ErrorIs(t, err, util.ErrInvalidSignature)

	var order model.SubscriptionOrder
	require.NoError(t, env.f.db.First(&order, "payment_id = ?", env.order.PaymentID).Error)
	assert.Equal(t, model.OrderPending, order.Status)
}

func TestProvisioningSkipsLessonsOutsideWindow(t *testing.T) {
	env := newProvisioningEnv(t)
	late := env.f.createLesson(t, env.now.AddDate(0, 3, 0)) // after the 1-month grant expires
	env.f.bindLessonToPlan(t, late, env.plan)

	require.NoError(t, env.svc.HandlePaymentNotification(settlement(env.order.PaymentID), env.now))

	_, err := env.f.userLessons.FindByUserAndLesson(env.user.ID, late.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestProvisioningCapturedWithFraudAccept(t *testing.T) {
	env := newProvisioningEnv(t)
	n := settlement(env.order.PaymentID)
	n.TransactionStatus = "capture"
	n.FraudStatus = "accept"

	require.NoError(t, env.svc.HandlePaymentNotification(n, env.now))

	var order model.SubscriptionOrder
	require.NoError(t, env.f.db.First(&order, "payment_id = ?", env.order.PaymentID).Error)
	assert.Equal(t, model.OrderCompleted, order.Status)
}
