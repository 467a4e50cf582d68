package service

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/util"
	"exam_prep_backend/pkg/logger"
	"exam_prep_backend/pkg/monitoring"
)

// ProvisioningService turns settled payments into lesson access. The
// whole grant happens in one transaction keyed by the order's status:
// an order already completed is acknowledged without side effects, so
// duplicate webhook deliveries are harmless.
type ProvisioningService struct {
	db          *gorm.DB
	orders      *repository.OrderRepository
	userSubs    *repository.UserSubscriptionRepository
	lessons     *repository.LessonRepository
	userLessons *repository.UserLessonRepository
	userTasks   *repository.UserTaskRepository
	gateway     PaymentGateway
}

func NewProvisioningService(
	db *gorm.DB,
	orders *repository.OrderRepository,
	userSubs *repository.UserSubscriptionRepository,
	lessons *repository.LessonRepository,
	userLessons *repository.UserLessonRepository,
	userTasks *repository.UserTaskRepository,
	gateway PaymentGateway,
) *ProvisioningService {
	return &ProvisioningService{
		db:          db,
		orders:      orders,
		userSubs:    userSubs,
		lessons:     lessons,
		userLessons: userLessons,
		userTasks:   userTasks,
		gateway:     gateway,
	}
}

// HandlePaymentNotification authenticates and applies one webhook
// delivery. Non-settling statuses are acknowledged as no-ops; unknown
// orders surface as ErrOrderNotFound.
func (s *ProvisioningService) HandlePaymentNotification(n *PaymentNotification, now time.Time) error {
	if err := s.gateway.VerifyNotification(n); err != nil {
		monitoring.ProvisioningCounter.WithLabelValues("rejected").Inc()
		return err
	}
	if !n.Paid() {
		monitoring.ProvisioningCounter.WithLabelValues("ignored").Inc()
		logger.Log.Info("payment notification ignored",
			zap.String("payment_id", n.OrderID), zap.String("status", n.TransactionStatus))
		return nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.orders.LockByPaymentID(tx, n.OrderID)
		if err != nil {
			return err
		}
		if order.Status == model.OrderCompleted {
			logger.Log.Info("payment already provisioned", zap.String("payment_id", n.OrderID))
			return nil
		}
		if order.Subscription == nil {
			return errors.New("order has no subscription plan")
		}

		grant, from, err := s.renewOrCreateGrant(tx, order, now)
		if err != nil {
			return err
		}
		if err := s.provisionLessons(tx, order.UserID, order.SubscriptionID, from, grant.ExpiresAt); err != nil {
			return err
		}

		order.Status = model.OrderCompleted
		order.CompletedAt = &now
		return s.orders.Save(tx, order)
	})
	if err != nil {
		monitoring.ProvisioningCounter.WithLabelValues("failed").Inc()
		return err
	}
	monitoring.ProvisioningCounter.WithLabelValues("completed").Inc()
	return nil
}

// renewOrCreateGrant extends the user's active grant of the plan by its
// duration, or creates a fresh grant expiring durationMonths from now.
// The returned time is where lesson provisioning starts: the prior
// expiry on renewal (that period is already provisioned), today on a
// fresh grant.
func (s *ProvisioningService) renewOrCreateGrant(tx *gorm.DB, order *model.SubscriptionOrder, now time.Time) (*model.UserSubscription, time.Time, error) {
	months := order.Subscription.DurationMonths

	existing, err := s.userSubs.FindRenewable(tx, order.UserID, order.SubscriptionID)
	switch {
	case err == nil:
		from := existing.ExpiresAt
		base := existing.ExpiresAt
		if base.Before(now) {
			base = now
		}
		existing.ExpiresAt = util.AddCalendarMonths(base, months)
		existing.PurchasedAt = now
		if err := s.userSubs.Save(tx, existing); err != nil {
			return nil, time.Time{}, err
		}
		logger.Log.Info("subscription renewed",
			zap.String("user_id", order.UserID), zap.Time("expires_at", existing.ExpiresAt))
		return existing, from, nil
	case errors.Is(err, util.ErrNotFound):
		grant := &model.UserSubscription{
			UserID:         order.UserID,
			SubscriptionID: order.SubscriptionID,
			PurchasedAt:    now,
			ExpiresAt:      util.AddCalendarMonths(now, months),
			Status:         model.SubscriptionActive,
		}
		if err := s.userSubs.Create(tx, grant); err != nil {
			return nil, time.Time{}, err
		}
		logger.Log.Info("subscription granted",
			zap.String("user_id", order.UserID), zap.Time("expires_at", grant.ExpiresAt))
		return grant, util.StartOfDay(now), nil
	default:
		return nil, time.Time{}, err
	}
}

// provisionLessons creates progress records for every plan lesson that
// opens inside the access window and that the user does not track yet,
// together with the per-task records.
func (s *ProvisioningService) provisionLessons(tx *gorm.DB, userID, subscriptionID string, from, until time.Time) error {
	lessonIDs, err := s.lessons.IDsBySubscriptionsInWindow(tx, []string{subscriptionID}, from, until)
	if err != nil {
		return err
	}
	if len(lessonIDs) == 0 {
		return nil
	}

	existing, err := s.userLessons.ExistingLessonIDs(tx, userID, lessonIDs)
	if err != nil {
		return err
	}
	missing := difference(lessonIDs, existing)

	created := 0
	for _, lessonID := range missing {
		var lesson model.Lesson
		if err := tx.First(&lesson, "id = ?", lessonID).Error; err != nil {
			return err
		}
		ul := model.UserLesson{
			UserID:                userID,
			LessonID:              lessonID,
			Status:                model.LessonNotStarted,
			CompleteTasksDeadline: homeworkDeadline(&lesson),
		}
		if err := s.userLessons.CreateBatch(tx, []model.UserLesson{ul}); err != nil {
			return err
		}
		var fresh model.UserLesson
		if err := tx.First(&fresh, "user_id = ? AND lesson_id = ?", userID, lessonID).Error; err != nil {
			return err
		}

		var taskIDs []string
		if err := tx.Table("lesson_tasks").Where("lesson_id = ?", lessonID).Pluck("task_id", &taskIDs).Error; err != nil {
			return err
		}
		batch := make([]model.UserLessonTask, 0, len(taskIDs))
		for _, taskID := range taskIDs {
			batch = append(batch, model.UserLessonTask{UserLessonID: fresh.ID, TaskID: taskID})
		}
		if err := s.userTasks.CreateBatch(tx, batch); err != nil {
			return err
		}
		created++
	}
	logger.Log.Info("lessons provisioned",
		zap.String("user_id", userID), zap.Int("created", created))
	return nil
}
