package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

func (r *LessonRepository) Create(lesson *model.Lesson) error {
	return r.DB.Create(lesson).Error
}

func (r *LessonRepository) FindByID(id string) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := r.DB.Preload("Tasks").First(&lesson, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &lesson, nil
}

func (r *LessonRepository) Update(lesson *model.Lesson) error {
	return r.DB.Save(lesson).Error
}

func (r *LessonRepository) Delete(id string) error {
	return r.DB.Delete(&model.Lesson{}, "id = ?", id).Error
}

func (r *LessonRepository) List(offset, limit int) ([]model.Lesson, int64, error) {
	var total int64
	if err := r.DB.Model(&model.Lesson{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var lessons []model.Lesson
	if err := r.DB.Offset(offset).Limit(limit).Order("opens_at").Find(&lessons).Error; err != nil {
		return nil, 0, err
	}
	return lessons, total, nil
}

// ReplaceTasks swaps the lesson's task set.
func (r *LessonRepository) ReplaceTasks(lesson *model.Lesson, tasks []model.Task) error {
	return r.DB.Model(lesson).Association("Tasks").Replace(tasks)
}

func (r *LessonRepository) ReplaceSubscriptions(lesson *model.Lesson, subs []model.Subscription) error {
	return r.DB.Model(lesson).Association("Subscriptions").Replace(subs)
}

// IDsBySubscriptionsInWindow returns ids of lessons bound to any of the
// given plans and opening inside [from, to).
func (r *LessonRepository) IDsBySubscriptionsInWindow(tx *gorm.DB, subscriptionIDs []string, from, to time.Time) ([]string, error) {
	if tx == nil {
		tx = r.DB
	}
	var ids []string
	err := tx.Model(&model.Lesson{}).
		Joins("JOIN lesson_subscriptions ls ON ls.lesson_id = lesson.id").
		Where("ls.subscription_id IN ?", subscriptionIDs).
		Where("lesson.opens_at >= ? AND lesson.opens_at < ?", from, to).
		Distinct().
		Pluck("lesson.id", &ids).Error
	return ids, err
}

// IDsBySubscriptionsBefore returns ids of lessons bound to any of the
// given plans and opening on or before the cutoff. The eligibility
// gate uses it with a grant's expiry as cutoff.
func (r *LessonRepository) IDsBySubscriptionsBefore(subscriptionIDs []string, cutoff time.Time) ([]string, error) {
	if len(subscriptionIDs) == 0 {
		return nil, nil
	}
	var ids []string
	err := r.DB.Model(&model.Lesson{}).
		Joins("JOIN lesson_subscriptions ls ON ls.lesson_id = lesson.id").
		Where("ls.subscription_id IN ?", subscriptionIDs).
		Where("lesson.opens_at <= ?", cutoff).
		Distinct().
		Pluck("lesson.id", &ids).Error
	return ids, err
}

// TaskIDs returns the lesson's task ids without loading full rows.
func (r *LessonRepository) TaskIDs(lessonID string) ([]string, error) {
	var ids []string
	err := r.DB.Table("lesson_tasks").Where("lesson_id = ?", lessonID).Pluck("task_id", &ids).Error
	return ids, err
}

// SubscriptionIDs returns ids of plans the lesson is bound to.
func (r *LessonRepository) SubscriptionIDs(lessonID string) ([]string, error) {
	var ids []string
	err := r.DB.Table("lesson_subscriptions").Where("lesson_id = ?", lessonID).Pluck("subscription_id", &ids).Error
	return ids, err
}
