package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
)

type UserTaskRepository struct {
	DB *gorm.DB
}

func NewUserTaskRepository(db *gorm.DB) *UserTaskRepository {
	return &UserTaskRepository{DB: db}
}

func (r *UserTaskRepository) CreateBatch(tx *gorm.DB, uts []model.UserLessonTask) error {
	if len(uts) == 0 {
		return nil
	}
	if tx == nil {
		tx = r.DB
	}
	return tx.Create(&uts).Error
}

func (r *UserTaskRepository) FindByLessonAndTask(userLessonID, taskID string) (*model.UserLessonTask, error) {
	var ut model.UserLessonTask
	err := r.DB.Preload("Task").
		First(&ut, "user_lesson_id = ? AND task_id = ?", userLessonID, taskID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &ut, nil
}

func (r *UserTaskRepository) LockByID(tx *gorm.DB, id string) (*model.UserLessonTask, error) {
	var ut model.UserLessonTask
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ut, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &ut, nil
}

func (r *UserTaskRepository) Save(tx *gorm.DB, ut *model.UserLessonTask) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Save(ut).Error
}

func (r *UserTaskRepository) ListByUserLesson(tx *gorm.DB, userLessonID string) ([]model.UserLessonTask, error) {
	if tx == nil {
		tx = r.DB
	}
	var uts []model.UserLessonTask
	err := tx.Preload("Task").
		Where("user_lesson_id = ?", userLessonID).
		Order("created_at").
		Find(&uts).Error
	return uts, err
}

// ForceUnansweredSkipped marks every answerless record of the lesson
// skipped and grades the non-file ones incorrect. Closing the homework
// phase runs it before flipping the lesson to tasks_completed.
func (r *UserTaskRepository) ForceUnansweredSkipped(tx *gorm.DB, userLessonID string) error {
	if tx == nil {
		tx = r.DB
	}
	err := tx.Model(&model.UserLessonTask{}).
		Where("user_lesson_id = ? AND answer IS NULL", userLessonID).
		Update("is_skipped", true).Error
	if err != nil {
		return err
	}
	return tx.Exec(
		"UPDATE user_lesson_task SET is_correct = ? WHERE user_lesson_id = ? AND answer IS NULL AND task_id IN (SELECT id FROM task WHERE type <> ?)",
		false, userLessonID, model.TaskTypeFile,
	).Error
}

// TaskIDsByUserLesson returns ids of tasks already tracked for the record.
func (r *UserTaskRepository) TaskIDsByUserLesson(userLessonID string) ([]string, error) {
	var ids []string
	err := r.DB.Model(&model.UserLessonTask{}).
		Where("user_lesson_id = ?", userLessonID).
		Pluck("task_id", &ids).Error
	return ids, err
}
