package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
)

type UserLessonRepository struct {
	DB *gorm.DB
}

func NewUserLessonRepository(db *gorm.DB) *UserLessonRepository {
	return &UserLessonRepository{DB: db}
}

func (r *UserLessonRepository) Create(ul *model.UserLesson) error {
	return r.DB.Create(ul).Error
}

func (r *UserLessonRepository) CreateBatch(tx *gorm.DB, uls []model.UserLesson) error {
	if len(uls) == 0 {
		return nil
	}
	if tx == nil {
		tx = r.DB
	}
	return tx.Create(&uls).Error
}

// FindByUserAndLesson loads a progress record with its lesson preloaded.
func (r *UserLessonRepository) FindByUserAndLesson(userID, lessonID string) (*model.UserLesson, error) {
	var ul model.UserLesson
	err := r.DB.Preload("Lesson").Preload("Lesson.Tasks").
		First(&ul, "user_id = ? AND lesson_id = ?", userID, lessonID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &ul, nil
}

func (r *UserLessonRepository) ListByUser(userID string) ([]model.UserLesson, error) {
	var uls []model.UserLesson
	err := r.DB.Preload("Lesson").
		Joins("JOIN lesson ON lesson.id = user_lesson.lesson_id").
		Where("user_lesson.user_id = ?", userID).
		Order("lesson.opens_at").
		Find(&uls).Error
	return uls, err
}

// ExistingLessonIDs returns which of lessonIDs the user already has
// progress records for.
func (r *UserLessonRepository) ExistingLessonIDs(tx *gorm.DB, userID string, lessonIDs []string) ([]string, error) {
	if len(lessonIDs) == 0 {
		return nil, nil
	}
	if tx == nil {
		tx = r.DB
	}
	var ids []string
	err := tx.Model(&model.UserLesson{}).
		Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).
		Pluck("lesson_id", &ids).Error
	return ids, err
}

// UpdateStatus flips the record's status only when it still holds one of
// the expected values; RowsAffected tells the caller whether the
// transition won.
func (r *UserLessonRepository) UpdateStatus(id string, from []model.UserLessonStatus, to model.UserLessonStatus, extra map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.DB.Model(&model.UserLesson{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// LockByID reloads the record under FOR UPDATE inside tx.
func (r *UserLessonRepository) LockByID(tx *gorm.DB, id string) (*model.UserLesson, error) {
	var ul model.UserLesson
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ul, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &ul, nil
}

func (r *UserLessonRepository) Save(tx *gorm.DB, ul *model.UserLesson) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Save(ul).Error
}

// ListByLesson returns every user's progress record for the lesson.
func (r *UserLessonRepository) ListByLesson(lessonID string) ([]model.UserLesson, error) {
	var uls []model.UserLesson
	err := r.DB.Where("lesson_id = ?", lessonID).Find(&uls).Error
	return uls, err
}
