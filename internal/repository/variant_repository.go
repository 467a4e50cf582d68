package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
)

type VariantRepository struct {
	DB *gorm.DB
}

func NewVariantRepository(db *gorm.DB) *VariantRepository {
	return &VariantRepository{DB: db}
}

func (r *VariantRepository) Create(variant *model.Variant) error {
	return r.DB.Create(variant).Error
}

func (r *VariantRepository) FindByID(id string) (*model.Variant, error) {
	var variant model.Variant
	if err := r.DB.Preload("Tasks").First(&variant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &variant, nil
}

func (r *VariantRepository) Update(variant *model.Variant) error {
	return r.DB.Save(variant).Error
}

func (r *VariantRepository) Delete(id string) error {
	return r.DB.Delete(&model.Variant{}, "id = ?", id).Error
}

func (r *VariantRepository) List(offset, limit int) ([]model.Variant, int64, error) {
	var total int64
	if err := r.DB.Model(&model.Variant{}).Where("is_generated = ?", false).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var variants []model.Variant
	err := r.DB.Where("is_generated = ?", false).
		Offset(offset).Limit(limit).Order("created_at").
		Find(&variants).Error
	if err != nil {
		return nil, 0, err
	}
	return variants, total, nil
}

func (r *VariantRepository) ReplaceTasks(variant *model.Variant, tasks []model.Task) error {
	return r.DB.Model(variant).Association("Tasks").Replace(tasks)
}

type UserVariantRepository struct {
	DB *gorm.DB
}

func NewUserVariantRepository(db *gorm.DB) *UserVariantRepository {
	return &UserVariantRepository{DB: db}
}

func (r *UserVariantRepository) Create(uv *model.UserVariant) error {
	return r.DB.Create(uv).Error
}

func (r *UserVariantRepository) FindByUserAndVariant(userID, variantID string) (*model.UserVariant, error) {
	var uv model.UserVariant
	err := r.DB.Preload("Variant").Preload("Variant.Tasks").
		First(&uv, "user_id = ? AND variant_id = ?", userID, variantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &uv, nil
}

func (r *UserVariantRepository) ListByUser(userID string) ([]model.UserVariant, error) {
	var uvs []model.UserVariant
	err := r.DB.Preload("Variant").
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&uvs).Error
	return uvs, err
}

// UpdateStatus performs a guarded transition like its lesson counterpart.
func (r *UserVariantRepository) UpdateStatus(id string, from []model.UserVariantStatus, to model.UserVariantStatus, extra map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.DB.Model(&model.UserVariant{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *UserVariantRepository) LockByID(tx *gorm.DB, id string) (*model.UserVariant, error) {
	var uv model.UserVariant
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&uv, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &uv, nil
}

func (r *UserVariantRepository) Save(tx *gorm.DB, uv *model.UserVariant) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Save(uv).Error
}

type UserVariantTaskRepository struct {
	DB *gorm.DB
}

func NewUserVariantTaskRepository(db *gorm.DB) *UserVariantTaskRepository {
	return &UserVariantTaskRepository{DB: db}
}

func (r *UserVariantTaskRepository) CreateBatch(tx *gorm.DB, uvts []model.UserVariantTask) error {
	if len(uvts) == 0 {
		return nil
	}
	if tx == nil {
		tx = r.DB
	}
	return tx.Create(&uvts).Error
}

func (r *UserVariantTaskRepository) FindByVariantAndTask(userVariantID, taskID string) (*model.UserVariantTask, error) {
	var uvt model.UserVariantTask
	err := r.DB.Preload("Task").
		First(&uvt, "user_variant_id = ? AND task_id = ?", userVariantID, taskID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &uvt, nil
}

func (r *UserVariantTaskRepository) Save(tx *gorm.DB, uvt *model.UserVariantTask) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Save(uvt).Error
}

func (r *UserVariantTaskRepository) ListByUserVariant(tx *gorm.DB, userVariantID string) ([]model.UserVariantTask, error) {
	if tx == nil {
		tx = r.DB
	}
	var uvts []model.UserVariantTask
	err := tx.Preload("Task").
		Where("user_variant_id = ?", userVariantID).
		Order("created_at").
		Find(&uvts).Error
	return uvts, err
}

// MarkUnansweredSkipped flips every answerless record of the attempt to
// skipped and grades the non-file ones incorrect.
func (r *UserVariantTaskRepository) MarkUnansweredSkipped(tx *gorm.DB, userVariantID string) error {
	if tx == nil {
		tx = r.DB
	}
	err := tx.Model(&model.UserVariantTask{}).
		Where("user_variant_id = ? AND answer IS NULL", userVariantID).
		Update("is_skipped", true).Error
	if err != nil {
		return err
	}
	return tx.Exec(
		"UPDATE user_variant_task SET is_correct = ? WHERE user_variant_id = ? AND answer IS NULL AND task_id IN (SELECT id FROM task WHERE type <> ?)",
		false, userVariantID, model.TaskTypeFile,
	).Error
}
