package repository

import (
	"errors"

	"gorm.io/gorm"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
)

type TaskRepository struct {
	DB *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{DB: db}
}

func (r *TaskRepository) Create(task *model.Task) error {
	return r.DB.Create(task).Error
}

func (r *TaskRepository) FindByID(id string) (*model.Task, error) {
	var task model.Task
	if err := r.DB.First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) Update(task *model.Task) error {
	return r.DB.Save(task).Error
}

func (r *TaskRepository) Delete(id string) error {
	return r.DB.Delete(&model.Task{}, "id = ?", id).Error
}

func (r *TaskRepository) List(kimNumber, complexity int, offset, limit int) ([]model.Task, int64, error) {
	query := r.DB.Model(&model.Task{})
	if kimNumber > 0 {
		query = query.Where("kim_number = ?", kimNumber)
	}
	if complexity > 0 {
		query = query.Where("complexity = ?", complexity)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []model.Task
	if err := query.Offset(offset).Limit(limit).Order("kim_number, created_at").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// FindByKimAndComplexity returns the candidate pool for variant
// generation of one kim slot. Complexity 0 means any level.
func (r *TaskRepository) FindByKimAndComplexity(kimNumber, complexity int) ([]model.Task, error) {
	query := r.DB.Where("kim_number = ?", kimNumber)
	if complexity > 0 {
		query = query.Where("complexity = ?", complexity)
	}
	var tasks []model.Task
	err := query.Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) DistinctKimNumbers() ([]int, error) {
	var kims []int
	err := r.DB.Model(&model.Task{}).Distinct("kim_number").Order("kim_number").Pluck("kim_number", &kims).Error
	return kims, err
}

func (r *TaskRepository) AddFile(file *model.TaskFile) error {
	return r.DB.Create(file).Error
}

func (r *TaskRepository) FilesByTask(taskID string) ([]model.TaskFile, error) {
	var files []model.TaskFile
	err := r.DB.Where("task_id = ?", taskID).Find(&files).Error
	return files, err
}
