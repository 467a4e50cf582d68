package repository

import (
	"gorm.io/gorm"

	"exam_prep_backend/internal/model"
)

type HolidayRepository struct {
	DB *gorm.DB
}

func NewHolidayRepository(db *gorm.DB) *HolidayRepository {
	return &HolidayRepository{DB: db}
}

func (r *HolidayRepository) Create(h *model.Holiday) error {
	return r.DB.Create(h).Error
}

func (r *HolidayRepository) Delete(id string) error {
	return r.DB.Delete(&model.Holiday{}, "id = ?", id).Error
}

func (r *HolidayRepository) ListAll() ([]model.Holiday, error) {
	var holidays []model.Holiday
	err := r.DB.Order("starts_at").Find(&holidays).Error
	return holidays, err
}
