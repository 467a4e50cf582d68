package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"exam_prep_backend/internal/model"
)

const scoreCacheTTL = time.Hour

// ScoreTableRepository reads the primary-to-secondary conversion table.
// Rows change rarely, so lookups go through Redis when a client is
// configured; a nil client degrades to plain queries.
type ScoreTableRepository struct {
	DB    *gorm.DB
	Cache *redis.Client
}

func NewScoreTableRepository(db *gorm.DB, cache *redis.Client) *ScoreTableRepository {
	return &ScoreTableRepository{DB: db, Cache: cache}
}

func cacheKey(primary int) string {
	return fmt.Sprintf("score_table:%d", primary)
}

// SecondaryFor converts a primary score. A primary with no table row
// converts to 0. Callers inside a transaction pass it as tx so the
// fallback query shares their connection.
func (r *ScoreTableRepository) SecondaryFor(ctx context.Context, tx *gorm.DB, primary int) (int, error) {
	if r.Cache != nil {
		if v, err := r.Cache.Get(ctx, cacheKey(primary)).Result(); err == nil {
			if secondary, convErr := strconv.Atoi(v); convErr == nil {
				return secondary, nil
			}
		}
	}

	if tx == nil {
		tx = r.DB
	}
	var row model.ScoreTableRow
	err := tx.First(&row, "primary_score = ?", primary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}

	if r.Cache != nil {
		r.Cache.Set(ctx, cacheKey(primary), strconv.Itoa(row.SecondaryScore), scoreCacheTTL)
	}
	return row.SecondaryScore, nil
}

func (r *ScoreTableRepository) ListAll() ([]model.ScoreTableRow, error) {
	var rows []model.ScoreTableRow
	err := r.DB.Order("primary_score").Find(&rows).Error
	return rows, err
}

// Upsert replaces one conversion row and drops its cache entry.
func (r *ScoreTableRepository) Upsert(ctx context.Context, primary, secondary int) error {
	var row model.ScoreTableRow
	err := r.DB.First(&row, "primary_score = ?", primary).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = r.DB.Create(&model.ScoreTableRow{PrimaryScore: primary, SecondaryScore: secondary}).Error
	case err == nil:
		row.SecondaryScore = secondary
		err = r.DB.Save(&row).Error
	}
	if err != nil {
		return err
	}
	if r.Cache != nil {
		r.Cache.Del(ctx, cacheKey(primary))
	}
	return nil
}
