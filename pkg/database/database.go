package database

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/pkg/logger"
)

// InitDB opens the MySQL connection and optionally migrates the schema.
func InitDB(cfg config.DatabaseConfig, migrate bool) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if migrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate applies the schema and seeds reference data.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Task{},
		&model.TaskFile{},
		&model.Lesson{},
		&model.UserLesson{},
		&model.UserLessonTask{},
		&model.Variant{},
		&model.UserVariant{},
		&model.UserVariantTask{},
		&model.Subscription{},
		&model.UserSubscription{},
		&model.SubscriptionOrder{},
		&model.ScoreTableRow{},
		&model.Holiday{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := SeedScoreTable(db); err != nil {
		return err
	}
	logger.Log.Info("database schema migrated")
	return nil
}

// defaultScoreTable is the official primary-to-secondary conversion for
// the informatics exam. Seeded only when the table is empty so staff
// edits survive restarts.
var defaultScoreTable = map[int]int{
	1: 7, 2: 14, 3: 20, 4: 27, 5: 34, 6: 40, 7: 43, 8: 46, 9: 48, 10: 51,
	11: 54, 12: 56, 13: 59, 14: 62, 15: 64, 16: 67, 17: 70, 18: 72, 19: 75, 20: 78,
	21: 80, 22: 83, 23: 85, 24: 88, 25: 90, 26: 93, 27: 95, 28: 98, 29: 100,
}

func SeedScoreTable(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.ScoreTableRow{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count score table: %w", err)
	}
	if count > 0 {
		return nil
	}
	rows := make([]model.ScoreTableRow, 0, len(defaultScoreTable))
	for primary := 1; primary <= len(defaultScoreTable); primary++ {
		rows = append(rows, model.ScoreTableRow{
			PrimaryScore:   primary,
			SecondaryScore: defaultScoreTable[primary],
		})
	}
	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("seed score table: %w", err)
	}
	logger.Log.Info("score table seeded")
	return nil
}
