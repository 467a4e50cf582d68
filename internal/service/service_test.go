package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

type fixture struct {
	db *gorm.DB

	users        *repository.UserRepository
	tasks        *repository.TaskRepository
	lessons      *repository.LessonRepository
	userLessons  *repository.UserLessonRepository
	userTasks    *repository.UserTaskRepository
	variants     *repository.VariantRepository
	userVariants *repository.UserVariantRepository
	attemptTasks *repository.UserVariantTaskRepository
	subs         *repository.SubscriptionRepository
	userSubs     *repository.UserSubscriptionRepository
	orders       *repository.OrderRepository
	scoreTable   *repository.ScoreTableRepository
	holidays     *repository.HolidayRepository
}

func newFixture(t *testing.T) *fixture {
	db := newTestDB(t)
	return &fixture{
		db:           db,
		users:        repository.NewUserRepository(db),
		tasks:        repository.NewTaskRepository(db),
		lessons:      repository.NewLessonRepository(db),
		userLessons:  repository.NewUserLessonRepository(db),
		userTasks:    repository.NewUserTaskRepository(db),
		variants:     repository.NewVariantRepository(db),
		userVariants: repository.NewUserVariantRepository(db),
		attemptTasks: repository.NewUserVariantTaskRepository(db),
		subs:         repository.NewSubscriptionRepository(db),
		userSubs:     repository.NewUserSubscriptionRepository(db),
		orders:       repository.NewOrderRepository(db),
		scoreTable:   repository.NewScoreTableRepository(db, nil),
		holidays:     repository.NewHolidayRepository(db),
	}
}

func (f *fixture) lessonService() *LessonService {
	return NewLessonService(f.db, f.lessons, f.userLessons, f.userTasks, f.userSubs)
}

func (f *fixture) variantService() *VariantService {
	return NewVariantService(f.db, f.variants, f.userVariants, f.attemptTasks, f.tasks, f.scoreTable)
}

func (f *fixture) createUser(t *testing.T) *model.User {
	t.Helper()
	user := &model.User{
		FirstName: "Ivan",
		LastName:  "Petrov",
		Email:     model.GenerateUUID() + "@example.com",
		Password:  "hash",
		Role:      model.Student,
	}
	require.NoError(t, f.users.Create(user))
	return user
}

func (f *fixture) createPlan(t *testing.T, withHomework bool, months int) *model.Subscription {
	t.Helper()
	plan := &model.Subscription{
		Name:           "Full course",
		Price:          990000,
		DurationMonths: months,
		WithHomeWork:   withHomework,
		IsActive:       true,
	}
	require.NoError(t, f.subs.Create(plan))
	return plan
}

func (f *fixture) grantPlan(t *testing.T, user *model.User, plan *model.Subscription, expiresAt time.Time) *model.UserSubscription {
	t.Helper()
	grant := &model.UserSubscription{
		UserID:         user.ID,
		SubscriptionID: plan.ID,
		PurchasedAt:    time.Now(),
		ExpiresAt:      expiresAt,
		Status:         model.SubscriptionActive,
	}
	require.NoError(t, f.userSubs.Create(nil, grant))
	return grant
}

func (f *fixture) createTask(t *testing.T, kim, complexity, cost int, correct string) *model.Task {
	t.Helper()
	task := &model.Task{
		Content:       "solve it",
		Type:          model.TaskTypePlain,
		CorrectAnswer: &correct,
		Cost:          cost,
		KimNumber:     kim,
		Complexity:    complexity,
	}
	require.NoError(t, f.tasks.Create(task))
	return task
}

func (f *fixture) createFileTask(t *testing.T, kim int) *model.Task {
	t.Helper()
	task := &model.Task{
		Content:    "upload solution",
		Type:       model.TaskTypeFile,
		Cost:       2,
		KimNumber:  kim,
		Complexity: 2,
	}
	require.NoError(t, f.tasks.Create(task))
	return task
}

func (f *fixture) createLesson(t *testing.T, opensAt time.Time, tasks ...*model.Task) *model.Lesson {
	t.Helper()
	lesson := &model.Lesson{Title: "Lesson", OpensAt: opensAt}
	require.NoError(t, f.lessons.Create(lesson))
	if len(tasks) > 0 {
		list := make([]model.Task, 0, len(tasks))
		for _, task := range tasks {
			list = append(list, *task)
		}
		require.NoError(t, f.lessons.ReplaceTasks(lesson, list))
	}
	return lesson
}

// enroll creates the progress records provisioning would normally create.
func (f *fixture) enroll(t *testing.T, user *model.User, lesson *model.Lesson) *model.UserLesson {
	t.Helper()
	ul := model.UserLesson{UserID: user.ID, LessonID: lesson.ID, Status: model.LessonNotStarted}
	require.NoError(t, f.userLessons.CreateBatch(nil, []model.UserLesson{ul}))
	fresh, err := f.userLessons.FindByUserAndLesson(user.ID, lesson.ID)
	require.NoError(t, err)

	taskIDs, err := f.lessons.TaskIDs(lesson.ID)
	require.NoError(t, err)
	batch := make([]model.UserLessonTask, 0, len(taskIDs))
	for _, taskID := range taskIDs {
		batch = append(batch, model.UserLessonTask{UserLessonID: fresh.ID, TaskID: taskID})
	}
	require.NoError(t, f.userTasks.CreateBatch(nil, batch))
	return fresh
}

func (f *fixture) bindLessonToPlan(t *testing.T, lesson *model.Lesson, plan *model.Subscription) {
	t.Helper()
	require.NoError(t, f.lessons.ReplaceSubscriptions(lesson, []model.Subscription{*plan}))
}

func raw(s string) []byte {
	return []byte(s)
}
