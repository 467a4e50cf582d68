package service

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"time"

	"go.uber.org/zap"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/util"
	"exam_prep_backend/pkg/logger"
)

// ContentService is the staff authoring surface: the task catalog,
// lessons, variants, plans, holidays and the score table.
type ContentService struct {
	tasks      *repository.TaskRepository
	lessons    *repository.LessonRepository
	variants   *repository.VariantRepository
	subs       *repository.SubscriptionRepository
	holidays   *repository.HolidayRepository
	scoreTable *repository.ScoreTableRepository
	storage    StorageProvider
}

func NewContentService(
	tasks *repository.TaskRepository,
	lessons *repository.LessonRepository,
	variants *repository.VariantRepository,
	subs *repository.SubscriptionRepository,
	holidays *repository.HolidayRepository,
	scoreTable *repository.ScoreTableRepository,
	storage StorageProvider,
) *ContentService {
	return &ContentService{
		tasks:      tasks,
		lessons:    lessons,
		variants:   variants,
		subs:       subs,
		holidays:   holidays,
		scoreTable: scoreTable,
		storage:    storage,
	}
}

type TaskInput struct {
	Content       string         `json:"content" binding:"required"`
	Type          model.TaskType `json:"type" binding:"required,oneof=plain table file"`
	CorrectAnswer *string        `json:"correctAnswer"`
	Cost          int            `json:"cost" binding:"required,min=1"`
	KimNumber     int            `json:"kimNumber" binding:"required,min=1"`
	Complexity    int            `json:"complexity" binding:"required,min=1,max=3"`
}

func (s *ContentService) CreateTask(input TaskInput) (*model.Task, error) {
	task := &model.Task{
		Content:       input.Content,
		Type:          input.Type,
		CorrectAnswer: input.CorrectAnswer,
		Cost:          input.Cost,
		KimNumber:     input.KimNumber,
		Complexity:    input.Complexity,
	}
	if !task.HasCorrectAnswer() {
		return nil, util.ErrCorrectAnswerRequired
	}
	if err := s.tasks.Create(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *ContentService) UpdateTask(id string, input TaskInput) (*model.Task, error) {
	task, err := s.tasks.FindByID(id)
	if err != nil {
		return nil, err
	}
	task.Content = input.Content
	task.Type = input.Type
	task.CorrectAnswer = input.CorrectAnswer
	task.Cost = input.Cost
	task.KimNumber = input.KimNumber
	task.Complexity = input.Complexity
	if !task.HasCorrectAnswer() {
		return nil, util.ErrCorrectAnswerRequired
	}
	if err := s.tasks.Update(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *ContentService) DeleteTask(id string) error {
	return s.tasks.Delete(id)
}

func (s *ContentService) ListTasks(kimNumber, complexity, offset, limit int) ([]model.Task, int64, error) {
	return s.tasks.List(kimNumber, complexity, offset, limit)
}

// AttachTaskFile uploads an attachment and records it against the task.
func (s *ContentService) AttachTaskFile(ctx context.Context, taskID string, file *multipart.FileHeader) (*model.TaskFile, error) {
	if _, err := s.tasks.FindByID(taskID); err != nil {
		return nil, err
	}
	url, err := s.storage.Upload(ctx, file, ObjectName(taskID, file.Filename))
	if err != nil {
		return nil, err
	}
	tf := &model.TaskFile{Name: file.Filename, URL: url, TaskID: taskID}
	if err := s.tasks.AddFile(tf); err != nil {
		return nil, err
	}
	logger.Log.Info("task file attached", zap.String("task_id", taskID), zap.String("url", url))
	return tf, nil
}

type LessonInput struct {
	Title           string    `json:"title" binding:"required"`
	Content         string    `json:"content"`
	OpensAt         time.Time `json:"opensAt" binding:"required"`
	VideoURL        string    `json:"videoUrl"`
	StreamEventID   string    `json:"streamEventId"`
	PrerequisiteID  *string   `json:"prerequisiteId"`
	TaskIDs         []string  `json:"taskIds"`
	SubscriptionIDs []string  `json:"subscriptionIds"`
}

func (s *ContentService) CreateLesson(input LessonInput) (*model.Lesson, error) {
	lesson := &model.Lesson{
		Title:          input.Title,
		Content:        input.Content,
		OpensAt:        input.OpensAt,
		VideoURL:       input.VideoURL,
		StreamEventID:  input.StreamEventID,
		PrerequisiteID: input.PrerequisiteID,
	}
	if err := s.lessons.Create(lesson); err != nil {
		return nil, err
	}
	if err := s.bindLesson(lesson, input); err != nil {
		return nil, err
	}
	return s.lessons.FindByID(lesson.ID)
}

func (s *ContentService) UpdateLesson(id string, input LessonInput) (*model.Lesson, error) {
	lesson, err := s.lessons.FindByID(id)
	if err != nil {
		return nil, err
	}
	lesson.Title = input.Title
	lesson.Content = input.Content
	lesson.OpensAt = input.OpensAt
	lesson.VideoURL = input.VideoURL
	lesson.StreamEventID = input.StreamEventID
	lesson.PrerequisiteID = input.PrerequisiteID
	if err := s.lessons.Update(lesson); err != nil {
		return nil, err
	}
	if err := s.bindLesson(lesson, input); err != nil {
		return nil, err
	}
	return s.lessons.FindByID(id)
}

func (s *ContentService) bindLesson(lesson *model.Lesson, input LessonInput) error {
	if input.TaskIDs != nil {
		tasks, err := s.loadTasks(input.TaskIDs)
		if err != nil {
			return err
		}
		if err := s.lessons.ReplaceTasks(lesson, tasks); err != nil {
			return err
		}
	}
	if input.SubscriptionIDs != nil {
		subs := make([]model.Subscription, 0, len(input.SubscriptionIDs))
		for _, id := range input.SubscriptionIDs {
			sub, err := s.subs.FindByID(id)
			if err != nil {
				return err
			}
			subs = append(subs, *sub)
		}
		if err := s.lessons.ReplaceSubscriptions(lesson, subs); err != nil {
			return err
		}
	}
	return nil
}

func (s *ContentService) DeleteLesson(id string) error {
	return s.lessons.Delete(id)
}

func (s *ContentService) ListLessons(offset, limit int) ([]model.Lesson, int64, error) {
	return s.lessons.List(offset, limit)
}

type VariantInput struct {
	Title   string   `json:"title" binding:"required"`
	TaskIDs []string `json:"taskIds" binding:"required,min=1"`
}

func (s *ContentService) CreateVariant(input VariantInput) (*model.Variant, error) {
	tasks, err := s.loadTasks(input.TaskIDs)
	if err != nil {
		return nil, err
	}
	variant := &model.Variant{Title: input.Title}
	if err := s.variants.Create(variant); err != nil {
		return nil, err
	}
	if err := s.variants.ReplaceTasks(variant, tasks); err != nil {
		return nil, err
	}
	return s.variants.FindByID(variant.ID)
}

func (s *ContentService) DeleteVariant(id string) error {
	return s.variants.Delete(id)
}

type PlanInput struct {
	Name           string          `json:"name" binding:"required"`
	Description    string          `json:"description"`
	Price          int64           `json:"price" binding:"required,min=1"`
	DurationMonths int             `json:"durationMonths" binding:"required,min=1"`
	WithHomeWork   bool            `json:"withHomeWork"`
	Advantages     json.RawMessage `json:"advantages"`
	IsActive       *bool           `json:"isActive"`
}

func (s *ContentService) CreatePlan(input PlanInput) (*model.Subscription, error) {
	plan := &model.Subscription{
		Name:           input.Name,
		Description:    input.Description,
		Price:          input.Price,
		DurationMonths: input.DurationMonths,
		WithHomeWork:   input.WithHomeWork,
		Advantages:     input.Advantages,
		IsActive:       true,
	}
	if input.IsActive != nil {
		plan.IsActive = *input.IsActive
	}
	if err := s.subs.Create(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *ContentService) UpdatePlan(id string, input PlanInput) (*model.Subscription, error) {
	plan, err := s.subs.FindByID(id)
	if err != nil {
		return nil, err
	}
	plan.Name = input.Name
	plan.Description = input.Description
	plan.Price = input.Price
	plan.DurationMonths = input.DurationMonths
	plan.WithHomeWork = input.WithHomeWork
	plan.Advantages = input.Advantages
	if input.IsActive != nil {
		plan.IsActive = *input.IsActive
	}
	if err := s.subs.Update(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

type HolidayInput struct {
	Title    string    `json:"title" binding:"required"`
	StartsAt time.Time `json:"startsAt" binding:"required"`
	EndsAt   time.Time `json:"endsAt" binding:"required"`
}

func (s *ContentService) CreateHoliday(input HolidayInput) (*model.Holiday, error) {
	h := &model.Holiday{Title: input.Title, StartsAt: input.StartsAt, EndsAt: input.EndsAt}
	if err := s.holidays.Create(h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *ContentService) DeleteHoliday(id string) error {
	return s.holidays.Delete(id)
}

type ScoreRowInput struct {
	PrimaryScore   int `json:"primaryScore" binding:"required,min=1"`
	SecondaryScore int `json:"secondaryScore" binding:"min=0,max=100"`
}

func (s *ContentService) UpsertScoreRow(ctx context.Context, input ScoreRowInput) error {
	return s.scoreTable.Upsert(ctx, input.PrimaryScore, input.SecondaryScore)
}

func (s *ContentService) ScoreTable() ([]model.ScoreTableRow, error) {
	return s.scoreTable.ListAll()
}

func (s *ContentService) loadTasks(ids []string) ([]model.Task, error) {
	tasks := make([]model.Task, 0, len(ids))
	for _, id := range ids {
		task, err := s.tasks.FindByID(id)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}
