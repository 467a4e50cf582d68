package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/util"
	"exam_prep_backend/pkg/logger"
)

// VariantService runs mock exam attempts:
//
//	not_started -> started -> completed
//
// Completion freezes the attempt, marks leftover tasks skipped and
// converts the primary score through the score table.
type VariantService struct {
	db           *gorm.DB
	variants     *repository.VariantRepository
	userVariants *repository.UserVariantRepository
	attemptTasks *repository.UserVariantTaskRepository
	tasks        *repository.TaskRepository
	scoreTable   *repository.ScoreTableRepository
}

func NewVariantService(
	db *gorm.DB,
	variants *repository.VariantRepository,
	userVariants *repository.UserVariantRepository,
	attemptTasks *repository.UserVariantTaskRepository,
	tasks *repository.TaskRepository,
	scoreTable *repository.ScoreTableRepository,
) *VariantService {
	return &VariantService{
		db:           db,
		variants:     variants,
		userVariants: userVariants,
		attemptTasks: attemptTasks,
		tasks:        tasks,
		scoreTable:   scoreTable,
	}
}

func (s *VariantService) List(offset, limit int) ([]model.Variant, int64, error) {
	return s.variants.List(offset, limit)
}

func (s *VariantService) ListMine(userID string) ([]model.UserVariant, error) {
	return s.userVariants.ListByUser(userID)
}

// Take binds the user to a variant, creating the attempt and its task
// records on first access.
func (s *VariantService) Take(userID, variantID string) (*model.UserVariant, error) {
	uv, err := s.userVariants.FindByUserAndVariant(userID, variantID)
	if err == nil {
		return uv, nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}

	variant, err := s.variants.FindByID(variantID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		fresh := model.UserVariant{
			UserID:    userID,
			VariantID: variantID,
			Status:    model.VariantNotStarted,
		}
		if err := tx.Create(&fresh).Error; err != nil {
			return err
		}
		batch := make([]model.UserVariantTask, 0, len(variant.Tasks))
		for _, task := range variant.Tasks {
			batch = append(batch, model.UserVariantTask{UserVariantID: fresh.ID, TaskID: task.ID})
		}
		return s.attemptTasks.CreateBatch(tx, batch)
	})
	if err != nil {
		return nil, err
	}
	return s.userVariants.FindByUserAndVariant(userID, variantID)
}

// Generate assembles a personal variant: one random task per kim number
// at the requested complexity, falling back to any complexity when the
// band has no task at that level.
func (s *VariantService) Generate(userID, title string, complexity int) (*model.UserVariant, error) {
	kims, err := s.tasks.DistinctKimNumbers()
	if err != nil {
		return nil, err
	}
	if len(kims) == 0 {
		return nil, util.ErrNoTasksForVariant
	}

	picked := make([]model.Task, 0, len(kims))
	for _, kim := range kims {
		pool, err := s.tasks.FindByKimAndComplexity(kim, complexity)
		if err != nil {
			return nil, err
		}
		if len(pool) == 0 {
			pool, err = s.tasks.FindByKimAndComplexity(kim, 0)
			if err != nil {
				return nil, err
			}
		}
		if len(pool) == 0 {
			continue
		}
		picked = append(picked, pool[rand.Intn(len(pool))])
	}
	if len(picked) == 0 {
		return nil, util.ErrNoTasksForVariant
	}

	if title == "" {
		title = fmt.Sprintf("Generated variant %s", time.Now().Format("2006-01-02 15:04"))
	}
	variant := &model.Variant{
		Title:       title,
		IsGenerated: true,
		Complexity:  complexity,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(variant).Error; err != nil {
			return err
		}
		if err := tx.Model(variant).Association("Tasks").Replace(picked); err != nil {
			return err
		}
		uv := model.UserVariant{
			UserID:    userID,
			VariantID: variant.ID,
			Status:    model.VariantNotStarted,
		}
		if err := tx.Create(&uv).Error; err != nil {
			return err
		}
		batch := make([]model.UserVariantTask, 0, len(picked))
		for _, task := range picked {
			batch = append(batch, model.UserVariantTask{UserVariantID: uv.ID, TaskID: task.ID})
		}
		return s.attemptTasks.CreateBatch(tx, batch)
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("variant generated",
		zap.String("user_id", userID), zap.String("variant_id", variant.ID), zap.Int("tasks", len(picked)))
	return s.userVariants.FindByUserAndVariant(userID, variant.ID)
}

// Start opens the attempt.
func (s *VariantService) Start(userID, variantID string, now time.Time) error {
	uv, err := s.userVariants.FindByUserAndVariant(userID, variantID)
	if err != nil {
		return err
	}

	affected, err := s.userVariants.UpdateStatus(uv.ID,
		[]model.UserVariantStatus{model.VariantNotStarted}, model.VariantStarted,
		map[string]interface{}{"started_at": now})
	if err != nil {
		return err
	}
	if affected == 0 {
		if uv.Status == model.VariantCompleted {
			return util.ErrVariantAlreadyCompleted
		}
		return util.ErrVariantAlreadyStarted
	}
	return nil
}

// AnswerTask grades a submission against the task's correct answer.
// Only started attempts accept answers.
func (s *VariantService) AnswerTask(userID, variantID, taskID string, raw json.RawMessage) (*model.UserVariantTask, error) {
	uv, err := s.userVariants.FindByUserAndVariant(userID, variantID)
	if err != nil {
		return nil, err
	}
	if err := attemptWritable(uv); err != nil {
		return nil, err
	}

	answer, err := util.NormalizeAnswer(raw)
	if err != nil {
		return nil, err
	}

	task := variantTask(uv.Variant, taskID)
	if task == nil {
		return nil, util.ErrVariantExcludesTask
	}

	uvt, err := s.attemptTasks.FindByVariantAndTask(uv.ID, taskID)
	if err != nil {
		return nil, err
	}
	uvt.Answer = &answer
	uvt.IsSkipped = false
	if task.Type == model.TaskTypeFile {
		uvt.IsCorrect = nil
	} else {
		correct := task.CorrectAnswer != nil && util.AnswersEqual(answer, *task.CorrectAnswer)
		uvt.IsCorrect = &correct
	}
	if err := s.attemptTasks.Save(nil, uvt); err != nil {
		return nil, err
	}

	// Grading stays hidden while the exam runs; scores show up after
	// Complete.
	out := *uvt
	out.IsCorrect = nil
	return &out, nil
}

// SkipTask marks one attempt task skipped.
func (s *VariantService) SkipTask(userID, variantID, taskID string) (*model.UserVariantTask, error) {
	uv, err := s.userVariants.FindByUserAndVariant(userID, variantID)
	if err != nil {
		return nil, err
	}
	if err := attemptWritable(uv); err != nil {
		return nil, err
	}
	if variantTask(uv.Variant, taskID) == nil {
		return nil, util.ErrVariantExcludesTask
	}

	uvt, err := s.attemptTasks.FindByVariantAndTask(uv.ID, taskID)
	if err != nil {
		return nil, err
	}
	if uvt.Answered() {
		return nil, util.ErrTaskAnswered
	}
	if uvt.IsSkipped {
		return nil, util.ErrTaskSkipped
	}
	uvt.IsSkipped = true
	if err := s.attemptTasks.Save(nil, uvt); err != nil {
		return nil, err
	}
	return uvt, nil
}

// Complete finishes the attempt: unanswered tasks become skipped, the
// primary score is the cost sum of correct answers and the secondary
// score comes from the conversion table (0 when no row matches).
func (s *VariantService) Complete(ctx context.Context, userID, variantID string, now time.Time) (*model.UserVariant, error) {
	uv, err := s.userVariants.FindByUserAndVariant(userID, variantID)
	if err != nil {
		return nil, err
	}

	var primary, secondary int
	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.userVariants.LockByID(tx, uv.ID)
		if err != nil {
			return err
		}
		switch locked.Status {
		case model.VariantNotStarted:
			return util.ErrVariantNotStarted
		case model.VariantCompleted:
			return util.ErrVariantAlreadyCompleted
		}

		if err := s.attemptTasks.MarkUnansweredSkipped(tx, locked.ID); err != nil {
			return err
		}

		uvts, err := s.attemptTasks.ListByUserVariant(tx, locked.ID)
		if err != nil {
			return err
		}
		for _, uvt := range uvts {
			if uvt.IsCorrect != nil && *uvt.IsCorrect && uvt.Task != nil {
				primary += uvt.Task.Cost
			}
		}

		// Both scores are written with the status flip; a completed
		// attempt never lacks its secondary score.
		sec, err := s.scoreTable.SecondaryFor(ctx, tx, primary)
		if err != nil {
			return err
		}
		secondary = sec

		locked.Status = model.VariantCompleted
		locked.CompletedAt = &now
		locked.PrimaryScore = &primary
		locked.SecondaryScore = &secondary
		return s.userVariants.Save(tx, locked)
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("variant completed",
		zap.String("user_id", userID), zap.String("variant_id", variantID),
		zap.Int("primary", primary), zap.Int("secondary", secondary))
	return s.userVariants.FindByUserAndVariant(userID, variantID)
}

func attemptWritable(uv *model.UserVariant) error {
	switch uv.Status {
	case model.VariantNotStarted:
		return util.ErrVariantNotStarted
	case model.VariantCompleted:
		return util.ErrVariantAlreadyCompleted
	}
	return nil
}

func variantTask(variant *model.Variant, taskID string) *model.Task {
	if variant == nil {
		return nil
	}
	for i := range variant.Tasks {
		if variant.Tasks[i].ID == taskID {
			return &variant.Tasks[i]
		}
	}
	return nil
}
