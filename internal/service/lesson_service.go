package service

import (
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/util"
	"exam_prep_backend/pkg/logger"
)

// LessonService drives the per-student lesson state machine:
//
//	not_started -> started -> completed -> tasks_completed
//	not_started/started -> skipped
//
// Closed lessons (opens_at in the future) reject every transition.
type LessonService struct {
	db          *gorm.DB
	lessonRepo  *repository.LessonRepository
	userLessons *repository.UserLessonRepository
	userTasks   *repository.UserTaskRepository
	userSubs    *repository.UserSubscriptionRepository
}

func NewLessonService(
	db *gorm.DB,
	lessonRepo *repository.LessonRepository,
	userLessons *repository.UserLessonRepository,
	userTasks *repository.UserTaskRepository,
	userSubs *repository.UserSubscriptionRepository,
) *LessonService {
	return &LessonService{
		db:          db,
		lessonRepo:  lessonRepo,
		userLessons: userLessons,
		userTasks:   userTasks,
		userSubs:    userSubs,
	}
}

// UserLessonView decorates a progress record with the derived closed flag.
type UserLessonView struct {
	model.UserLesson
	IsClosed bool `json:"isClosed"`
}

func (s *LessonService) ListMine(userID string, now time.Time) ([]UserLessonView, error) {
	return s.listInScope(userID, now, nil)
}

// ListNotCompleted keeps lessons still waiting on the student.
func (s *LessonService) ListNotCompleted(userID string, now time.Time) ([]UserLessonView, error) {
	return s.listInScope(userID, now, func(ul model.UserLesson) bool {
		return ul.Status == model.LessonNotStarted || ul.Status == model.LessonStarted
	})
}

// ListHomework keeps lessons whose homework phase is open or closed out.
func (s *LessonService) ListHomework(userID string, now time.Time) ([]UserLessonView, error) {
	return s.listInScope(userID, now, func(ul model.UserLesson) bool {
		return ul.Status == model.LessonCompleted || ul.Status == model.LessonTasksCompleted
	})
}

// ListHomeworkNotCompleted keeps lessons with homework still open.
func (s *LessonService) ListHomeworkNotCompleted(userID string, now time.Time) ([]UserLessonView, error) {
	return s.listInScope(userID, now, func(ul model.UserLesson) bool {
		return ul.Status == model.LessonCompleted
	})
}

// listInScope applies the eligibility gate shared by every listing: an
// active grant must cover the lesson and any prerequisite lesson must
// have its homework closed.
func (s *LessonService) listInScope(userID string, now time.Time, keep func(model.UserLesson) bool) ([]UserLessonView, error) {
	uls, err := s.userLessons.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	entitled, err := s.entitledLessonIDs(userID, now)
	if err != nil {
		return nil, err
	}
	statusByLesson := make(map[string]model.UserLessonStatus, len(uls))
	for _, ul := range uls {
		statusByLesson[ul.LessonID] = ul.Status
	}

	views := make([]UserLessonView, 0, len(uls))
	for _, ul := range uls {
		if _, ok := entitled[ul.LessonID]; !ok {
			continue
		}
		if ul.Lesson != nil && ul.Lesson.PrerequisiteID != nil &&
			statusByLesson[*ul.Lesson.PrerequisiteID] != model.LessonTasksCompleted {
			continue
		}
		if keep != nil && !keep(ul) {
			continue
		}
		views = append(views, UserLessonView{UserLesson: ul, IsClosed: ul.IsClosed(now)})
	}
	return views, nil
}

// Get returns the student's view of one lesson. Opening a not-yet-started
// lesson moves it to started.
func (s *LessonService) Get(userID, lessonID string, now time.Time) (*UserLessonView, error) {
	ul, err := s.userLessons.FindByUserAndLesson(userID, lessonID)
	if err != nil {
		return nil, err
	}
	inScope, err := s.inScope(userID, ul.Lesson, now)
	if err != nil {
		return nil, err
	}
	if !inScope {
		// Out-of-scope rows look absent, existence is not leaked.
		return nil, util.ErrNotFound
	}
	if ul.IsClosed(now) {
		return nil, util.ErrLessonClosed
	}

	if ul.Status == model.LessonNotStarted {
		affected, err := s.userLessons.UpdateStatus(ul.ID,
			[]model.UserLessonStatus{model.LessonNotStarted}, model.LessonStarted,
			map[string]interface{}{"started_at": now})
		if err != nil {
			return nil, err
		}
		if affected > 0 {
			ul.Status = model.LessonStarted
			ul.StartedAt = &now
		}
	}
	return &UserLessonView{UserLesson: *ul, IsClosed: false}, nil
}

// entitledLessonIDs unions the lessons the user's active grants cover:
// a grant entitles its plan's lessons opening on or before the grant's
// expiry.
func (s *LessonService) entitledLessonIDs(userID string, now time.Time) (map[string]struct{}, error) {
	grants, err := s.userSubs.ActiveByUser(nil, userID, now)
	if err != nil {
		return nil, err
	}
	entitled := make(map[string]struct{})
	for _, g := range grants {
		ids, err := s.lessonRepo.IDsBySubscriptionsBefore([]string{g.SubscriptionID}, g.ExpiresAt)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			entitled[id] = struct{}{}
		}
	}
	return entitled, nil
}

func (s *LessonService) inScope(userID string, lesson *model.Lesson, now time.Time) (bool, error) {
	if lesson == nil {
		return false, nil
	}
	entitled, err := s.entitledLessonIDs(userID, now)
	if err != nil {
		return false, err
	}
	if _, ok := entitled[lesson.ID]; !ok {
		return false, nil
	}
	if lesson.PrerequisiteID == nil {
		return true, nil
	}
	prereq, err := s.userLessons.FindByUserAndLesson(userID, *lesson.PrerequisiteID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return prereq.Status == model.LessonTasksCompleted, nil
}

// TryComplete marks an opened lesson completed and stamps the homework
// deadline. A prior start is not required; watching the lesson first is
// optional.
func (s *LessonService) TryComplete(userID, lessonID string, now time.Time) error {
	ul, err := s.userLessons.FindByUserAndLesson(userID, lessonID)
	if err != nil {
		return err
	}
	if ul.IsClosed(now) {
		return util.ErrLessonClosed
	}

	deadline := homeworkDeadline(ul.Lesson)
	affected, err := s.userLessons.UpdateStatus(ul.ID,
		[]model.UserLessonStatus{model.LessonNotStarted, model.LessonStarted}, model.LessonCompleted,
		map[string]interface{}{"complete_tasks_deadline": deadline, "completed_at": now})
	if err != nil {
		return err
	}
	if affected == 0 {
		return s.transitionConflict(ul.ID, util.ErrLessonNotStarted)
	}
	logger.Log.Info("lesson completed", zap.String("user_id", userID), zap.String("lesson_id", lessonID))
	return nil
}

// TrySkip marks a lesson skipped before it was completed.
func (s *LessonService) TrySkip(userID, lessonID string, now time.Time) error {
	ul, err := s.userLessons.FindByUserAndLesson(userID, lessonID)
	if err != nil {
		return err
	}
	if ul.IsClosed(now) {
		return util.ErrLessonClosed
	}

	affected, err := s.userLessons.UpdateStatus(ul.ID,
		[]model.UserLessonStatus{model.LessonNotStarted, model.LessonStarted}, model.LessonSkipped, nil)
	if err != nil {
		return err
	}
	if affected == 0 {
		return s.transitionConflict(ul.ID, util.ErrLessonNotStarted)
	}
	return nil
}

// TryCompleteTasks closes the homework phase of a completed lesson.
// Tasks left unanswered are forced to skipped and graded incorrect;
// the result is the cost sum of correct answers.
func (s *LessonService) TryCompleteTasks(userID, lessonID string, now time.Time) (int, error) {
	ul, err := s.userLessons.FindByUserAndLesson(userID, lessonID)
	if err != nil {
		return 0, err
	}
	if ul.IsClosed(now) {
		return 0, util.ErrLessonClosed
	}

	var result int
	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.userLessons.LockByID(tx, ul.ID)
		if err != nil {
			return err
		}
		switch locked.Status {
		case model.LessonNotStarted, model.LessonStarted:
			return util.ErrLessonNotCompleted
		case model.LessonTasksCompleted:
			return util.ErrTasksAlreadyCompleted
		case model.LessonSkipped:
			return util.ErrLessonAlreadySkipped
		}

		if err := s.userTasks.ForceUnansweredSkipped(tx, locked.ID); err != nil {
			return err
		}
		uts, err := s.userTasks.ListByUserLesson(tx, locked.ID)
		if err != nil {
			return err
		}
		for _, ut := range uts {
			if ut.IsCorrect != nil && *ut.IsCorrect && ut.Task != nil {
				result += ut.Task.Cost
			}
		}

		locked.Status = model.LessonTasksCompleted
		locked.Result = &result
		return s.userLessons.Save(tx, locked)
	})
	if err != nil {
		return 0, err
	}
	logger.Log.Info("lesson tasks completed",
		zap.String("user_id", userID), zap.String("lesson_id", lessonID), zap.Int("result", result))
	return result, nil
}

// AnswerTask records a submission and grades it immediately unless the
// task is file-typed. Re-answering overwrites and clears a prior skip.
func (s *LessonService) AnswerTask(userID, lessonID, taskID string, raw json.RawMessage, now time.Time) (*model.UserLessonTask, error) {
	ul, err := s.userLessons.FindByUserAndLesson(userID, lessonID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAnswerable(ul, userID, now); err != nil {
		return nil, err
	}

	answer, err := util.NormalizeAnswer(raw)
	if err != nil {
		return nil, err
	}

	task := lessonTask(ul.Lesson, taskID)
	if task == nil {
		return nil, util.ErrLessonExcludesTask
	}

	ut, err := s.findOrCreateTaskRecord(ul.ID, taskID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.userTasks.LockByID(tx, ut.ID)
		if err != nil {
			return err
		}
		locked.Answer = &answer
		locked.IsSkipped = false
		if task.Type == model.TaskTypeFile {
			locked.IsCorrect = nil
		} else {
			correct := task.CorrectAnswer != nil && util.AnswersEqual(answer, *task.CorrectAnswer)
			locked.IsCorrect = &correct
		}
		if err := s.userTasks.Save(tx, locked); err != nil {
			return err
		}
		*ut = *locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	ut.Task = task
	return ut, nil
}

// SkipTask marks a task skipped. It fails once the task holds an answer
// or is already skipped.
func (s *LessonService) SkipTask(userID, lessonID, taskID string, now time.Time) (*model.UserLessonTask, error) {
	ul, err := s.userLessons.FindByUserAndLesson(userID, lessonID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAnswerable(ul, userID, now); err != nil {
		return nil, err
	}

	task := lessonTask(ul.Lesson, taskID)
	if task == nil {
		return nil, util.ErrLessonExcludesTask
	}

	ut, err := s.findOrCreateTaskRecord(ul.ID, taskID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.userTasks.LockByID(tx, ut.ID)
		if err != nil {
			return err
		}
		if locked.Answered() {
			return util.ErrTaskAnswered
		}
		if locked.IsSkipped {
			return util.ErrTaskSkipped
		}
		locked.IsSkipped = true
		if err := s.userTasks.Save(tx, locked); err != nil {
			return err
		}
		*ut = *locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	ut.Task = task
	return ut, nil
}

// Tasks lists the student's progress records for a lesson.
func (s *LessonService) Tasks(userID, lessonID string, now time.Time) ([]model.UserLessonTask, error) {
	ul, err := s.userLessons.FindByUserAndLesson(userID, lessonID)
	if err != nil {
		return nil, err
	}
	if ul.IsClosed(now) {
		return nil, util.ErrLessonClosed
	}
	return s.userTasks.ListByUserLesson(nil, ul.ID)
}

// ReconcileLessonTasks backfills missing task progress records after the
// lesson's task set changed.
func (s *LessonService) ReconcileLessonTasks(lessonID string) (int, error) {
	taskIDs, err := s.lessonRepo.TaskIDs(lessonID)
	if err != nil {
		return 0, err
	}
	uls, err := s.userLessons.ListByLesson(lessonID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, ul := range uls {
		existing, err := s.userTasks.TaskIDsByUserLesson(ul.ID)
		if err != nil {
			return created, err
		}
		missing := difference(taskIDs, existing)
		batch := make([]model.UserLessonTask, 0, len(missing))
		for _, taskID := range missing {
			batch = append(batch, model.UserLessonTask{UserLessonID: ul.ID, TaskID: taskID})
		}
		if err := s.userTasks.CreateBatch(nil, batch); err != nil {
			return created, err
		}
		created += len(batch)
	}
	logger.Log.Info("lesson tasks reconciled", zap.String("lesson_id", lessonID), zap.Int("created", created))
	return created, nil
}

// ReconcileLessonSubscribers backfills progress records for subscribers
// after the lesson was attached to a plan late.
func (s *LessonService) ReconcileLessonSubscribers(lessonID string, now time.Time) (int, error) {
	subIDs, err := s.lessonRepo.SubscriptionIDs(lessonID)
	if err != nil {
		return 0, err
	}
	userIDs, err := s.userSubs.ActiveUserIDs(subIDs, now)
	if err != nil {
		return 0, err
	}
	taskIDs, err := s.lessonRepo.TaskIDs(lessonID)
	if err != nil {
		return 0, err
	}
	lesson, err := s.lessonRepo.FindByID(lessonID)
	if err != nil {
		return 0, err
	}
	deadline := homeworkDeadline(lesson)

	created := 0
	for _, userID := range userIDs {
		existing, err := s.userLessons.ExistingLessonIDs(nil, userID, []string{lessonID})
		if err != nil {
			return created, err
		}
		if len(existing) > 0 {
			continue
		}
		err = s.db.Transaction(func(tx *gorm.DB) error {
			ul := model.UserLesson{
				UserID:                userID,
				LessonID:              lessonID,
				Status:                model.LessonNotStarted,
				CompleteTasksDeadline: deadline,
			}
			if err := s.userLessons.CreateBatch(tx, []model.UserLesson{ul}); err != nil {
				return err
			}
			var fresh model.UserLesson
			if err := tx.First(&fresh, "user_id = ? AND lesson_id = ?", userID, lessonID).Error; err != nil {
				return err
			}
			batch := make([]model.UserLessonTask, 0, len(taskIDs))
			for _, taskID := range taskIDs {
				batch = append(batch, model.UserLessonTask{UserLessonID: fresh.ID, TaskID: taskID})
			}
			return s.userTasks.CreateBatch(tx, batch)
		})
		if err != nil {
			return created, err
		}
		created++
	}
	logger.Log.Info("lesson subscribers reconciled", zap.String("lesson_id", lessonID), zap.Int("created", created))
	return created, nil
}

// checkAnswerable gathers the preconditions shared by answer and skip:
// the lesson is open, homework is not closed out, the plan includes
// homework, and the deadline has not passed.
func (s *LessonService) checkAnswerable(ul *model.UserLesson, userID string, now time.Time) error {
	if ul.IsClosed(now) {
		return util.ErrLessonClosed
	}
	switch ul.Status {
	case model.LessonTasksCompleted:
		return util.ErrTasksAlreadyCompleted
	case model.LessonSkipped:
		return util.ErrLessonAlreadySkipped
	}

	ok, err := s.hasHomeworkAccess(userID, now)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrHomeworkNotIncluded
	}

	deadline := ul.CompleteTasksDeadline
	if deadline == nil {
		deadline = homeworkDeadline(ul.Lesson)
	}
	if deadline != nil && now.After(*deadline) {
		return util.ErrHomeworkDeadlinePassed
	}
	return nil
}

func (s *LessonService) hasHomeworkAccess(userID string, now time.Time) (bool, error) {
	grants, err := s.userSubs.ActiveByUser(nil, userID, now)
	if err != nil {
		return false, err
	}
	for _, g := range grants {
		if g.Subscription != nil && g.Subscription.WithHomeWork {
			return true, nil
		}
	}
	return false, nil
}

func (s *LessonService) findOrCreateTaskRecord(userLessonID, taskID string) (*model.UserLessonTask, error) {
	ut, err := s.userTasks.FindByLessonAndTask(userLessonID, taskID)
	if err == nil {
		return ut, nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}
	fresh := model.UserLessonTask{UserLessonID: userLessonID, TaskID: taskID}
	if err := s.userTasks.CreateBatch(nil, []model.UserLessonTask{fresh}); err != nil {
		return nil, err
	}
	return s.userTasks.FindByLessonAndTask(userLessonID, taskID)
}

// transitionConflict re-reads the record after a lost guarded update and
// names the state that blocked it.
func (s *LessonService) transitionConflict(userLessonID string, notStartedErr error) error {
	var ul model.UserLesson
	if err := s.db.First(&ul, "id = ?", userLessonID).Error; err != nil {
		return err
	}
	switch ul.Status {
	case model.LessonCompleted, model.LessonTasksCompleted:
		return util.ErrLessonAlreadyCompleted
	case model.LessonSkipped:
		return util.ErrLessonAlreadySkipped
	default:
		return notStartedErr
	}
}

// homeworkDeadline is the end of the day deadline_days after the lesson
// opens.
func homeworkDeadline(lesson *model.Lesson) *time.Time {
	if lesson == nil {
		return nil
	}
	days := config.Get().Homework.DeadlineDays
	d := util.EndOfDay(lesson.OpensAt.AddDate(0, 0, days))
	return &d
}

func lessonTask(lesson *model.Lesson, taskID string) *model.Task {
	if lesson == nil {
		return nil
	}
	for i := range lesson.Tasks {
		if lesson.Tasks[i].ID == taskID {
			return &lesson.Tasks[i]
		}
	}
	return nil
}

func difference(all, existing []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}
	out := make([]string, 0, len(all))
	for _, id := range all {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
