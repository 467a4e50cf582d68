package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
)

type lessonEnv struct {
	f      *fixture
	svc    *LessonService
	user   *model.User
	plan   *model.Subscription
	lesson *model.Lesson
	task1  *model.Task // cost 1, answer "42"
	task2  *model.Task // cost 3, answer "abc"
	now    time.Time
}

func newLessonEnv(t *testing.T) *lessonEnv {
	f := newFixture(t)
	now := time.Now()

	user := f.createUser(t)
	plan := f.createPlan(t, true, 6)
	f.grantPlan(t, user, plan, now.AddDate(0, 6, 0))

	task1 := f.createTask(t, 1, 1, 1, "42")
	task2 := f.createTask(t, 2, 2, 3, "abc")
	lesson := f.createLesson(t, now.AddDate(0, 0, -1), task1, task2)
	f.bindLessonToPlan(t, lesson, plan)
	f.enroll(t, user, lesson)

	return &lessonEnv{f: f, svc: f.lessonService(), user: user, plan: plan, lesson: lesson, task1: task1, task2: task2, now: now}
}

func TestLessonGetStartsNotStarted(t *testing.T) {
	env := newLessonEnv(t)

	view, err := env.svc.Get(env.user.ID, env.lesson.ID, env.now)
	require.NoError(t, err)
	assert.Equal(t, model.LessonStarted, view.Status)
	assert.NotNil(t, view.StartedAt)
	assert.False(t, view.IsClosed)

	// A second read keeps the status.
	view, err = env.svc.Get(env.user.ID, env.lesson.ID, env.now)
	require.NoError(t, err)
	assert.Equal(t, model.LessonStarted, view.Status)
}

func TestLessonClosedRejectsEverything(t *testing.T) {
	env := newLessonEnv(t)
	future := env.f.createLesson(t, env.now.AddDate(0, 0, 7))
	env.f.bindLessonToPlan(t, future, env.plan)
	env.f.enroll(t, env.user, future)

	_, err := env.svc.Get(env.user.ID, future.ID, env.now)
	assert.ErrorIs(t, err, util.ErrLessonClosed)

	assert.ErrorIs(t, env.svc.TryComplete(env.user.ID, future.ID, env.now), util.ErrLessonClosed)
	assert.ErrorIs(t, env.svc.TrySkip(env.user.ID, future.ID, env.now), util.ErrLessonClosed)
}

func TestLessonListMineMarksClosed(t *testing.T) {
	env := newLessonEnv(t)
	future := env.f.createLesson(t, env.now.AddDate(0, 0, 7))
	env.f.bindLessonToPlan(t, future, env.plan)
	env.f.enroll(t, env.user, future)

	views, err := env.svc.ListMine(env.user.ID, env.now)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.False(t, views[0].IsClosed)
	assert.True(t, views[1].IsClosed)
}

func TestLessonUnknownIsNotFound(t *testing.T) {
	env := newLessonEnv(t)
	_, err := env.svc.Get(env.user.ID, "missing", env.now)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestTryCompleteLifecycle(t *testing.T) {
	env := newLessonEnv(t)

	// Completing works straight from not_started; watching first is
	// optional.
	require.NoError(t, env.svc.TryComplete(env.user.ID, env.lesson.ID, env.now))

	ul, err := env.f.userLessons.FindByUserAndLesson(env.user.ID, env.lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonCompleted, ul.Status)
	assert.NotNil(t, ul.CompletedAt)
	require.NotNil(t, ul.CompleteTasksDeadline)
	assert.True(t, ul.CompleteTasksDeadline.After(env.now))

	assert.ErrorIs(t, env.svc.TryComplete(env.user.ID, env.lesson.ID, env.now), util.ErrLessonAlreadyCompleted)
	assert.ErrorIs(t, env.svc.TrySkip(env.user.ID, env.lesson.ID, env.now), util.ErrLessonAlreadyCompleted)
}

func TestTrySkipLifecycle(t *testing.T) {
	env := newLessonEnv(t)

	// Skipping works straight from not_started.
	require.NoError(t, env.svc.TrySkip(env.user.ID, env.lesson.ID, env.now))

	ul, err := env.f.userLessons.FindByUserAndLesson(env.user.ID, env.lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonSkipped, ul.Status)

	assert.ErrorIs(t, env.svc.TrySkip(env.user.ID, env.lesson.ID, env.now), util.ErrLessonAlreadySkipped)
	assert.ErrorIs(t, env.svc.TryComplete(env.user.ID, env.lesson.ID, env.now), util.ErrLessonAlreadySkipped)
}

func TestAnswerTaskGrades(t *testing.T) {
	env := newLessonEnv(t)

	ut, err := env.svc.AnswerTask(env.user.ID, env.lesson.ID, env.task1.ID, raw(`"42"`), env.now)
	require.NoError(t, err)
	require.NotNil(t, ut.IsCorrect)
	assert.True(t, *ut.IsCorrect)

	ut, err = env.svc.AnswerTask(env.user.ID, env.lesson.ID, env.task2.ID, raw(`"wrong"`), env.now)
	require.NoError(t, err)
	require.NotNil(t, ut.IsCorrect)
	assert.False(t, *ut.IsCorrect)
}

func TestAnswerTaskReanswerOverwrites(t *testing.T) {
	env := newLessonEnv(t)

	_, err := env.svc.AnswerTask(env.user.ID, env.lesson.ID, env.task1.ID, raw(`"wrong"`), env.now)
	require.NoError(t, err)

	ut, err := env.svc.AnswerTask(env.user.ID, env.lesson.ID, env.task1.ID, raw(`"42"`), env.now)
	require.NoError(t, err)
	require.NotNil(t, ut.IsCorrect)
	assert.True(t, *ut.IsCorrect)
	assert.False(t, ut.IsSkipped)
}

func TestAnswerTaskClearsSkip(t *testing.T) {
	env := newLessonEnv(t)

	_, err := env.svc.SkipTask(env.user.ID, env.lesson.ID, env.task1.ID, env.now)
	require.NoError(t, err)

	ut, err := env.svc.AnswerTask(env.user.ID, env.lesson.ID, env.task1.ID, raw(`"42"`), env.now)
	require.NoError(t, err)
	assert.False(t, ut.IsSkipped)
	assert.True(t, ut.Answered())
}

func TestAnswerTaskValidation(t *testing.T) {
	env := newLessonEnv(t)

	_, err := env.svc.AnswerTask(env.user.ID, env.lesson.ID, env.task1.ID, raw(`""`), env.now)
	assert.ErrorIs(t, err, util.ErrAnswerEmpty)

	foreign := env.f.createTask(t, 5, 1, 1, "x")
	_, err = env.svc.AnswerTask(env.user.ID, env.lesson.ID, foreign.ID, raw(`"x"`), env.now)
	assert.ErrorIs(t, err, util.ErrLessonExcludesTask)
}

func TestAnswerTaskFileTypeNotGraded(t *testing.T) {
	env := newLessonEnv(t)
	fileTask := env.f.createFileTask(t, 3)
	lesson := env.f.createLesson(t, env.now.AddDate(0, 0, -1), fileTask)
	env.f.enroll(t, env.user, lesson)

	ut, err := env.svc.AnswerTask(env.user.ID, lesson.ID, fileTask.ID, raw(`"uploads/solution.pdf"`), env.now)
	require.NoError(t, err)
	assert.Nil(t, ut.IsCorrect)
	assert.True(t, ut.Answered())
}

func TestAnswerTaskRequiresHomeworkPlan(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	user := f.createUser(t)
	plan := f.createPlan(t, false, 6) // no homework
	f.grantPlan(t, user, plan, now.AddDate(0, 6, 0))

	task := f.createTask(t, 1, 1, 1, "42")
	lesson := f.createLesson(t, now.AddDate(0, 0, -1), task)
	f.enroll(t, user, lesson)

	_, err := f.lessonService().AnswerTask(user.ID, lesson.ID, task.ID, raw(`"42"`), now)
	assert.ErrorIs(t, err, util.ErrHomeworkNotIncluded)
}

func TestAnswerTaskAfterDeadline(t *testing.T) {
	env := newLessonEnv(t)
	old := env.f.createLesson(t, env.now.AddDate(0, 0, -30), env.task1)
	env.f.enroll(t, env.user, old)

	_, err := env.svc.AnswerTask(env.user.ID, old.ID, env.task1.ID, raw(`"42"`), env.now)
	assert.ErrorIs(t, err, util.ErrHomeworkDeadlinePassed)
}

func TestSkipTaskRules(t *testing.T) {
	env := newLessonEnv(t)

	ut, err := env.svc.SkipTask(env.user.ID, env.lesson.ID, env.task1.ID, env.now)
	require.NoError(t, err)
	assert.True(t, ut.IsSkipped)

	_, err = env.svc.SkipTask(env.user.ID, env.lesson.ID, env.task1.ID, env.now)
	assert.ErrorIs(t, err, util.ErrTaskSkipped)

	_, err = env.svc.AnswerTask(env.user.ID, env.lesson.ID, env.task2.ID, raw(`"abc"`), env.now)
	require.NoError(t, err)
	_, err = env.svc.SkipTask(env.user.ID, env.lesson.ID, env.task2.ID, env.now)
	assert.ErrorIs(t, err, util.ErrTaskAnswered)
}

func TestTryCompleteTasks(t *testing.T) {
	env := newLessonEnv(t)

	// Requires a completed lesson first.
	_, err := env.svc.TryCompleteTasks(env.user.ID, env.lesson.ID, env.now)
	assert.ErrorIs(t, err, util.ErrLessonNotCompleted)

	_, err = env.svc.Get(env.user.ID, env.lesson.ID, env.now)
	require.NoError(t, err)
	require.NoError(t, env.svc.TryComplete(env.user.ID, env.lesson.ID, env.now))

	// Answer one task, leave the other unanswered.
	_, err = env.svc.AnswerTask(env.user.ID, env.lesson.ID, env.task1.ID, raw(`"42"`), env.now)
	require.NoError(t, err)

	result, err := env.svc.TryCompleteTasks(env.user.ID, env.lesson.ID, env.now)
	require.NoError(t, err)
	assert.Equal(t, env.task1.Cost, result)

	ul, err := env.f.userLessons.FindByUserAndLesson(env.user.ID, env.lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonTasksCompleted, ul.Status)
	require.NotNil(t, ul.Result)
	assert.Equal(t, env.task1.Cost, *ul.Result)

	// The unanswered task was force-skipped and graded incorrect.
	ut, err := env.f.userTasks.FindByLessonAndTask(ul.ID, env.task2.ID)
	require.NoError(t, err)
	assert.True(t, ut.IsSkipped)
	require.NotNil(t, ut.IsCorrect)
	assert.False(t, *ut.IsCorrect)

	// Terminal: no more submissions or repeats.
	_, err = env.svc.TryCompleteTasks(env.user.ID, env.lesson.ID, env.now)
	assert.ErrorIs(t, err, util.ErrTasksAlreadyCompleted)
	_, err = env.svc.AnswerTask(env.user.ID, env.lesson.ID, env.task1.ID, raw(`"42"`), env.now)
	assert.ErrorIs(t, err, util.ErrTasksAlreadyCompleted)
}

func TestTryCompleteTasksFileTaskStaysUngraded(t *testing.T) {
	env := newLessonEnv(t)
	fileTask := env.f.createFileTask(t, 3)
	lesson := env.f.createLesson(t, env.now.AddDate(0, 0, -1), fileTask)
	env.f.bindLessonToPlan(t, lesson, env.plan)
	ul := env.f.enroll(t, env.user, lesson)

	_, err := env.svc.Get(env.user.ID, lesson.ID, env.now)
	require.NoError(t, err)
	require.NoError(t, env.svc.TryComplete(env.user.ID, lesson.ID, env.now))

	_, err = env.svc.TryCompleteTasks(env.user.ID, lesson.ID, env.now)
	require.NoError(t, err)

	// File submissions are graded by hand; closing the phase must not
	// mark them wrong.
	ut, err := env.f.userTasks.FindByLessonAndTask(ul.ID, fileTask.ID)
	require.NoError(t, err)
	assert.True(t, ut.IsSkipped)
	assert.Nil(t, ut.IsCorrect)
}

func TestLessonGetOutOfScopeIsNotFound(t *testing.T) {
	env := newLessonEnv(t)

	// Materialized but no longer covered by any plan.
	unbound := env.f.createLesson(t, env.now.AddDate(0, 0, -1))
	env.f.enroll(t, env.user, unbound)
	_, err := env.svc.Get(env.user.ID, unbound.ID, env.now)
	assert.ErrorIs(t, err, util.ErrNotFound)

	// Covered by the plan but opening after the grant runs out.
	late := env.f.createLesson(t, env.now.AddDate(0, 7, 0))
	env.f.bindLessonToPlan(t, late, env.plan)
	env.f.enroll(t, env.user, late)
	_, err = env.svc.Get(env.user.ID, late.ID, env.now)
	assert.ErrorIs(t, err, util.ErrNotFound)

	views, err := env.svc.ListMine(env.user.ID, env.now)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, env.lesson.ID, views[0].LessonID)
}

func TestLessonPrerequisiteGate(t *testing.T) {
	env := newLessonEnv(t)
	dep := env.f.createLesson(t, env.now.AddDate(0, 0, -1))
	dep.PrerequisiteID = &env.lesson.ID
	require.NoError(t, env.f.lessons.Update(dep))
	env.f.bindLessonToPlan(t, dep, env.plan)
	env.f.enroll(t, env.user, dep)

	// Hidden until the prerequisite's homework is closed.
	_, err := env.svc.Get(env.user.ID, dep.ID, env.now)
	assert.ErrorIs(t, err, util.ErrNotFound)

	views, err := env.svc.ListMine(env.user.ID, env.now)
	require.NoError(t, err)
	require.Len(t, views, 1)

	// Drive the prerequisite through its whole lifecycle.
	_, err = env.svc.Get(env.user.ID, env.lesson.ID, env.now)
	require.NoError(t, err)
	require.NoError(t, env.svc.TryComplete(env.user.ID, env.lesson.ID, env.now))
	_, err = env.svc.TryCompleteTasks(env.user.ID, env.lesson.ID, env.now)
	require.NoError(t, err)

	view, err := env.svc.Get(env.user.ID, dep.ID, env.now)
	require.NoError(t, err)
	assert.Equal(t, model.LessonStarted, view.Status)
}

func TestLessonListFilters(t *testing.T) {
	env := newLessonEnv(t)
	second := env.f.createLesson(t, env.now.AddDate(0, 0, -2), env.task1)
	env.f.bindLessonToPlan(t, second, env.plan)
	env.f.enroll(t, env.user, second)

	_, err := env.svc.Get(env.user.ID, env.lesson.ID, env.now)
	require.NoError(t, err)
	require.NoError(t, env.svc.TryComplete(env.user.ID, env.lesson.ID, env.now))

	open, err := env.svc.ListHomeworkNotCompleted(env.user.ID, env.now)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, env.lesson.ID, open[0].LessonID)

	_, err = env.svc.TryCompleteTasks(env.user.ID, env.lesson.ID, env.now)
	require.NoError(t, err)

	notCompleted, err := env.svc.ListNotCompleted(env.user.ID, env.now)
	require.NoError(t, err)
	require.Len(t, notCompleted, 1)
	assert.Equal(t, second.ID, notCompleted[0].LessonID)

	homework, err := env.svc.ListHomework(env.user.ID, env.now)
	require.NoError(t, err)
	require.Len(t, homework, 1)
	assert.Equal(t, env.lesson.ID, homework[0].LessonID)

	open, err = env.svc.ListHomeworkNotCompleted(env.user.ID, env.now)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestReconcileLessonTasks(t *testing.T) {
	env := newLessonEnv(t)

	extra := env.f.createTask(t, 9, 1, 2, "zzz")
	lesson, err := env.f.lessons.FindByID(env.lesson.ID)
	require.NoError(t, err)
	tasks := append(lesson.Tasks, *extra)
	require.NoError(t, env.f.lessons.ReplaceTasks(lesson, tasks))

	created, err := env.svc.ReconcileLessonTasks(env.lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// Idempotent.
	created, err = env.svc.ReconcileLessonTasks(env.lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestReconcileLessonSubscribers(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	plan := f.createPlan(t, true, 6)
	task := f.createTask(t, 1, 1, 1, "42")
	lesson := f.createLesson(t, now.AddDate(0, 0, 3), task)
	f.bindLessonToPlan(t, lesson, plan)

	alice := f.createUser(t)
	bob := f.createUser(t)
	f.grantPlan(t, alice, plan, now.AddDate(0, 6, 0))
	f.grantPlan(t, bob, plan, now.AddDate(0, 6, 0))

	// Alice already tracks the lesson.
	f.enroll(t, alice, lesson)

	svc := f.lessonService()
	created, err := svc.ReconcileLessonSubscribers(lesson.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	ul, err := f.userLessons.FindByUserAndLesson(bob.ID, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonNotStarted, ul.Status)

	uts, err := f.userTasks.ListByUserLesson(nil, ul.ID)
	require.NoError(t, err)
	assert.Len(t, uts, 1)
}
