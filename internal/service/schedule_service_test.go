package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exam_prep_backend/internal/model"
)

func TestScheduleEventsScopedToUser(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	svc := NewScheduleService(f.userLessons, f.holidays)

	user := f.createUser(t)
	other := f.createUser(t)
	opened := f.createLesson(t, now.AddDate(0, 0, -1))
	upcoming := f.createLesson(t, now.AddDate(0, 0, 5))
	foreign := f.createLesson(t, now.AddDate(0, 0, 2))
	f.enroll(t, user, opened)
	f.enroll(t, user, upcoming)
	f.enroll(t, other, foreign)

	require.NoError(t, f.holidays.Create(&model.Holiday{
		Title:    "New Year",
		StartsAt: now.AddDate(0, 0, 3),
		EndsAt:   now.AddDate(0, 0, 4),
	}))

	events, err := svc.Events(user.ID, now)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Sorted by time: the opened lesson, the holiday, the upcoming one.
	// The other student's lesson does not leak into the feed.
	assert.Equal(t, EventLesson, events[0].Type)
	assert.Equal(t, opened.ID, events[0].LessonID)
	assert.True(t, events[0].IsAvailable)
	assert.False(t, events[0].IsCompleted)

	assert.Equal(t, EventHoliday, events[1].Type)
	require.NotNil(t, events[1].EndsAt)

	assert.Equal(t, EventLesson, events[2].Type)
	assert.Equal(t, upcoming.ID, events[2].LessonID)
	assert.False(t, events[2].IsAvailable)
}

func TestScheduleHomeworkEvents(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	user := f.createUser(t)
	plan := f.createPlan(t, true, 6)
	f.grantPlan(t, user, plan, now.AddDate(0, 6, 0))
	task := f.createTask(t, 1, 1, 1, "42")
	lesson := f.createLesson(t, now.AddDate(0, 0, -1), task)
	f.bindLessonToPlan(t, lesson, plan)
	f.enroll(t, user, lesson)

	lessons := f.lessonService()
	require.NoError(t, lessons.TryComplete(user.ID, lesson.ID, now))

	svc := NewScheduleService(f.userLessons, f.holidays)
	events, err := svc.Events(user.ID, now)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, EventLesson, events[0].Type)
	assert.True(t, events[0].IsCompleted)

	assert.Equal(t, EventHomework, events[1].Type)
	assert.Equal(t, lesson.ID, events[1].LessonID)
	assert.True(t, events[1].IsAvailable)
	assert.False(t, events[1].IsCompleted)

	_, err = lessons.TryCompleteTasks(user.ID, lesson.ID, now)
	require.NoError(t, err)

	events, err = svc.Events(user.ID, now)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[1].IsCompleted)
}
