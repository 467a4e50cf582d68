package service

import (
	"sort"
	"time"

	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
)

// ScheduleService produces the student's calendar feed: lesson
// openings, homework deadlines and holiday ranges.
type ScheduleService struct {
	userLessons *repository.UserLessonRepository
	holidays    *repository.HolidayRepository
}

func NewScheduleService(userLessons *repository.UserLessonRepository, holidays *repository.HolidayRepository) *ScheduleService {
	return &ScheduleService{userLessons: userLessons, holidays: holidays}
}

type EventType string

const (
	EventLesson   EventType = "lesson"
	EventHomework EventType = "homework"
	EventHoliday  EventType = "holiday"
)

type ScheduleEvent struct {
	Type        EventType  `json:"type"`
	Title       string     `json:"title"`
	At          time.Time  `json:"at"`
	EndsAt      *time.Time `json:"endsAt,omitempty"` // holidays span days
	LessonID    string     `json:"lessonId,omitempty"`
	IsAvailable bool       `json:"isAvailable"`
	IsCompleted bool       `json:"isCompleted"`
}

// Events merges the caller's lesson openings, their homework deadlines
// and the holiday calendar, ordered by time.
func (s *ScheduleService) Events(userID string, now time.Time) ([]ScheduleEvent, error) {
	uls, err := s.userLessons.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	holidays, err := s.holidays.ListAll()
	if err != nil {
		return nil, err
	}

	events := make([]ScheduleEvent, 0, 2*len(uls)+len(holidays))
	for _, ul := range uls {
		if ul.Lesson == nil {
			continue
		}
		events = append(events, ScheduleEvent{
			Type:        EventLesson,
			Title:       ul.Lesson.Title,
			At:          ul.Lesson.OpensAt,
			LessonID:    ul.LessonID,
			IsAvailable: !ul.IsClosed(now),
			IsCompleted: lessonPhaseDone(ul.Status),
		})
		if ul.CompleteTasksDeadline != nil {
			events = append(events, ScheduleEvent{
				Type:        EventHomework,
				Title:       ul.Lesson.Title,
				At:          *ul.CompleteTasksDeadline,
				LessonID:    ul.LessonID,
				IsAvailable: !now.After(*ul.CompleteTasksDeadline),
				IsCompleted: ul.Status == model.LessonTasksCompleted,
			})
		}
	}
	for _, h := range holidays {
		ends := h.EndsAt
		events = append(events, ScheduleEvent{
			Type:   EventHoliday,
			Title:  h.Title,
			At:     h.StartsAt,
			EndsAt: &ends,
		})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At.Before(events[j].At)
	})
	return events, nil
}

// lessonPhaseDone reports whether the watching phase is behind the
// student, by completion or by skipping.
func lessonPhaseDone(status model.UserLessonStatus) bool {
	switch status {
	case model.LessonCompleted, model.LessonTasksCompleted, model.LessonSkipped:
		return true
	}
	return false
}

func (s *ScheduleService) Holidays() ([]model.Holiday, error) {
	return s.holidays.ListAll()
}
