package model

import "time"

type UserLessonStatus string

const (
	LessonNotStarted     UserLessonStatus = "not_started"
	LessonStarted        UserLessonStatus = "started"
	LessonCompleted      UserLessonStatus = "completed"
	LessonTasksCompleted UserLessonStatus = "tasks_completed"
	LessonSkipped        UserLessonStatus = "skipped"
)

// UserLesson is a student's per-lesson progress record. One row per
// (user, lesson); provisioning creates them in bulk when a subscription
// is granted.
//
// swagger:model UserLesson
type UserLesson struct {
	UUIDBase
	UserID                string           `gorm:"uniqueIndex:idx_user_lesson;type:varchar(36);not null" json:"userId"`
	LessonID              string           `gorm:"uniqueIndex:idx_user_lesson;type:varchar(36);not null" json:"lessonId"`
	Status                UserLessonStatus `gorm:"size:20;default:'not_started'" json:"status"`
	StartedAt             *time.Time       `json:"startedAt,omitempty"`
	CompletedAt           *time.Time       `json:"completedAt,omitempty"`
	Result                *int             `json:"result,omitempty"`
	CompleteTasksDeadline *time.Time       `json:"completeTasksDeadline,omitempty"`
	User                  *User            `gorm:"foreignKey:UserID" json:"-"`
	Lesson                *Lesson          `gorm:"foreignKey:LessonID" json:"lesson,omitempty"`
}

func (UserLesson) TableName() string {
	return "user_lesson"
}

// IsClosed is derived from the lesson schedule and never persisted:
// a lesson is closed until its opening date arrives.
func (ul *UserLesson) IsClosed(now time.Time) bool {
	if ul.Lesson == nil {
		return false
	}
	return ul.Lesson.OpensAt.After(now)
}
