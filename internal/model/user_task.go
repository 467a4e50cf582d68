package model

// UserLessonTask records a student's progress on one task inside a lesson.
// Answer holds the raw submitted payload (string or JSON list). IsCorrect
// stays nil for file tasks, which are graded by hand.
//
// swagger:model UserLessonTask
type UserLessonTask struct {
	UUIDBase
	UserLessonID string      `gorm:"uniqueIndex:idx_user_lesson_task;type:varchar(36);not null" json:"userLessonId"`
	TaskID       string      `gorm:"uniqueIndex:idx_user_lesson_task;type:varchar(36);not null" json:"taskId"`
	Answer       *string     `gorm:"size:1024" json:"answer,omitempty"`
	IsCorrect    *bool       `json:"isCorrect,omitempty"`
	IsSkipped    bool        `gorm:"default:false" json:"isSkipped"`
	UserLesson   *UserLesson `gorm:"foreignKey:UserLessonID" json:"-"`
	Task         *Task       `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

func (UserLessonTask) TableName() string {
	return "user_lesson_task"
}

// Answered reports whether the record holds a submitted answer.
func (t *UserLessonTask) Answered() bool {
	return t.Answer != nil
}
