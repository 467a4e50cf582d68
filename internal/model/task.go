package model

type TaskType string

const (
	TaskTypePlain TaskType = "plain" // free-form string answer
	TaskTypeTable TaskType = "table" // structured list answer, stored as JSON
	TaskTypeFile  TaskType = "file"  // uploaded file, never auto-graded
)

// Task is a catalog entry authored by staff. The core never mutates it.
//
// KimNumber is the exam ordinal the task belongs to; generated variants pick
// one task per kim band. Cost is the task's weight in the primary score.
//
// swagger:model Task
type Task struct {
	UUIDBase
	Content       string   `gorm:"type:text;not null" json:"content"`
	Type          TaskType `gorm:"size:10;default:'plain'" json:"type"`
	CorrectAnswer *string  `gorm:"size:255" json:"-"`
	Cost          int      `gorm:"not null" json:"cost"`
	KimNumber     int      `gorm:"index;not null" json:"kimNumber"`
	Complexity    int      `gorm:"not null" json:"complexity"` // 1..3
}

func (Task) TableName() string {
	return "task"
}

// HasCorrectAnswer reports whether the catalog entry satisfies the
// "non-file task must carry a correct answer" rule.
func (t *Task) HasCorrectAnswer() bool {
	return t.Type == TaskTypeFile || (t.CorrectAnswer != nil && *t.CorrectAnswer != "")
}

// swagger:model TaskFile
type TaskFile struct {
	UUIDBase
	Name   string `gorm:"size:255;not null" json:"name"`
	URL    string `gorm:"size:512;not null" json:"url"`
	TaskID string `gorm:"index;type:varchar(36)" json:"taskId"`
}

func (TaskFile) TableName() string {
	return "task_file"
}
