package model

import "time"

// Lesson is an authored content unit. Access is granted through the
// subscriptions bound to it; OpensAt gates visibility of the content.
//
// swagger:model Lesson
type Lesson struct {
	UUIDBase
	Title          string         `gorm:"size:255;not null" json:"title"`
	Content        string         `gorm:"type:text" json:"content"`
	OpensAt        time.Time      `gorm:"index;not null" json:"opensAt"`
	VideoURL       string         `gorm:"size:512" json:"videoUrl"`
	StreamEventID  string         `gorm:"size:64" json:"streamEventId"`
	PrerequisiteID *string        `gorm:"type:varchar(36)" json:"prerequisiteId,omitempty"`
	Tasks          []Task         `gorm:"many2many:lesson_tasks" json:"tasks,omitempty"`
	Subscriptions  []Subscription `gorm:"many2many:lesson_subscriptions" json:"subscriptions,omitempty"`
}

func (Lesson) TableName() string {
	return "lesson"
}
