package model

import "time"

type UserVariantStatus string

const (
	VariantNotStarted UserVariantStatus = "not_started"
	VariantStarted    UserVariantStatus = "started"
	VariantCompleted  UserVariantStatus = "completed"
)

// UserVariant tracks one student's attempt at a variant. Scores are
// filled in on completion: PrimaryScore is the cost sum of correct
// answers, SecondaryScore the score-table conversion.
//
// swagger:model UserVariant
type UserVariant struct {
	UUIDBase
	UserID         string            `gorm:"uniqueIndex:idx_user_variant;type:varchar(36);not null" json:"userId"`
	VariantID      string            `gorm:"uniqueIndex:idx_user_variant;type:varchar(36);not null" json:"variantId"`
	Status         UserVariantStatus `gorm:"size:20;default:'not_started'" json:"status"`
	StartedAt      *time.Time        `json:"startedAt,omitempty"`
	CompletedAt    *time.Time        `json:"completedAt,omitempty"`
	PrimaryScore   *int              `json:"primaryScore,omitempty"`
	SecondaryScore *int              `json:"secondaryScore,omitempty"`
	User           *User             `gorm:"foreignKey:UserID" json:"-"`
	Variant        *Variant          `gorm:"foreignKey:VariantID" json:"variant,omitempty"`
}

func (UserVariant) TableName() string {
	return "user_variant"
}

// UserVariantTask mirrors UserLessonTask for variant attempts.
//
// swagger:model UserVariantTask
type UserVariantTask struct {
	UUIDBase
	UserVariantID string       `gorm:"uniqueIndex:idx_user_variant_task;type:varchar(36);not null" json:"userVariantId"`
	TaskID        string       `gorm:"uniqueIndex:idx_user_variant_task;type:varchar(36);not null" json:"taskId"`
	Answer        *string      `gorm:"size:1024" json:"answer,omitempty"`
	IsCorrect     *bool        `json:"isCorrect,omitempty"`
	IsSkipped     bool         `gorm:"default:false" json:"isSkipped"`
	UserVariant   *UserVariant `gorm:"foreignKey:UserVariantID" json:"-"`
	Task          *Task        `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

func (UserVariantTask) TableName() string {
	return "user_variant_task"
}

func (t *UserVariantTask) Answered() bool {
	return t.Answer != nil
}
