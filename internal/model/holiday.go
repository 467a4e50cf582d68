package model

import "time"

// Holiday marks a date range with no scheduled lessons; the schedule
// feed exposes them alongside lesson events.
//
// swagger:model Holiday
type Holiday struct {
	UUIDBase
	Title    string    `gorm:"size:255;not null" json:"title"`
	StartsAt time.Time `gorm:"not null" json:"startsAt"`
	EndsAt   time.Time `gorm:"not null" json:"endsAt"`
}

func (Holiday) TableName() string {
	return "holiday"
}
