package model

import (
	"encoding/json"
	"time"
)

// Subscription is a purchasable plan. DurationMonths counts calendar
// months of access from the moment of purchase; WithHomeWork unlocks
// task answering on lessons.
//
// swagger:model Subscription
type Subscription struct {
	UUIDBase
	Name           string          `gorm:"size:255;not null" json:"name"`
	Description    string          `gorm:"type:text" json:"description"`
	Price          int64           `gorm:"not null" json:"price"` // smallest currency unit
	DurationMonths int             `gorm:"not null" json:"durationMonths"`
	WithHomeWork   bool            `gorm:"default:false" json:"withHomeWork"`
	Advantages     json.RawMessage `gorm:"type:text" json:"advantages,omitempty"`
	IsActive       bool            `gorm:"default:true" json:"isActive"`
	Lessons        []Lesson        `gorm:"many2many:lesson_subscriptions" json:"-"`
}

func (Subscription) TableName() string {
	return "subscription"
}

type UserSubscriptionStatus string

const (
	SubscriptionActive   UserSubscriptionStatus = "active"
	SubscriptionCanceled UserSubscriptionStatus = "canceled"
)

// UserSubscription is a granted entitlement. A user may hold several;
// the "current" one is the latest active, unexpired grant. PurchasedAt
// is refreshed on every settled payment, renewals included.
//
// swagger:model UserSubscription
type UserSubscription struct {
	UUIDBase
	UserID         string                 `gorm:"index;type:varchar(36);not null" json:"userId"`
	SubscriptionID string                 `gorm:"index;type:varchar(36);not null" json:"subscriptionId"`
	PurchasedAt    time.Time              `gorm:"not null" json:"purchasedAt"`
	ExpiresAt      time.Time              `gorm:"index;not null" json:"expiresAt"`
	Status         UserSubscriptionStatus `gorm:"size:20;default:'active'" json:"status"`
	CanceledAt     *time.Time             `json:"canceledAt,omitempty"`
	User           *User                  `gorm:"foreignKey:UserID" json:"-"`
	Subscription   *Subscription          `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
}

func (UserSubscription) TableName() string {
	return "user_subscription"
}

// IsCurrent reports whether the grant confers access right now.
func (us *UserSubscription) IsCurrent(now time.Time) bool {
	return us.Status == SubscriptionActive && us.ExpiresAt.After(now)
}
