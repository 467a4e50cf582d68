package model

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
)

// SubscriptionOrder links a gateway payment to a plan purchase. It is
// created pending when the checkout session is opened and flipped to
// completed exactly once by the payment webhook; the status is the
// idempotency latch for provisioning.
//
// swagger:model SubscriptionOrder
type SubscriptionOrder struct {
	UUIDBase
	PaymentID       string        `gorm:"uniqueIndex;size:64;not null" json:"paymentId"`
	UserID          string        `gorm:"index;type:varchar(36);not null" json:"userId"`
	SubscriptionID  string        `gorm:"index;type:varchar(36);not null" json:"subscriptionId"`
	Amount          int64         `gorm:"not null" json:"amount"`
	Status          OrderStatus   `gorm:"size:20;default:'pending'" json:"status"`
	ConfirmationURL string        `gorm:"size:512" json:"confirmationUrl"`
	CompletedAt     *time.Time    `json:"completedAt,omitempty"`
	User            *User         `gorm:"foreignKey:UserID" json:"-"`
	Subscription    *Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
}

func (SubscriptionOrder) TableName() string {
	return "subscription_order"
}
