package model

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	UUIDBase
	FirstName   string   `gorm:"size:120;not null" json:"firstName"`
	LastName    string   `gorm:"size:120;not null" json:"lastName"`
	Email       string   `gorm:"size:100;unique;not null" json:"email"`
	Password    string   `gorm:"size:256;not null" json:"-"`
	Role        UserRole `gorm:"size:20;default:'student'" json:"role"`
	IsConfirmed bool     `gorm:"default:false" json:"isConfirmed"`
}

func (User) TableName() string {
	return "users"
}
