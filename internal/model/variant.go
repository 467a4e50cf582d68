package model

// Variant is a full mock exam paper: an ordered set of tasks covering
// the kim numbers. Generated variants are assembled per-user; authored
// ones are shared.
//
// swagger:model Variant
type Variant struct {
	UUIDBase
	Title       string `gorm:"size:255;not null" json:"title"`
	IsGenerated bool   `gorm:"default:false" json:"isGenerated"`
	Complexity  int    `gorm:"default:0" json:"complexity"` // 0 for authored variants
	Tasks       []Task `gorm:"many2many:variant_tasks" json:"tasks,omitempty"`
}

func (Variant) TableName() string {
	return "variant"
}
