package model

// ScoreTableRow maps a primary score (sum of task costs) to the exam's
// secondary 0..100 scale. Lookup is exact: a missing row converts to 0.
//
// swagger:model ScoreTableRow
type ScoreTableRow struct {
	UUIDBase
	PrimaryScore   int `gorm:"uniqueIndex;not null" json:"primaryScore"`
	SecondaryScore int `gorm:"not null" json:"secondaryScore"`
}

func (ScoreTableRow) TableName() string {
	return "score_table"
}
