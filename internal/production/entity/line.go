package entity

import "time"

const (
	LineStatusActive   = "active"
	LineStatusInactive = "inactive"
)

// Line 生产线
type Line struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Code      string    `json:"code" gorm:"size:32;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:64;not null"`
	Floor     string    `json:"floor" gorm:"size:32"`
	Status    string    `json:"status" gorm:"size:16;not null;default:active"`
	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Line) TableName() string {
	return "prod_lines"
}
