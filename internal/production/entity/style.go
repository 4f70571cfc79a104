package entity

import (
	"time"

	"github.com/bitfantasy/lineplan/internal/planning"
)

// Style 款式
type Style struct {
	ID   string `json:"id" gorm:"primaryKey;size:36"`
	Code string `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name string `json:"name" gorm:"size:128"`
	// TargetEfficiency 目标效率(%)，0 表示使用工厂默认值
	TargetEfficiency float64   `json:"target_efficiency" gorm:"type:decimal(5,2);default:0"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Operations []StyleOperation `json:"operations,omitempty" gorm:"foreignKey:StyleID"`
}

func (Style) TableName() string {
	return "prod_styles"
}

// Bulletin 工序表
func (s *Style) Bulletin() []planning.Operation {
	ops := make([]planning.Operation, 0, len(s.Operations))
	for _, op := range s.Operations {
		ops = append(ops, planning.Operation{
			PickupTime:          op.PickupTime,
			SewingTime:          op.SewingTime,
			TrimAndDisposalTime: op.TrimAndDisposalTime,
			AllocatedOperators:  op.AllocatedOperators,
		})
	}
	return ops
}

// StyleOperation 工序（时间单位：秒）
type StyleOperation struct {
	ID                  string  `json:"id" gorm:"primaryKey;size:36"`
	StyleID             string  `json:"style_id" gorm:"size:36;not null;index"`
	Seq                 int     `json:"seq" gorm:"not null"`
	Name                string  `json:"name" gorm:"size:128"`
	PickupTime          float64 `json:"pickup_time" gorm:"type:decimal(8,2);default:0"`
	SewingTime          float64 `json:"sewing_time" gorm:"type:decimal(8,2);default:0"`
	TrimAndDisposalTime float64 `json:"trim_and_disposal_time" gorm:"type:decimal(8,2);default:0"`
	AllocatedOperators  int     `json:"allocated_operators" gorm:"default:0"`
}

func (StyleOperation) TableName() string {
	return "prod_style_operations"
}
