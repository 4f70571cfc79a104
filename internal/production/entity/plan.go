package entity

import (
	"time"

	"github.com/bitfantasy/lineplan/internal/planning"
	"gorm.io/gorm"
)

// DailyLinePlan 线日计划：一条记录对应 日期 × 产线 × 订单 × 颜色
type DailyLinePlan struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	PlanDate        time.Time `json:"plan_date" gorm:"type:date;not null;uniqueIndex:idx_line_plan_slot,priority:1;index"`
	LineID          string    `json:"line_id" gorm:"size:36;not null;uniqueIndex:idx_line_plan_slot,priority:2;index"`
	OrderID         string    `json:"order_id" gorm:"size:36;not null;uniqueIndex:idx_line_plan_slot,priority:3;index"`
	ColorID         string    `json:"color_id" gorm:"size:36;not null;uniqueIndex:idx_line_plan_slot,priority:4"`
	PlannedQuantity int       `json:"planned_quantity" gorm:"not null"`
	Operators       int       `json:"operators" gorm:"default:0"`
	Helpers         int       `json:"helpers" gorm:"default:0"`
	Checkers        int       `json:"checkers" gorm:"default:0"`
	CreatedBy       string    `json:"created_by" gorm:"size:64"`
	CreatedAt       time.Time `json:"created_at"`
}

func (DailyLinePlan) TableName() string {
	return "prod_daily_line_plans"
}

// Record 转换为排产核心使用的记录
func (p *DailyLinePlan) Record() planning.PlanRecord {
	return planning.PlanRecord{
		ID:              p.ID,
		OrderID:         p.OrderID,
		LineID:          p.LineID,
		ColorID:         p.ColorID,
		Date:            planning.DateOf(p.PlanDate),
		PlannedQuantity: p.PlannedQuantity,
		Manpower: planning.Manpower{
			Operators: p.Operators,
			Helpers:   p.Helpers,
			Checkers:  p.Checkers,
		},
	}
}

// PlanFromRecord 由排产记录构造持久化实体
func PlanFromRecord(rec planning.PlanRecord, createdBy string) DailyLinePlan {
	return DailyLinePlan{
		ID:              rec.ID,
		PlanDate:        rec.Date.Time(),
		LineID:          rec.LineID,
		OrderID:         rec.OrderID,
		ColorID:         rec.ColorID,
		PlannedQuantity: rec.PlannedQuantity,
		Operators:       rec.Manpower.Operators,
		Helpers:         rec.Manpower.Helpers,
		Checkers:        rec.Manpower.Checkers,
		CreatedBy:       createdBy,
	}
}

// FactorySetting 工厂参数（覆盖配置文件中的 factory 段）
type FactorySetting struct {
	Key       string    `json:"key" gorm:"primaryKey;size:64"`
	Value     string    `json:"value" gorm:"size:255;not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FactorySetting) TableName() string {
	return "prod_factory_settings"
}

// 工厂参数键
const (
	SettingWorkingHours      = "working_hours_per_day"
	SettingNonWorkingWeekday = "non_working_weekday"
	SettingTargetEfficiency  = "default_target_efficiency"
)

// AutoMigrate 建表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Style{},
		&StyleOperation{},
		&Order{},
		&OrderColor{},
		&Line{},
		&DailyLinePlan{},
		&FactorySetting{},
	)
}
