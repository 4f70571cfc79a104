package planning

import "math"

const (
	// DefaultTargetEfficiency 款式未设置目标效率时使用
	DefaultTargetEfficiency = 85.0
	DefaultWorkingHours     = 8.0
)

// Manpower 线日人力配置
type Manpower struct {
	Operators int `json:"operators"`
	Helpers   int `json:"helpers"`
	Checkers  int `json:"checkers"`
}

// ManpowerField names one editable manpower column.
type ManpowerField string

const (
	FieldOperators ManpowerField = "operators"
	FieldHelpers   ManpowerField = "helpers"
	FieldCheckers  ManpowerField = "checkers"
)

func (f ManpowerField) Valid() bool {
	switch f {
	case FieldOperators, FieldHelpers, FieldCheckers:
		return true
	}
	return false
}

// with returns a copy of m with one field replaced; negative values clamp to 0.
func (m Manpower) with(field ManpowerField, value int) Manpower {
	if value < 0 {
		value = 0
	}
	switch field {
	case FieldOperators:
		m.Operators = value
	case FieldHelpers:
		m.Helpers = value
	case FieldCheckers:
		m.Checkers = value
	}
	return m
}

// DeriveManpower 按操作工人数推算辅助工(1/5)和检验员(1/10)
func DeriveManpower(operators int) Manpower {
	if operators < 0 {
		operators = 0
	}
	return Manpower{
		Operators: operators,
		Helpers:   int(math.Ceil(float64(operators) / 5)),
		Checkers:  int(math.Ceil(float64(operators) / 10)),
	}
}

// Operation is one row of a style's operation bulletin. Times are in seconds.
type Operation struct {
	PickupTime          float64 `json:"pickup_time"`
	SewingTime          float64 `json:"sewing_time"`
	TrimAndDisposalTime float64 `json:"trim_and_disposal_time"`
	AllocatedOperators  int     `json:"allocated_operators"`
}

// Seconds returns the total engineered time of the operation.
func (o Operation) Seconds() float64 {
	return o.PickupTime + o.SewingTime + o.TrimAndDisposalTime
}

// SAM returns the style allowed minutes of a bulletin.
func SAM(bulletin []Operation) float64 {
	var seconds float64
	for _, op := range bulletin {
		seconds += op.Seconds()
	}
	return seconds / 60
}

// BulletinOperators sums the operators allocated across a bulletin.
func BulletinOperators(bulletin []Operation) int {
	total := 0
	for _, op := range bulletin {
		if op.AllocatedOperators > 0 {
			total += op.AllocatedOperators
		}
	}
	return total
}

// DailyCapacity 线日产能 = 操作工 × 工时 × 60 × 目标效率 / SAM
// Degenerate input yields 0.
func DailyCapacity(mp Manpower, workingHours, targetEfficiency, samMinutes float64) float64 {
	if samMinutes <= 0 || mp.Operators <= 0 || workingHours <= 0 {
		return 0
	}
	return float64(mp.Operators) * workingHours * 60 * (targetEfficiency / 100) / samMinutes
}

// CellEfficiency 单元格效率百分比 = 产量 × SAM / 可用分钟 × 100
// Degenerate input yields 0.
func CellEfficiency(qty float64, mp Manpower, workingHours, samMinutes float64) float64 {
	if samMinutes <= 0 || mp.Operators <= 0 || workingHours <= 0 {
		return 0
	}
	available := float64(mp.Operators) * workingHours * 60
	return qty * samMinutes / available * 100
}
