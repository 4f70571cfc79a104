package planning

import (
	"errors"
	"fmt"
)

var (
	// ErrNoUsableCapacity 所有选中产线日产能为0，无法排产
	ErrNoUsableCapacity = errors.New("cannot compute line capacity")
	ErrZeroSAM          = fmt.Errorf("%w: style SAM is zero, check the operation bulletin", ErrNoUsableCapacity)
	ErrZeroOperators    = fmt.Errorf("%w: no operators assigned", ErrNoUsableCapacity)
	ErrNoLinesSelected  = errors.New("no production lines selected")
	ErrNoStartDate      = errors.New("no start date: line availability is unknown")
)

// HorizonExceededError 排产超出计划周期；返回时仍附带部分计划
type HorizonExceededError struct {
	HorizonDays int
	Remaining   float64
	LastPlanned Date
}

func (e *HorizonExceededError) Error() string {
	span := fmt.Sprintf("%d days", e.HorizonDays)
	if e.HorizonDays == MaxPlanningDays {
		span = "a year"
	}
	return fmt.Sprintf("plan would take more than %s: %.0f units left unplanned after %s, add more lines",
		span, e.Remaining, e.LastPlanned)
}

// IsDegenerate reports whether err means the input cannot produce any plan.
func IsDegenerate(err error) bool {
	return errors.Is(err, ErrNoUsableCapacity) || errors.Is(err, ErrNoLinesSelected) || errors.Is(err, ErrNoStartDate)
}
