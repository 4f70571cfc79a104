package planning

import (
	"math"
	"sort"
	"time"
)

// MaxPlanningDays 排产循环的安全上限（按日历日计）
const MaxPlanningDays = 365

const epsilon = 1e-6

// LineTarget pairs a selected line with its daily target. Manual and assisted
// planning both reduce to an ordered list of these.
type LineTarget struct {
	LineID      string  `json:"line_id"`
	DailyTarget float64 `json:"daily_target"`
}

// ColorStart 颜色顺序及最早开工日期
type ColorStart struct {
	ColorID   string `json:"color_id"`
	StartDate Date   `json:"start_date"`
}

// AllocationInput is everything one allocation run consumes.
type AllocationInput struct {
	OrderID string
	// Lines are iterated in order on every day; every line advances in lock-step.
	Lines []LineTarget
	// Remaining is the quantity still to plan per color.
	Remaining map[string]float64
	// Sequence orders colors within a day and holds their earliest start dates.
	// Colors missing from Sequence are offered last, in ColorOrder, unconstrained.
	Sequence   []ColorStart
	ColorOrder []string
	// NextAvailable holds per-line first schedulable dates. Lines without an
	// entry are available from Start.
	NextAvailable map[string]Date
	Start         Date
	Manpower      Manpower
	SAM           float64
	WorkingHours  float64
	NonWorkingDay time.Weekday
	// HorizonDays bounds the day loop; 0 means MaxPlanningDays.
	HorizonDays int
}

// Allocation 排产结果
type Allocation struct {
	Grid           *Grid
	CompletionDate Date
	Requested      float64
	Planned        float64
}

// Unplanned is the quantity the run could not place.
func (a *Allocation) Unplanned() float64 {
	return math.Max(0, a.Requested-a.Planned)
}

// Allocate distributes the remaining quantity day by day across the selected lines.
//
// Each working day every free line is filled up to its daily target with colors
// taken in sequence order (first eligible, first filled). Quantities stay
// fractional during the run. A cell records, per color, the difference between
// the rounded running totals before and after it, so each color's cells sum to
// its rounded requested quantity.
//
// When the horizon is reached with quantity left, the partial allocation is
// returned together with a *HorizonExceededError.
func Allocate(in AllocationInput) (*Allocation, error) {
	grid := NewGrid(GridParams{
		OrderID:      in.OrderID,
		SAM:          in.SAM,
		WorkingHours: in.WorkingHours,
		Manpower:     in.Manpower,
	})
	result := &Allocation{Grid: grid}

	remaining := make(map[string]float64, len(in.Remaining))
	for color, qty := range in.Remaining {
		if qty > 0 {
			remaining[color] = qty
			result.Requested += qty
		}
	}
	if len(in.Lines) == 0 || result.Requested <= epsilon {
		return result, nil
	}

	if in.SAM <= 0 {
		return nil, ErrZeroSAM
	}
	if in.Manpower.Operators <= 0 {
		return nil, ErrZeroOperators
	}
	usable := false
	for _, lt := range in.Lines {
		if lt.DailyTarget > 0 {
			usable = true
			break
		}
	}
	if !usable {
		return nil, ErrNoUsableCapacity
	}

	current, ok := firstDate(in)
	if !ok {
		return nil, ErrNoStartDate
	}

	sequence := colorSequence(in.Sequence, in.ColorOrder, remaining)
	// 每个颜色已排的累计量（未取整）
	planned := make(map[string]float64, len(remaining))
	horizon := in.HorizonDays
	if horizon <= 0 {
		horizon = MaxPlanningDays
	}

	for day := 0; result.Planned < result.Requested-epsilon; day++ {
		if day >= horizon {
			last, _ := grid.CompletionDate()
			result.CompletionDate = last
			return result, &HorizonExceededError{
				HorizonDays: horizon,
				Remaining:   result.Unplanned(),
				LastPlanned: last,
			}
		}

		if current.Weekday() != in.NonWorkingDay {
			for _, lt := range in.Lines {
				if lt.DailyTarget <= 0 {
					continue
				}
				if current.Before(availableFrom(in, lt.LineID)) {
					continue
				}

				used := 0.0
				plans := make(map[string]float64)
				for _, cs := range sequence {
					if used >= lt.DailyTarget-epsilon {
						break
					}
					if current.Before(cs.StartDate) {
						continue
					}
					left := remaining[cs.ColorID]
					if left <= epsilon {
						continue
					}
					qty := math.Min(left, lt.DailyTarget-used)
					remaining[cs.ColorID] = left - qty
					used += qty
					plans[cs.ColorID] += qty
				}
				result.Planned += used
				if used > 0 {
					if cell, ok := roundedCell(plans, planned, in, lt.DailyTarget); ok {
						grid.put(current, lt.LineID, cell)
					}
				}
			}
		}
		current = current.AddDays(1)
	}

	// Near-zero leftovers never produce a cell, so the last stored date is the
	// last non-empty one.
	result.CompletionDate, _ = grid.CompletionDate()
	return result, nil
}

// firstDate is the earliest availability among the selected lines.
func firstDate(in AllocationInput) (Date, bool) {
	var first Date
	for _, lt := range in.Lines {
		if lt.DailyTarget > 0 {
			first = MinDate(first, availableFrom(in, lt.LineID))
		}
	}
	return first, !first.IsZero()
}

func availableFrom(in AllocationInput, lineID string) Date {
	if from, ok := in.NextAvailable[lineID]; ok {
		return from
	}
	return in.Start
}

// colorSequence appends colors with remaining quantity that the explicit
// sequence does not mention, in colorOrder and then by ID.
func colorSequence(explicit []ColorStart, colorOrder []string, remaining map[string]float64) []ColorStart {
	seen := make(map[string]bool, len(remaining))
	seq := make([]ColorStart, 0, len(remaining))
	for _, cs := range explicit {
		if seen[cs.ColorID] {
			continue
		}
		seen[cs.ColorID] = true
		seq = append(seq, cs)
	}
	for _, id := range colorOrder {
		if _, ok := remaining[id]; ok && !seen[id] {
			seen[id] = true
			seq = append(seq, ColorStart{ColorID: id})
		}
	}
	var rest []string
	for id := range remaining {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		seq = append(seq, ColorStart{ColorID: id})
	}
	return seq
}

// roundedCell rounds each color's running total and records the increment.
// cumulative is advanced by the fractional amounts in plans.
func roundedCell(plans, cumulative map[string]float64, in AllocationInput, target float64) (Cell, bool) {
	cell := Cell{
		Manpower:    in.Manpower,
		DailyTarget: target,
		ColorPlans:  make(map[string]float64, len(plans)),
	}
	for color, qty := range plans {
		before := cumulative[color]
		after := before + qty
		cumulative[color] = after
		if r := math.Round(after) - math.Round(before); r > 0 {
			cell.ColorPlans[color] = r
		}
	}
	if len(cell.ColorPlans) == 0 {
		return Cell{}, false
	}
	cell.TotalQty = sumPlans(cell.ColorPlans)
	cell.EfficiencyPercent = CellEfficiency(cell.TotalQty, cell.Manpower, in.WorkingHours, in.SAM)
	return cell, true
}
