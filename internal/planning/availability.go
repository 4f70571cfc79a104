package planning

import "time"

// PlanRecord 持久化的线日颜色计划（DailyLinePlan）
type PlanRecord struct {
	ID              string   `json:"id,omitempty"`
	OrderID         string   `json:"order_id"`
	LineID          string   `json:"line_id"`
	ColorID         string   `json:"color_id"`
	Date            Date     `json:"date"`
	PlannedQuantity int      `json:"planned_quantity"`
	Manpower        Manpower `json:"planned_manpower"`
}

// SkipNonWorking advances d until it no longer falls on the non-working weekday.
func SkipNonWorking(d Date, nonWorking time.Weekday) Date {
	for d.Weekday() == nonWorking {
		d = d.AddDays(1)
	}
	return d
}

// NextAvailableDate 计算产线最早可排产日期
// The day after the line's last persisted plan when that plan is today or later,
// otherwise today; never on the non-working weekday.
func NextAvailableDate(lineID string, existing []PlanRecord, today Date, nonWorking time.Weekday) Date {
	var last Date
	for _, rec := range existing {
		if rec.LineID != lineID {
			continue
		}
		if last.IsZero() || rec.Date.After(last) {
			last = rec.Date
		}
	}
	candidate := today
	if !last.IsZero() && !last.Before(today) {
		candidate = last.AddDays(1)
	}
	return SkipNonWorking(candidate, nonWorking)
}

// NextAvailableDates resolves every line independently.
func NextAvailableDates(lineIDs []string, existing []PlanRecord, today Date, nonWorking time.Weekday) map[string]Date {
	byLine := make(map[string][]PlanRecord, len(lineIDs))
	for _, rec := range existing {
		byLine[rec.LineID] = append(byLine[rec.LineID], rec)
	}
	out := make(map[string]Date, len(lineIDs))
	for _, id := range lineIDs {
		out[id] = NextAvailableDate(id, byLine[id], today, nonWorking)
	}
	return out
}
