package planning

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// PlanStore is the persistence collaborator for daily line plans.
type PlanStore interface {
	LoadPlans(ctx context.Context, orderID string) ([]PlanRecord, error)
	DeletePlans(ctx context.Context, ids []string) error
	InsertPlans(ctx context.Context, records []PlanRecord) error
}

// Flatten 将网格展开为 线/日/颜色 粒度的计划记录
// Records carry no IDs and come out sorted by date, line and color, so flattening
// the same grid twice yields identical slices.
func Flatten(g *Grid) []PlanRecord {
	var records []PlanRecord
	for _, date := range g.Dates() {
		for _, lineID := range g.LinesOn(date) {
			cell := g.days[date][lineID]
			colors := make([]string, 0, len(cell.ColorPlans))
			for color := range cell.ColorPlans {
				colors = append(colors, color)
			}
			sort.Strings(colors)
			for _, color := range colors {
				qty := int(math.Round(cell.ColorPlans[color]))
				if qty <= 0 {
					continue
				}
				records = append(records, PlanRecord{
					OrderID:         g.params.OrderID,
					LineID:          lineID,
					ColorID:         color,
					Date:            date,
					PlannedQuantity: qty,
					Manpower:        cell.Manpower,
				})
			}
		}
	}
	return records
}

// ChangeSet 保存计划时的删除/插入集合
type ChangeSet struct {
	OrderID   string       `json:"order_id"`
	Insert    []PlanRecord `json:"insert"`
	DeleteIDs []string     `json:"delete_ids"`
}

// Reconcile replaces every existing record of the order with the grid's records.
// Existing records of other orders are ignored.
func Reconcile(orderID string, g *Grid, existing []PlanRecord) ChangeSet {
	cs := ChangeSet{OrderID: orderID}
	for _, rec := range existing {
		if rec.OrderID == orderID && rec.ID != "" {
			cs.DeleteIDs = append(cs.DeleteIDs, rec.ID)
		}
	}
	for _, rec := range Flatten(g) {
		rec.ID = uuid.NewString()
		rec.OrderID = orderID
		cs.Insert = append(cs.Insert, rec)
	}
	return cs
}

// Save deletes every persisted record of the order and inserts the grid's records.
// Atomicity belongs to the store; a failure is returned as is.
func Save(ctx context.Context, store PlanStore, orderID string, g *Grid) (ChangeSet, error) {
	existing, err := store.LoadPlans(ctx, orderID)
	if err != nil {
		return ChangeSet{}, fmt.Errorf("load plans: %w", err)
	}
	cs := Reconcile(orderID, g, existing)
	if len(cs.DeleteIDs) > 0 {
		if err := store.DeletePlans(ctx, cs.DeleteIDs); err != nil {
			return cs, fmt.Errorf("delete plans: %w", err)
		}
	}
	if len(cs.Insert) > 0 {
		if err := store.InsertPlans(ctx, cs.Insert); err != nil {
			return cs, fmt.Errorf("insert plans: %w", err)
		}
	}
	return cs, nil
}
