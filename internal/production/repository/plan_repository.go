package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/lineplan/internal/planning"
	"github.com/bitfantasy/lineplan/internal/production/entity"
	"gorm.io/gorm"
)

const insertBatchSize = 200

// PlanRepository 线日计划仓库，实现 planning.PlanStore
type PlanRepository struct {
	db        *gorm.DB
	createdBy string
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// WithCreator 返回以 userID 记录创建人的副本
func (r *PlanRepository) WithCreator(userID string) *PlanRepository {
	return &PlanRepository{db: r.db, createdBy: userID}
}

// ListByOrder 获取订单的全部计划记录
func (r *PlanRepository) ListByOrder(ctx context.Context, orderID string) ([]entity.DailyLinePlan, error) {
	var plans []entity.DailyLinePlan
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("plan_date ASC, line_id ASC, color_id ASC").
		Find(&plans).Error
	return plans, err
}

// ListByLines 获取产线上的计划记录；excludeOrder 非空时排除该订单
func (r *PlanRepository) ListByLines(ctx context.Context, lineIDs []string, excludeOrder string) ([]entity.DailyLinePlan, error) {
	var plans []entity.DailyLinePlan
	if len(lineIDs) == 0 {
		return plans, nil
	}
	q := r.db.WithContext(ctx).Where("line_id IN ?", lineIDs)
	if excludeOrder != "" {
		q = q.Where("order_id <> ?", excludeOrder)
	}
	err := q.Order("plan_date ASC, line_id ASC").Find(&plans).Error
	return plans, err
}

// LoadPlans implements planning.PlanStore.
func (r *PlanRepository) LoadPlans(ctx context.Context, orderID string) ([]planning.PlanRecord, error) {
	plans, err := r.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toRecords(plans), nil
}

// DeletePlans implements planning.PlanStore.
func (r *PlanRepository) DeletePlans(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&entity.DailyLinePlan{}).Error
}

// InsertPlans implements planning.PlanStore.
func (r *PlanRepository) InsertPlans(ctx context.Context, records []planning.PlanRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]entity.DailyLinePlan, 0, len(records))
	for _, rec := range records {
		rows = append(rows, entity.PlanFromRecord(rec, r.createdBy))
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, insertBatchSize).Error
}

// ReplaceOrderPlans 在一个事务内用网格替换订单的全部计划（先删后插）
func (r *PlanRepository) ReplaceOrderPlans(ctx context.Context, orderID string, g *planning.Grid) (planning.ChangeSet, error) {
	var cs planning.ChangeSet
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cs, err = planning.Save(ctx, &PlanRepository{db: tx, createdBy: r.createdBy}, orderID, g)
		return err
	})
	return cs, err
}

// Records 获取产线上的计划记录（排产核心格式）
func (r *PlanRepository) Records(ctx context.Context, lineIDs []string, excludeOrder string) ([]planning.PlanRecord, error) {
	plans, err := r.ListByLines(ctx, lineIDs, excludeOrder)
	if err != nil {
		return nil, err
	}
	return toRecords(plans), nil
}

type planStyleRow struct {
	LineID          string
	PlanDate        time.Time
	PlannedQuantity int
	StyleID         string
}

// Stats 按产线汇总历史计划；styleID 非空时统计该款式的排产天数
func (r *PlanRepository) Stats(ctx context.Context, lineIDs []string, styleID string) ([]planning.LineStats, error) {
	if len(lineIDs) == 0 {
		return nil, nil
	}
	var rows []planStyleRow
	err := r.db.WithContext(ctx).
		Table("prod_daily_line_plans AS p").
		Select("p.line_id, p.plan_date, p.planned_quantity, o.style_id").
		Joins("LEFT JOIN prod_orders o ON o.id = p.order_id").
		Where("p.line_id IN ?", lineIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	type acc struct {
		days      map[planning.Date]bool
		styleDays map[planning.Date]bool
		total     float64
		last      planning.Date
	}
	byLine := make(map[string]*acc, len(lineIDs))
	for _, row := range rows {
		a, ok := byLine[row.LineID]
		if !ok {
			a = &acc{days: map[planning.Date]bool{}, styleDays: map[planning.Date]bool{}}
			byLine[row.LineID] = a
		}
		d := planning.DateOf(row.PlanDate)
		a.days[d] = true
		if styleID != "" && row.StyleID == styleID {
			a.styleDays[d] = true
		}
		a.total += float64(row.PlannedQuantity)
		if d.After(a.last) {
			a.last = d
		}
	}

	stats := make([]planning.LineStats, 0, len(lineIDs))
	for _, id := range lineIDs {
		s := planning.LineStats{LineID: id}
		if a, ok := byLine[id]; ok {
			s.PlannedDays = len(a.days)
			s.TotalPlanned = a.total
			s.LastPlanned = a.last
			s.StyleDays = len(a.styleDays)
			if s.PlannedDays > 0 {
				s.AverageDaily = a.total / float64(s.PlannedDays)
			}
		}
		stats = append(stats, s)
	}
	return stats, nil
}

func toRecords(plans []entity.DailyLinePlan) []planning.PlanRecord {
	records := make([]planning.PlanRecord, 0, len(plans))
	for i := range plans {
		records = append(records, plans[i].Record())
	}
	return records
}
