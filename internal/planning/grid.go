package planning

import (
	"encoding/json"
	"sort"
)

// Cell 单个线日的计划单元
type Cell struct {
	TotalQty          float64            `json:"total_qty"`
	EfficiencyPercent float64            `json:"efficiency_percent"`
	Manpower          Manpower           `json:"manpower"`
	DailyTarget       float64            `json:"daily_target"`
	ColorPlans        map[string]float64 `json:"color_plans"`
}

func (c Cell) clone() Cell {
	plans := make(map[string]float64, len(c.ColorPlans))
	for k, v := range c.ColorPlans {
		plans[k] = v
	}
	c.ColorPlans = plans
	return c
}

// GridParams are the run-wide values every cell derives from.
type GridParams struct {
	OrderID      string   `json:"order_id"`
	SAM          float64  `json:"sam"`
	WorkingHours float64  `json:"working_hours"`
	Manpower     Manpower `json:"manpower"`
}

// Grid 计划网格 date → line → cell
//
// A Grid is never mutated after it is handed out. Edits return a new Grid that
// shares untouched days with its predecessor, so an older reference stays valid
// as an undo point.
type Grid struct {
	params GridParams
	days   map[Date]map[string]Cell
}

func NewGrid(params GridParams) *Grid {
	return &Grid{params: params, days: make(map[Date]map[string]Cell)}
}

func (g *Grid) Params() GridParams {
	return g.params
}

// Dates returns the planned dates in ascending order.
func (g *Grid) Dates() []Date {
	dates := make([]Date, 0, len(g.days))
	for d := range g.days {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// LinesOn returns the line IDs with a cell on date, sorted.
func (g *Grid) LinesOn(date Date) []string {
	day := g.days[date]
	ids := make([]string, 0, len(day))
	for id := range day {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LineIDs returns every line that appears anywhere in the grid, sorted.
func (g *Grid) LineIDs() []string {
	seen := make(map[string]struct{})
	for _, day := range g.days {
		for id := range day {
			seen[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Cell returns a copy of the addressed cell.
func (g *Grid) Cell(date Date, lineID string) (Cell, bool) {
	c, ok := g.days[date][lineID]
	if !ok {
		return Cell{}, false
	}
	return c.clone(), true
}

func (g *Grid) Len() int {
	return len(g.days)
}

func (g *Grid) IsEmpty() bool {
	return len(g.days) == 0
}

// TotalQuantity sums every color plan in the grid.
func (g *Grid) TotalQuantity() float64 {
	var total float64
	for _, day := range g.days {
		for _, c := range day {
			total += c.TotalQty
		}
	}
	return total
}

// CompletionDate is the last date holding a non-empty cell.
func (g *Grid) CompletionDate() (Date, bool) {
	var last Date
	for d := range g.days {
		if last.IsZero() || d.After(last) {
			last = d
		}
	}
	return last, !last.IsZero()
}

// ColorTotals 按颜色汇总
func (g *Grid) ColorTotals() map[string]float64 {
	out := make(map[string]float64)
	for _, day := range g.days {
		for _, c := range day {
			for color, qty := range c.ColorPlans {
				out[color] += qty
			}
		}
	}
	return out
}

// LineTotals 按产线汇总
func (g *Grid) LineTotals() map[string]float64 {
	out := make(map[string]float64)
	for _, day := range g.days {
		for id, c := range day {
			out[id] += c.TotalQty
		}
	}
	return out
}

// SetColorQuantity replaces one color's quantity in a cell and returns the edited grid.
// A missing cell is created with the grid's default manpower and the line's known
// daily target. Negative quantities are treated as zero.
func (g *Grid) SetColorQuantity(date Date, lineID, colorID string, qty float64) *Grid {
	if qty < 0 {
		qty = 0
	}
	cell, ok := g.days[date][lineID]
	if !ok {
		if qty == 0 {
			return g
		}
		cell = Cell{Manpower: g.params.Manpower, DailyTarget: g.dailyTargetOf(lineID)}
	}
	cell = cell.clone()
	if qty == 0 {
		delete(cell.ColorPlans, colorID)
	} else {
		cell.ColorPlans[colorID] = qty
	}
	cell.TotalQty = sumPlans(cell.ColorPlans)
	cell.EfficiencyPercent = CellEfficiency(cell.TotalQty, cell.Manpower, g.params.WorkingHours, g.params.SAM)

	next := g.withCell(date, lineID, cell)
	next.pruneDay(date)
	return next
}

// SetManpower updates one manpower field of an existing cell; color plans stay untouched.
func (g *Grid) SetManpower(date Date, lineID string, field ManpowerField, value int) *Grid {
	cell, ok := g.days[date][lineID]
	if !ok || !field.Valid() {
		return g
	}
	cell = cell.clone()
	cell.Manpower = cell.Manpower.with(field, value)
	cell.EfficiencyPercent = CellEfficiency(cell.TotalQty, cell.Manpower, g.params.WorkingHours, g.params.SAM)
	return g.withCell(date, lineID, cell)
}

// withCell copies the day map for date and the top-level map, then stores cell.
func (g *Grid) withCell(date Date, lineID string, cell Cell) *Grid {
	next := &Grid{params: g.params, days: make(map[Date]map[string]Cell, len(g.days)+1)}
	for d, day := range g.days {
		next.days[d] = day
	}
	day := make(map[string]Cell, len(g.days[date])+1)
	for id, c := range g.days[date] {
		day[id] = c
	}
	day[lineID] = cell
	next.days[date] = day
	return next
}

// pruneDay drops empty cells on date and the date itself when nothing remains.
// Only called on a day map the receiver owns.
func (g *Grid) pruneDay(date Date) {
	day := g.days[date]
	for id, c := range day {
		if c.TotalQty <= 0 {
			delete(day, id)
		}
	}
	if len(day) == 0 {
		delete(g.days, date)
	}
}

func (g *Grid) dailyTargetOf(lineID string) float64 {
	for _, d := range g.Dates() {
		if c, ok := g.days[d][lineID]; ok {
			return c.DailyTarget
		}
	}
	return 0
}

// put stores a freshly built cell. Builders only: the grid must not be shared yet.
func (g *Grid) put(date Date, lineID string, cell Cell) {
	if cell.TotalQty <= 0 {
		return
	}
	day, ok := g.days[date]
	if !ok {
		day = make(map[string]Cell)
		g.days[date] = day
	}
	day[lineID] = cell
}

func sumPlans(plans map[string]float64) float64 {
	var total float64
	for _, v := range plans {
		total += v
	}
	return total
}

// GridFromRecords rebuilds a grid from persisted plan records. Manpower is taken
// from the first record of each line-day; daily targets come from targets when known.
func GridFromRecords(params GridParams, records []PlanRecord, targets map[string]float64) *Grid {
	g := NewGrid(params)
	for _, rec := range records {
		if rec.PlannedQuantity <= 0 {
			continue
		}
		day, ok := g.days[rec.Date]
		if !ok {
			day = make(map[string]Cell)
			g.days[rec.Date] = day
		}
		cell, ok := day[rec.LineID]
		if !ok {
			cell = Cell{
				Manpower:    rec.Manpower,
				DailyTarget: targets[rec.LineID],
				ColorPlans:  make(map[string]float64),
			}
		}
		cell.ColorPlans[rec.ColorID] += float64(rec.PlannedQuantity)
		cell.TotalQty = sumPlans(cell.ColorPlans)
		cell.EfficiencyPercent = CellEfficiency(cell.TotalQty, cell.Manpower, params.WorkingHours, params.SAM)
		day[rec.LineID] = cell
	}
	return g
}

type gridJSON struct {
	GridParams
	Days map[Date]map[string]Cell `json:"days"`
}

func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(gridJSON{GridParams: g.params, Days: g.days})
}
