package planning

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"
)

// 2024-01-01 is a Monday.
var monday = NewDate(2024, 1, 1)

func singleLineInput(target, qty float64, start Date) AllocationInput {
	return AllocationInput{
		OrderID:       "ORD-1",
		Lines:         []LineTarget{{LineID: "L1", DailyTarget: target}},
		Remaining:     map[string]float64{"RED": qty},
		NextAvailable: map[string]Date{"L1": start},
		Manpower:      Manpower{Operators: 1, Helpers: 1, Checkers: 1},
		SAM:           1.0,
		WorkingHours:  8,
		NonWorkingDay: time.Sunday,
	}
}

func cellQty(t *testing.T, g *Grid, d Date, line string) float64 {
	t.Helper()
	c, ok := g.Cell(d, line)
	if !ok {
		return 0
	}
	return c.TotalQty
}

func TestAllocateSingleColorSingleLine(t *testing.T) {
	target := DailyCapacity(Manpower{Operators: 1}, 8, 85, 1.0)
	alloc, err := Allocate(singleLineInput(target, 1000, monday))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	expect := []float64{408, 408, 184}
	dates := alloc.Grid.Dates()
	if len(dates) != len(expect) {
		t.Fatalf("expected %d days, got %d (%v)", len(expect), len(dates), dates)
	}
	for i, d := range dates {
		if d != monday.AddDays(i) {
			t.Errorf("day %d: expected %s, got %s", i, monday.AddDays(i), d)
		}
		if got := cellQty(t, alloc.Grid, d, "L1"); got != expect[i] {
			t.Errorf("day %d: expected %v units, got %v", i, expect[i], got)
		}
	}
	if alloc.CompletionDate != monday.AddDays(2) {
		t.Fatalf("expected completion %s, got %s", monday.AddDays(2), alloc.CompletionDate)
	}
	if alloc.Unplanned() != 0 {
		t.Fatalf("expected nothing unplanned, got %v", alloc.Unplanned())
	}
	c, _ := alloc.Grid.Cell(monday, "L1")
	if !almostEqual(c.EfficiencyPercent, 85) {
		t.Fatalf("expected 85%% efficiency on a full day, got %v", c.EfficiencyPercent)
	}
}

func TestAllocateSkipsNonWorkingDay(t *testing.T) {
	saturday := NewDate(2024, 1, 6)
	alloc, err := Allocate(singleLineInput(408, 1000, saturday))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	want := []Date{saturday, NewDate(2024, 1, 8), NewDate(2024, 1, 9)}
	got := alloc.Grid.Dates()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("day %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if alloc.CompletionDate != NewDate(2024, 1, 9) {
		t.Fatalf("unexpected completion %s", alloc.CompletionDate)
	}
}

func TestAllocateColorSequenceStartDates(t *testing.T) {
	tests := []struct {
		name   string
		bStart Date
		expect map[Date]map[string]float64
	}{
		{
			name:   "B starts two days after A",
			bStart: monday.AddDays(2),
			expect: map[Date]map[string]float64{
				monday:            {"A": 100},
				monday.AddDays(1): {"A": 50},
				monday.AddDays(2): {"B": 100},
			},
		},
		{
			name:   "B starts one day after A",
			bStart: monday.AddDays(1),
			expect: map[Date]map[string]float64{
				monday:            {"A": 100},
				monday.AddDays(1): {"A": 50, "B": 50},
				monday.AddDays(2): {"B": 50},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := singleLineInput(100, 0, monday)
			in.Remaining = map[string]float64{"A": 150, "B": 100}
			in.Sequence = []ColorStart{{ColorID: "A", StartDate: monday}, {ColorID: "B", StartDate: tt.bStart}}
			alloc, err := Allocate(in)
			if err != nil {
				t.Fatalf("allocate: %v", err)
			}
			if alloc.Grid.Len() != len(tt.expect) {
				t.Fatalf("expected %d days, got %d", len(tt.expect), alloc.Grid.Len())
			}
			for d, colors := range tt.expect {
				c, ok := alloc.Grid.Cell(d, "L1")
				if !ok {
					t.Fatalf("missing cell on %s", d)
				}
				if len(c.ColorPlans) != len(colors) {
					t.Fatalf("%s: expected colors %v, got %v", d, colors, c.ColorPlans)
				}
				for color, qty := range colors {
					if c.ColorPlans[color] != qty {
						t.Errorf("%s %s: expected %v, got %v", d, color, qty, c.ColorPlans[color])
					}
				}
			}
		})
	}
}

func TestAllocateHonorsLineAvailability(t *testing.T) {
	in := singleLineInput(100, 500, monday)
	in.Lines = append(in.Lines, LineTarget{LineID: "L2", DailyTarget: 100})
	in.NextAvailable["L2"] = monday.AddDays(2)
	alloc, err := Allocate(in)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	for _, d := range alloc.Grid.Dates() {
		if d.Before(monday.AddDays(2)) {
			if _, ok := alloc.Grid.Cell(d, "L2"); ok {
				t.Fatalf("L2 planned on %s before it is free", d)
			}
		}
	}
	if got := cellQty(t, alloc.Grid, monday.AddDays(2), "L2"); got != 100 {
		t.Fatalf("expected L2 to pick up work on its first free day, got %v", got)
	}
	if alloc.CompletionDate != monday.AddDays(3) {
		t.Fatalf("expected completion on Thursday, got %s", alloc.CompletionDate)
	}
}

func TestAllocateStartsAtEarliestLine(t *testing.T) {
	in := singleLineInput(100, 100, monday.AddDays(3))
	in.Lines = append(in.Lines, LineTarget{LineID: "L2", DailyTarget: 100})
	in.NextAvailable["L2"] = monday.AddDays(1)
	alloc, err := Allocate(in)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got := cellQty(t, alloc.Grid, monday.AddDays(1), "L2"); got != 100 {
		t.Fatalf("expected everything on L2 on Tuesday, got %v", got)
	}
}

func TestAllocateDegenerateInput(t *testing.T) {
	zeroOps := singleLineInput(408, 1000, monday)
	zeroOps.Manpower = Manpower{}
	alloc, err := Allocate(zeroOps)
	if !errors.Is(err, ErrNoUsableCapacity) || !errors.Is(err, ErrZeroOperators) {
		t.Fatalf("expected zero operators error, got %v", err)
	}
	if alloc != nil {
		t.Fatal("expected no allocation on degenerate input")
	}

	zeroSAM := singleLineInput(408, 1000, monday)
	zeroSAM.SAM = 0
	if _, err := Allocate(zeroSAM); !errors.Is(err, ErrZeroSAM) {
		t.Fatalf("expected zero SAM error, got %v", err)
	}

	zeroTarget := singleLineInput(0, 1000, monday)
	if _, err := Allocate(zeroTarget); !errors.Is(err, ErrNoUsableCapacity) {
		t.Fatalf("expected no usable capacity, got %v", err)
	}

	noStart := singleLineInput(100, 1000, Date{})
	noStart.NextAvailable = nil
	if _, err := Allocate(noStart); !errors.Is(err, ErrNoStartDate) {
		t.Fatalf("expected no start date, got %v", err)
	}
	if !IsDegenerate(ErrZeroSAM) || IsDegenerate(&HorizonExceededError{}) {
		t.Fatal("IsDegenerate misclassifies")
	}
}

func TestAllocateNoLinesIsEmpty(t *testing.T) {
	in := singleLineInput(408, 1000, monday)
	in.Lines = nil
	alloc, err := Allocate(in)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !alloc.Grid.IsEmpty() || !alloc.CompletionDate.IsZero() {
		t.Fatal("expected empty result")
	}
}

func TestAllocateHorizonExceededKeepsPartialPlan(t *testing.T) {
	alloc, err := Allocate(singleLineInput(1, 1000, monday))
	var horizon *HorizonExceededError
	if !errors.As(err, &horizon) {
		t.Fatalf("expected horizon error, got %v", err)
	}
	if alloc == nil || alloc.Grid.IsEmpty() {
		t.Fatal("expected partial allocation alongside the warning")
	}
	if !strings.Contains(err.Error(), "more than a year") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	// One unit per working day across 365 calendar days.
	if alloc.Planned != float64(alloc.Grid.Len()) {
		t.Fatalf("planned %v but grid has %d days", alloc.Planned, alloc.Grid.Len())
	}
	if !almostEqual(horizon.Remaining, 1000-alloc.Planned) {
		t.Fatalf("expected remaining %v, got %v", 1000-alloc.Planned, horizon.Remaining)
	}
	if alloc.CompletionDate != horizon.LastPlanned || alloc.CompletionDate.After(monday.AddDays(MaxPlanningDays)) {
		t.Fatalf("unexpected completion %s", alloc.CompletionDate)
	}
	if IsDegenerate(err) {
		t.Fatal("horizon warning must not be degenerate")
	}
}

func TestAllocateUnsequencedColorsFollowColorOrder(t *testing.T) {
	in := singleLineInput(100, 0, monday)
	in.Remaining = map[string]float64{"A": 50, "B": 50, "C": 50}
	in.Sequence = []ColorStart{{ColorID: "C", StartDate: monday}}
	in.ColorOrder = []string{"B", "A", "C"}
	alloc, err := Allocate(in)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	first, _ := alloc.Grid.Cell(monday, "L1")
	if first.ColorPlans["C"] != 50 || first.ColorPlans["B"] != 50 {
		t.Fatalf("expected C then B on day one, got %v", first.ColorPlans)
	}
	second, _ := alloc.Grid.Cell(monday.AddDays(1), "L1")
	if second.ColorPlans["A"] != 50 {
		t.Fatalf("expected A on day two, got %v", second.ColorPlans)
	}
}

func TestAllocateFractionalTargetKeepsColorTotal(t *testing.T) {
	alloc, err := Allocate(singleLineInput(300.4, 1000, monday))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	expect := []float64{300, 301, 300, 99}
	dates := alloc.Grid.Dates()
	if len(dates) != len(expect) {
		t.Fatalf("expected %d days, got %v", len(expect), dates)
	}
	for i, d := range dates {
		if got := cellQty(t, alloc.Grid, d, "L1"); got != expect[i] {
			t.Errorf("day %d: expected %v, got %v", i, expect[i], got)
		}
	}
	var flattened int
	for _, r := range Flatten(alloc.Grid) {
		flattened += r.PlannedQuantity
	}
	if flattened != 1000 {
		t.Fatalf("flattened %d of 1000", flattened)
	}
}

func TestAllocateSplitColorAcrossLinesSameDay(t *testing.T) {
	in := AllocationInput{
		OrderID: "ORD-1",
		Lines: []LineTarget{
			{LineID: "L1", DailyTarget: 10.5},
			{LineID: "L2", DailyTarget: 10.5},
		},
		Remaining:     map[string]float64{"A": 11, "B": 5, "C": 5, "D": 5},
		ColorOrder:    []string{"A", "B", "C", "D"},
		Start:         monday,
		Manpower:      Manpower{Operators: 1},
		SAM:           1,
		WorkingHours:  8,
		NonWorkingDay: time.Sunday,
	}
	alloc, err := Allocate(in)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got := alloc.Grid.TotalQuantity(); got != 26 {
		t.Fatalf("expected 26 planned, got %v", got)
	}
	for color, qty := range alloc.Grid.ColorTotals() {
		if qty != in.Remaining[color] {
			t.Fatalf("color %s planned %v of %v", color, qty, in.Remaining[color])
		}
	}
	first, _ := alloc.Grid.Cell(monday, "L1")
	if first.ColorPlans["A"] != 11 || first.TotalQty > 11.5 {
		t.Fatalf("unexpected first cell %+v", first)
	}
	second, _ := alloc.Grid.Cell(monday, "L2")
	if _, ok := second.ColorPlans["A"]; ok {
		t.Fatalf("A already complete, got %v on L2", second.ColorPlans)
	}
}

func TestAllocateProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		lineCount := 1 + rng.Intn(4)
		in := AllocationInput{
			OrderID:       "ORD-P",
			Remaining:     map[string]float64{},
			NextAvailable: map[string]Date{},
			Manpower:      Manpower{Operators: 20},
			SAM:           10,
			WorkingHours:  8,
			NonWorkingDay: time.Sunday,
		}
		targets := map[string]float64{}
		for i := 0; i < lineCount; i++ {
			id := string(rune('A' + i))
			target := 50 + rng.Float64()*200
			targets[id] = target
			in.Lines = append(in.Lines, LineTarget{LineID: id, DailyTarget: target})
			in.NextAvailable[id] = monday.AddDays(rng.Intn(10))
		}
		// 偶数轮不设颜色开工日期
		constrained := run%2 == 1
		starts := map[string]Date{}
		for c := 0; c < 1+rng.Intn(5); c++ {
			color := string(rune('a' + c))
			in.Remaining[color] = float64(100 + rng.Intn(3000))
			if constrained {
				starts[color] = monday.AddDays(rng.Intn(15))
			}
			in.Sequence = append(in.Sequence, ColorStart{ColorID: color, StartDate: starts[color]})
		}
		var total float64
		for _, q := range in.Remaining {
			total += q
		}

		alloc, err := Allocate(in)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if got := alloc.Grid.TotalQuantity(); got != total {
			t.Fatalf("run %d: conservation broken, planned %v of %v", run, got, total)
		}
		for color, qty := range alloc.Grid.ColorTotals() {
			if qty != in.Remaining[color] {
				t.Fatalf("run %d: color %s planned %v of %v", run, color, qty, in.Remaining[color])
			}
		}
		for _, d := range alloc.Grid.Dates() {
			if d.Weekday() == time.Sunday {
				t.Fatalf("run %d: cell on non-working day %s", run, d)
			}
			for _, line := range alloc.Grid.LinesOn(d) {
				c, _ := alloc.Grid.Cell(d, line)
				tolerance := 1.0
				if constrained {
					tolerance = float64(len(c.ColorPlans))
				}
				if c.TotalQty > targets[line]+tolerance+epsilon {
					t.Fatalf("run %d: %s/%s exceeds target %v with %v", run, d, line, targets[line], c.TotalQty)
				}
				if d.Before(in.NextAvailable[line]) {
					t.Fatalf("run %d: %s planned on %s before availability", run, line, d)
				}
				for color := range c.ColorPlans {
					if d.Before(starts[color]) {
						t.Fatalf("run %d: color %s planned on %s before its start", run, color, d)
					}
				}
			}
		}
	}
}
