package planning

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDailyCapacity(t *testing.T) {
	tests := []struct {
		name   string
		mp     Manpower
		hours  float64
		eff    float64
		sam    float64
		expect float64
	}{
		{"single operator one minute style", Manpower{Operators: 1}, 8, 85, 1.0, 408},
		{"thirty operators", Manpower{Operators: 30}, 8, 85, 12, 30 * 8 * 60 * 0.85 / 12},
		{"zero sam", Manpower{Operators: 10}, 8, 85, 0, 0},
		{"negative sam", Manpower{Operators: 10}, 8, 85, -1, 0},
		{"zero operators", Manpower{}, 8, 85, 1, 0},
		{"zero hours", Manpower{Operators: 10}, 0, 85, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DailyCapacity(tt.mp, tt.hours, tt.eff, tt.sam)
			if !almostEqual(got, tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestCellEfficiency(t *testing.T) {
	got := CellEfficiency(408, Manpower{Operators: 1}, 8, 1)
	if !almostEqual(got, 85) {
		t.Fatalf("expected 85%%, got %v", got)
	}
	if got := CellEfficiency(100, Manpower{}, 8, 1); got != 0 {
		t.Fatalf("expected 0 with no operators, got %v", got)
	}
	if got := CellEfficiency(100, Manpower{Operators: 3}, 8, 0); got != 0 {
		t.Fatalf("expected 0 with zero SAM, got %v", got)
	}
}

func TestDeriveManpower(t *testing.T) {
	tests := []struct {
		operators int
		expect    Manpower
	}{
		{0, Manpower{}},
		{1, Manpower{Operators: 1, Helpers: 1, Checkers: 1}},
		{10, Manpower{Operators: 10, Helpers: 2, Checkers: 1}},
		{12, Manpower{Operators: 12, Helpers: 3, Checkers: 2}},
		{-4, Manpower{}},
	}
	for _, tt := range tests {
		if got := DeriveManpower(tt.operators); got != tt.expect {
			t.Errorf("DeriveManpower(%d) = %+v, want %+v", tt.operators, got, tt.expect)
		}
	}
}

func TestSAMFromBulletin(t *testing.T) {
	bulletin := []Operation{
		{PickupTime: 30, SewingTime: 20, TrimAndDisposalTime: 10, AllocatedOperators: 2},
		{SewingTime: 60, AllocatedOperators: 3},
	}
	if got := SAM(bulletin); !almostEqual(got, 2.0) {
		t.Fatalf("expected SAM 2.0, got %v", got)
	}
	if got := BulletinOperators(bulletin); got != 5 {
		t.Fatalf("expected 5 operators, got %d", got)
	}
	if got := SAM(nil); got != 0 {
		t.Fatalf("expected 0 for empty bulletin, got %v", got)
	}
}

func TestManpowerFieldValid(t *testing.T) {
	for _, f := range []ManpowerField{FieldOperators, FieldHelpers, FieldCheckers} {
		if !f.Valid() {
			t.Errorf("%s should be valid", f)
		}
	}
	if ManpowerField("cutters").Valid() {
		t.Error("unknown field should be invalid")
	}
}
