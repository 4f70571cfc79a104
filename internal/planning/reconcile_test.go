package planning

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type memoryStore struct {
	records  []PlanRecord
	calls    []string
	failOn   string
	deleted  []string
	inserted []PlanRecord
}

func (m *memoryStore) LoadPlans(_ context.Context, orderID string) ([]PlanRecord, error) {
	m.calls = append(m.calls, "load")
	var out []PlanRecord
	for _, r := range m.records {
		if r.OrderID == orderID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) DeletePlans(_ context.Context, ids []string) error {
	m.calls = append(m.calls, "delete")
	if m.failOn == "delete" {
		return errors.New("connection reset")
	}
	m.deleted = append(m.deleted, ids...)
	return nil
}

func (m *memoryStore) InsertPlans(_ context.Context, records []PlanRecord) error {
	m.calls = append(m.calls, "insert")
	if m.failOn == "insert" {
		return errors.New("unique violation")
	}
	m.inserted = append(m.inserted, records...)
	return nil
}

func TestFlattenIsDeterministic(t *testing.T) {
	g := fixtureGrid(t)
	first := Flatten(g)
	second := Flatten(g)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("flattening twice should yield identical records")
	}
	if len(first) != 4 {
		t.Fatalf("expected 4 records (A, A+B, B), got %d", len(first))
	}
	tuesday := first[1:3]
	if tuesday[0].ColorID != "A" || tuesday[1].ColorID != "B" || tuesday[0].Date != monday.AddDays(1) {
		t.Fatalf("unexpected ordering %+v", tuesday)
	}
	for _, r := range first {
		if r.ID != "" || r.OrderID != "ORD-1" || r.Manpower.Operators != 2 {
			t.Fatalf("unexpected record %+v", r)
		}
	}
}

func TestFlattenSkipsRoundedZero(t *testing.T) {
	g := fixtureGrid(t).SetColorQuantity(monday, "L1", "B", 0.4)
	for _, r := range Flatten(g) {
		if r.Date == monday && r.ColorID == "B" {
			t.Fatalf("0.4 units should not be persisted: %+v", r)
		}
	}
	g = g.SetColorQuantity(monday, "L1", "B", 2.6)
	found := false
	for _, r := range Flatten(g) {
		if r.Date == monday && r.ColorID == "B" {
			found = r.PlannedQuantity == 3
		}
	}
	if !found {
		t.Fatal("expected 2.6 to round to 3")
	}
}

func TestSaveDeletesThenInserts(t *testing.T) {
	store := &memoryStore{records: []PlanRecord{
		{ID: "old-1", OrderID: "ORD-1", LineID: "L1", ColorID: "A", Date: monday, PlannedQuantity: 10},
		{ID: "old-2", OrderID: "ORD-1", LineID: "L2", ColorID: "A", Date: monday, PlannedQuantity: 10},
		{ID: "other", OrderID: "ORD-2", LineID: "L1", ColorID: "A", Date: monday, PlannedQuantity: 10},
	}}
	g := fixtureGrid(t)
	cs, err := Save(context.Background(), store, "ORD-1", g)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !reflect.DeepEqual(store.calls, []string{"load", "delete", "insert"}) {
		t.Fatalf("unexpected call order %v", store.calls)
	}
	if !reflect.DeepEqual(store.deleted, []string{"old-1", "old-2"}) {
		t.Fatalf("unexpected deletions %v", store.deleted)
	}
	if len(store.inserted) != 4 || len(cs.Insert) != 4 {
		t.Fatalf("expected 4 inserts, got %d", len(store.inserted))
	}
	ids := map[string]bool{}
	for _, r := range store.inserted {
		if r.ID == "" || ids[r.ID] {
			t.Fatalf("inserted record needs a fresh unique ID: %+v", r)
		}
		ids[r.ID] = true
	}
}

func TestSaveEmptyGridOnlyDeletes(t *testing.T) {
	store := &memoryStore{records: []PlanRecord{{ID: "old-1", OrderID: "ORD-1"}}}
	cs, err := Save(context.Background(), store, "ORD-1", NewGrid(GridParams{OrderID: "ORD-1"}))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(cs.Insert) != 0 || !reflect.DeepEqual(store.calls, []string{"load", "delete"}) {
		t.Fatalf("unexpected calls %v", store.calls)
	}
}

func TestSavePropagatesStoreFailure(t *testing.T) {
	for _, stage := range []string{"delete", "insert"} {
		store := &memoryStore{failOn: stage, records: []PlanRecord{{ID: "old-1", OrderID: "ORD-1"}}}
		if _, err := Save(context.Background(), store, "ORD-1", fixtureGrid(t)); err == nil {
			t.Fatalf("expected %s failure to surface", stage)
		}
	}
}
