package planning

import (
	"context"
	"errors"
	"testing"
)

type stubRanker struct {
	ranked []RankedLine
	err    error
	calls  int
}

func (s *stubRanker) Rank(context.Context, RankRequest) ([]RankedLine, error) {
	s.calls++
	return s.ranked, s.err
}

func rankRequest() RankRequest {
	return RankRequest{
		StyleID:          "ST-1",
		SAM:              1,
		TargetEfficiency: 85,
		WorkingHours:     8,
		Manpower:         Manpower{Operators: 1},
		Candidates: []CandidateLine{
			{LineID: "L1"}, {LineID: "L2"}, {LineID: "L3"},
		},
	}
}

func TestSelectRankedUsesAdvice(t *testing.T) {
	ranker := &stubRanker{ranked: []RankedLine{
		{LineID: "L3", DailyTarget: 500, SuitabilityScore: 0.9},
		{LineID: "L9", DailyTarget: 900, SuitabilityScore: 0.8},
		{LineID: "L3", DailyTarget: 100, SuitabilityScore: 0.7},
		{LineID: "L1", DailyTarget: 0, SuitabilityScore: 0.6},
		{LineID: "L2", DailyTarget: 300, SuitabilityScore: 0.5},
	}}
	sel := SelectRanked(context.Background(), ranker, rankRequest(), 2)
	if sel.Fallback || ranker.calls != 1 {
		t.Fatalf("unexpected fallback %+v", sel)
	}
	want := []LineTarget{{LineID: "L3", DailyTarget: 500}, {LineID: "L1", DailyTarget: 408}}
	if len(sel.Lines) != len(want) {
		t.Fatalf("expected %v, got %v", want, sel.Lines)
	}
	for i := range want {
		if sel.Lines[i].LineID != want[i].LineID || !almostEqual(sel.Lines[i].DailyTarget, want[i].DailyTarget) {
			t.Errorf("line %d: expected %+v, got %+v", i, want[i], sel.Lines[i])
		}
	}
}

func TestSelectRankedFallsBackOnFailure(t *testing.T) {
	boom := errors.New("advisor timeout")
	sel := SelectRanked(context.Background(), &stubRanker{err: boom}, rankRequest(), 0)
	if !sel.Fallback || !errors.Is(sel.Err, boom) {
		t.Fatalf("expected fallback carrying the cause, got %+v", sel)
	}
	if len(sel.Lines) != 3 {
		t.Fatalf("expected every candidate, got %v", sel.Lines)
	}
	for _, l := range sel.Lines {
		if !almostEqual(l.DailyTarget, 408) {
			t.Fatalf("expected standard target 408, got %v", l.DailyTarget)
		}
	}
}

func TestSelectRankedFallsBackOnUselessAnswer(t *testing.T) {
	sel := SelectRanked(context.Background(), &stubRanker{ranked: []RankedLine{{LineID: "nope"}}}, rankRequest(), 1)
	if !sel.Fallback || sel.Err != nil {
		t.Fatalf("expected silent fallback, got %+v", sel)
	}
	if len(sel.Lines) != 1 || sel.Lines[0].LineID != "L1" {
		t.Fatalf("expected first candidate only, got %v", sel.Lines)
	}
}

func TestSelectRankedWithoutRanker(t *testing.T) {
	sel := SelectRanked(context.Background(), nil, rankRequest(), 0)
	if !sel.Fallback || len(sel.Lines) != 3 {
		t.Fatalf("expected fallback over all candidates, got %+v", sel)
	}
}
