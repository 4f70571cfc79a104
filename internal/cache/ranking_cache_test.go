package cache

import (
	"strings"
	"testing"

	"github.com/bitfantasy/lineplan/internal/planning"
)

func TestRankingKey(t *testing.T) {
	base := planning.RankRequest{
		StyleID:    "s1",
		SAM:        12.5,
		Manpower:   planning.Manpower{Operators: 30},
		Candidates: []planning.CandidateLine{{LineID: "L1"}, {LineID: "L2"}},
	}
	swapped := base
	swapped.Candidates = []planning.CandidateLine{{LineID: "L2"}, {LineID: "L1"}}

	k := RankingKey(base)
	if !strings.HasPrefix(k, keyPrefix+"s1:") {
		t.Fatalf("Unexpected key %q", k)
	}
	if RankingKey(swapped) != k {
		t.Error("Candidate order must not change the key")
	}

	hinted := base
	hinted.Hint = "prefer floor 2"
	if RankingKey(hinted) == k {
		t.Error("Hint must change the key")
	}
	fewer := base
	fewer.Candidates = base.Candidates[:1]
	if RankingKey(fewer) == k {
		t.Error("Candidate set must change the key")
	}

	busier := base
	busier.Candidates = []planning.CandidateLine{{LineID: "L1", NextAvailable: planning.NewDate(2026, 10, 20)}, {LineID: "L2"}}
	if RankingKey(busier) == k {
		t.Error("Line availability must change the key")
	}

	withStats := base
	withStats.Stats = []planning.LineStats{{LineID: "L1", PlannedDays: 3, TotalPlanned: 900, LastPlanned: planning.NewDate(2026, 10, 14)}}
	statsKey := RankingKey(withStats)
	if statsKey == k {
		t.Error("Line stats must change the key")
	}
	moreStats := base
	moreStats.Stats = []planning.LineStats{{LineID: "L1", PlannedDays: 4, TotalPlanned: 1300, LastPlanned: planning.NewDate(2026, 10, 15)}}
	if RankingKey(moreStats) == statsKey {
		t.Error("Changed stats must change the key")
	}
}
