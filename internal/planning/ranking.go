package planning

import "context"

// CandidateLine is a line offered to the ranking advisor.
type CandidateLine struct {
	LineID        string `json:"line_id"`
	Name          string `json:"name"`
	NextAvailable Date   `json:"next_available"`
}

// LineStats 产线历史排产统计
type LineStats struct {
	LineID       string  `json:"line_id"`
	PlannedDays  int     `json:"planned_days"`
	TotalPlanned float64 `json:"total_planned"`
	AverageDaily float64 `json:"average_daily"`
	LastPlanned  Date    `json:"last_planned"`
	StyleDays    int     `json:"style_days"`
}

// RankRequest is what the advisor sees of a planning attempt.
type RankRequest struct {
	StyleID          string          `json:"style_id"`
	StyleCode        string          `json:"style_code"`
	SAM              float64         `json:"sam"`
	TargetEfficiency float64         `json:"target_efficiency"`
	WorkingHours     float64         `json:"working_hours"`
	Manpower         Manpower        `json:"manpower"`
	Candidates       []CandidateLine `json:"candidates"`
	Stats            []LineStats     `json:"stats"`
	Hint             string          `json:"hint,omitempty"`
}

// RankedLine 推荐产线
type RankedLine struct {
	LineID           string  `json:"line_id"`
	DailyTarget      float64 `json:"daily_target"`
	SuitabilityScore float64 `json:"suitability_score"`
	Rationale        string  `json:"rationale,omitempty"`
}

// LineRanker is the external advisory collaborator of assisted planning.
type LineRanker interface {
	Rank(ctx context.Context, req RankRequest) ([]RankedLine, error)
}

// AssistedSelection is the outcome of ranking, ready for Allocate.
type AssistedSelection struct {
	Lines    []LineTarget `json:"lines"`
	Ranked   []RankedLine `json:"ranked"`
	Fallback bool         `json:"fallback"`
	// Err holds the advisor failure when Fallback is set because of one.
	Err error `json:"-"`
}

// StandardTarget is the daily target every line gets without advice.
func StandardTarget(req RankRequest) float64 {
	return DailyCapacity(req.Manpower, req.WorkingHours, req.TargetEfficiency, req.SAM)
}

// SelectRanked asks the ranker and turns its answer into line targets, keeping
// at most limit lines (0 keeps all). A nil ranker, a failing ranker or an answer
// with no usable candidate falls back to the standard target on the candidates
// in their given order. The error never escapes as fatal.
func SelectRanked(ctx context.Context, ranker LineRanker, req RankRequest, limit int) AssistedSelection {
	fallback := StandardTarget(req)
	if ranker == nil {
		return fallbackSelection(req.Candidates, fallback, limit, nil)
	}
	ranked, err := ranker.Rank(ctx, req)
	if err != nil {
		return fallbackSelection(req.Candidates, fallback, limit, err)
	}
	return FromRanking(req.Candidates, ranked, fallback, limit)
}

// FromRanking filters a ranked list to known candidates, drops duplicates and
// replaces non-positive targets with fallback.
func FromRanking(candidates []CandidateLine, ranked []RankedLine, fallback float64, limit int) AssistedSelection {
	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.LineID] = true
	}
	sel := AssistedSelection{}
	used := make(map[string]bool, len(ranked))
	for _, r := range ranked {
		if !known[r.LineID] || used[r.LineID] {
			continue
		}
		if limit > 0 && len(sel.Lines) >= limit {
			break
		}
		used[r.LineID] = true
		target := r.DailyTarget
		if target <= 0 {
			target = fallback
			r.DailyTarget = fallback
		}
		sel.Ranked = append(sel.Ranked, r)
		sel.Lines = append(sel.Lines, LineTarget{LineID: r.LineID, DailyTarget: target})
	}
	if len(sel.Lines) == 0 {
		return fallbackSelection(candidates, fallback, limit, nil)
	}
	return sel
}

func fallbackSelection(candidates []CandidateLine, target float64, limit int, cause error) AssistedSelection {
	sel := AssistedSelection{Fallback: true, Err: cause}
	for _, c := range candidates {
		if limit > 0 && len(sel.Lines) >= limit {
			break
		}
		sel.Lines = append(sel.Lines, LineTarget{LineID: c.LineID, DailyTarget: target})
	}
	return sel
}
