package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bitfantasy/lineplan/internal/planning"
)

func TestRank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != rankPath || r.Method != http.MethodPost {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer k-1" {
			t.Errorf("Missing api key, got %q", r.Header.Get("Authorization"))
		}
		var req planning.RankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.StyleID != "s1" || len(req.Candidates) != 2 {
			t.Errorf("Unexpected payload %+v", req)
		}
		w.Write([]byte(`{"code":0,"msg":"ok","data":{"lines":[{"line_id":"L2","daily_target":350,"suitability_score":0.9}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "k-1", time.Second)
	ranked, err := c.Rank(context.Background(), planning.RankRequest{
		StyleID:    "s1",
		Candidates: []planning.CandidateLine{{LineID: "L1"}, {LineID: "L2"}},
	})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(ranked) != 1 || ranked[0].LineID != "L2" || ranked[0].DailyTarget != 350 {
		t.Errorf("Unexpected ranking %+v", ranked)
	}
}

func TestRankErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http status", http.StatusBadGateway, `{}`},
		{"business code", http.StatusOK, `{"code":500,"msg":"model unavailable"}`},
		{"garbage", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(tt.body))
		}))
		_, err := NewClient(srv.URL, "", time.Second).Rank(context.Background(), planning.RankRequest{})
		if err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
		srv.Close()
	}
}
