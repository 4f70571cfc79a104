package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bitfantasy/lineplan/internal/planning"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lineplan:ranking:"

// RankingCache 产线推荐结果缓存（Redis）
type RankingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRankingCache(rdb *redis.Client, ttl time.Duration) *RankingCache {
	return &RankingCache{rdb: rdb, ttl: ttl}
}

// RankingKey identifies a ranking request independent of candidate order.
// Line backlog (next available date and history stats) is part of the key, so
// a saved plan that moves a line's availability misses the cache.
func RankingKey(req planning.RankRequest) string {
	candidates := append([]planning.CandidateLine(nil), req.Candidates...)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].LineID < candidates[j].LineID })
	stats := append([]planning.LineStats(nil), req.Stats...)
	sort.Slice(stats, func(i, j int) bool { return stats[i].LineID < stats[j].LineID })

	h := sha256.New()
	fmt.Fprintf(h, "%.4f|%.2f|%.2f|%d|%s|%s",
		req.SAM, req.TargetEfficiency, req.WorkingHours,
		req.Manpower.Operators, strings.TrimSpace(req.Hint), req.StyleCode)
	for _, c := range candidates {
		fmt.Fprintf(h, "|c:%s@%s", c.LineID, c.NextAvailable)
	}
	for _, st := range stats {
		fmt.Fprintf(h, "|s:%s:%d:%.2f:%d:%s", st.LineID, st.PlannedDays, st.TotalPlanned, st.StyleDays, st.LastPlanned)
	}
	return keyPrefix + req.StyleID + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

// Get 读取缓存；未命中返回 false
func (c *RankingCache) Get(ctx context.Context, req planning.RankRequest) ([]planning.RankedLine, bool, error) {
	raw, err := c.rdb.Get(ctx, RankingKey(req)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var lines []planning.RankedLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, false, fmt.Errorf("decode cached ranking: %w", err)
	}
	return lines, true, nil
}

// Set 写入缓存
func (c *RankingCache) Set(ctx context.Context, req planning.RankRequest, lines []planning.RankedLine) error {
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, RankingKey(req), raw, c.ttl).Err()
}
