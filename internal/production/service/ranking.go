package service

import (
	"context"

	"github.com/bitfantasy/lineplan/internal/planning"
	"go.uber.org/zap"
)

// cachedRanker 在推荐服务前加一层缓存；缓存故障只记录日志
type cachedRanker struct {
	inner  planning.LineRanker
	cache  RankingCache
	logger *zap.Logger
}

func newCachedRanker(inner planning.LineRanker, cache RankingCache, logger *zap.Logger) *cachedRanker {
	return &cachedRanker{inner: inner, cache: cache, logger: logger}
}

func (r *cachedRanker) Rank(ctx context.Context, req planning.RankRequest) ([]planning.RankedLine, error) {
	lines, hit, err := r.cache.Get(ctx, req)
	if err != nil {
		r.logger.Warn("Ranking cache read failed", zap.String("style_id", req.StyleID), zap.Error(err))
	}
	if hit {
		return lines, nil
	}

	lines, err = r.inner.Rank(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		if err := r.cache.Set(ctx, req, lines); err != nil {
			r.logger.Warn("Ranking cache write failed", zap.String("style_id", req.StyleID), zap.Error(err))
		}
	}
	return lines, nil
}
