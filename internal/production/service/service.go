package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bitfantasy/lineplan/internal/config"
	"github.com/bitfantasy/lineplan/internal/planning"
	"github.com/bitfantasy/lineplan/internal/production/entity"
	"github.com/bitfantasy/lineplan/internal/production/repository"
	"github.com/bitfantasy/lineplan/internal/production/sse"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// 业务错误
var (
	ErrSessionNotFound = errors.New("planning session not found or expired")
	ErrOrderNotFound   = errors.New("order not found")
	ErrStyleNotFound   = errors.New("style not found for order")
	ErrLineNotFound    = errors.New("production line not found")
	ErrInvalidMode     = errors.New("invalid planning mode, expected manual, assisted or existing")
	ErrInvalidEdit     = errors.New("invalid grid edit")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrArchiveDisabled = errors.New("plan archive storage is not configured")
	ErrInvalidSetting  = errors.New("invalid factory setting")
)

// EventPublisher 计划事件推送
type EventPublisher interface {
	PublishPlanGenerated(e sse.PlanGenerated)
	PublishPlanSaved(e sse.PlanSaved)
}

// RankingCache 推荐结果缓存
type RankingCache interface {
	Get(ctx context.Context, req planning.RankRequest) ([]planning.RankedLine, bool, error)
	Set(ctx context.Context, req planning.RankRequest, lines []planning.RankedLine) error
}

// Dependencies 服务外部依赖，未配置的留空
type Dependencies struct {
	Ranker planning.LineRanker
	Cache  RankingCache
	Events EventPublisher
	MinIO  *minio.Client
	Logger *zap.Logger
}

// Services 服务集合
type Services struct {
	Planning *PlanningService
	Export   *ExportService
	Sessions *SessionStore
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, cfg *config.Config, deps Dependencies) *Services {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ranker := deps.Ranker
	if ranker != nil && deps.Cache != nil {
		ranker = newCachedRanker(ranker, deps.Cache, logger)
	}

	sessions := NewSessionStore(cfg.Session.TTL, cfg.Session.UndoDepth)
	export := NewExportService(deps.MinIO, cfg.MinIO.Bucket, logger)
	planningSvc := NewPlanningService(repos, sessions, PlanningOptions{
		Factory:  cfg.Factory,
		MaxLines: cfg.Advisor.MaxLines,
		Ranker:   ranker,
		Events:   deps.Events,
		Export:   export,
		Logger:   logger,
	})

	return &Services{
		Planning: planningSvc,
		Export:   export,
		Sessions: sessions,
	}
}

// FactorySettings 生效的工厂参数
type FactorySettings struct {
	WorkingHours     float64      `json:"working_hours_per_day"`
	NonWorkingDay    time.Weekday `json:"non_working_weekday"`
	TargetEfficiency float64      `json:"default_target_efficiency"`
	HorizonDays      int          `json:"horizon_days"`
}

// resolveSettings 配置文件为默认值，数据库中的工厂参数优先
func resolveSettings(cfg config.FactoryConfig, overrides map[string]string, logger *zap.Logger) FactorySettings {
	fs := FactorySettings{
		WorkingHours:     cfg.WorkingHoursPerDay,
		NonWorkingDay:    time.Sunday,
		TargetEfficiency: cfg.DefaultTargetEfficiency,
		HorizonDays:      cfg.HorizonDays,
	}
	if wd, err := planning.ParseWeekday(cfg.NonWorkingWeekday); err == nil {
		fs.NonWorkingDay = wd
	} else if cfg.NonWorkingWeekday != "" {
		logger.Warn("Invalid configured non-working weekday, using sunday", zap.String("value", cfg.NonWorkingWeekday))
	}

	if v, ok := overrides[entity.SettingWorkingHours]; ok {
		if h, err := strconv.ParseFloat(v, 64); err == nil && h > 0 {
			fs.WorkingHours = h
		} else {
			logger.Warn("Ignoring invalid factory setting", zap.String("key", entity.SettingWorkingHours), zap.String("value", v))
		}
	}
	if v, ok := overrides[entity.SettingNonWorkingWeekday]; ok {
		if wd, err := planning.ParseWeekday(v); err == nil {
			fs.NonWorkingDay = wd
		} else {
			logger.Warn("Ignoring invalid factory setting", zap.String("key", entity.SettingNonWorkingWeekday), zap.String("value", v))
		}
	}
	if v, ok := overrides[entity.SettingTargetEfficiency]; ok {
		if e, err := strconv.ParseFloat(v, 64); err == nil && e > 0 {
			fs.TargetEfficiency = e
		} else {
			logger.Warn("Ignoring invalid factory setting", zap.String("key", entity.SettingTargetEfficiency), zap.String("value", v))
		}
	}

	if fs.WorkingHours <= 0 {
		fs.WorkingHours = planning.DefaultWorkingHours
	}
	if fs.TargetEfficiency <= 0 {
		fs.TargetEfficiency = planning.DefaultTargetEfficiency
	}
	if fs.HorizonDays <= 0 {
		fs.HorizonDays = planning.MaxPlanningDays
	}
	return fs
}
