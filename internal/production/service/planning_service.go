package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bitfantasy/lineplan/internal/config"
	"github.com/bitfantasy/lineplan/internal/planning"
	"github.com/bitfantasy/lineplan/internal/production/entity"
	"github.com/bitfantasy/lineplan/internal/production/repository"
	"github.com/bitfantasy/lineplan/internal/production/sse"
	"go.uber.org/zap"
)

// 排产模式
const (
	ModeManual   = "manual"
	ModeAssisted = "assisted"
	ModeExisting = "existing"
)

// LineSelection 手动排产选择的产线；DailyTarget <= 0 时按标准产能计算
type LineSelection struct {
	LineID      string  `json:"line_id" binding:"required"`
	DailyTarget float64 `json:"daily_target"`
}

// StartSessionRequest 创建排产会话请求
type StartSessionRequest struct {
	Mode     string                `json:"mode" binding:"required"`
	Lines    []LineSelection       `json:"lines"`
	Sequence []planning.ColorStart `json:"sequence"`
	// Manpower overrides the manpower derived from the operation bulletin.
	Manpower *planning.Manpower `json:"manpower"`
	// CandidateLineIDs limits assisted planning; empty means every active line.
	CandidateLineIDs []string `json:"candidate_line_ids"`
	Hint             string   `json:"hint"`
	MaxLines         int      `json:"max_lines"`
}

// QuantityEdit 修改单元格中某颜色的数量
type QuantityEdit struct {
	Date     planning.Date `json:"date"`
	LineID   string        `json:"line_id" binding:"required"`
	ColorID  string        `json:"color_id" binding:"required"`
	Quantity float64       `json:"quantity"`
}

// ManpowerEdit 修改单元格人力
type ManpowerEdit struct {
	Date   planning.Date          `json:"date"`
	LineID string                 `json:"line_id" binding:"required"`
	Field  planning.ManpowerField `json:"field" binding:"required"`
	Value  int                    `json:"value"`
}

// SaveResult 保存结果
type SaveResult struct {
	OrderID        string        `json:"order_id"`
	Inserted       int           `json:"inserted"`
	Deleted        int           `json:"deleted"`
	CompletionDate planning.Date `json:"completion_date"`
}

// LineAvailability 产线下一个可排产日期
type LineAvailability struct {
	LineID        string        `json:"line_id"`
	Code          string        `json:"code"`
	Name          string        `json:"name"`
	NextAvailable planning.Date `json:"next_available"`
}

// ExportResult 导出结果
type ExportResult struct {
	Filename  string
	Data      []byte
	ObjectKey string
}

// PlanningOptions 排产服务可选项
type PlanningOptions struct {
	Factory  config.FactoryConfig
	MaxLines int
	Ranker   planning.LineRanker
	Events   EventPublisher
	Export   *ExportService
	Logger   *zap.Logger
	// Location decides the calendar day used as "today"; nil means time.Local.
	Location *time.Location
}

// PlanningService 排产服务
type PlanningService struct {
	repos    *repository.Repositories
	sessions *SessionStore
	opts     PlanningOptions
	logger   *zap.Logger
	now      func() time.Time
}

func NewPlanningService(repos *repository.Repositories, sessions *SessionStore, opts PlanningOptions) *PlanningService {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
		if opts.Factory.Timezone != "" {
			if loc, err := time.LoadLocation(opts.Factory.Timezone); err == nil {
				opts.Location = loc
			} else {
				opts.Logger.Warn("Unknown factory timezone, using local time", zap.String("timezone", opts.Factory.Timezone))
			}
		}
	}
	if opts.Export == nil {
		opts.Export = NewExportService(nil, "", opts.Logger)
	}
	return &PlanningService{
		repos:    repos,
		sessions: sessions,
		opts:     opts,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// SetClock 替换时钟（测试用）
func (s *PlanningService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *PlanningService) today() planning.Date {
	return planning.DateOf(s.now().In(s.opts.Location))
}

// Settings 当前生效的工厂参数
func (s *PlanningService) Settings(ctx context.Context) (FactorySettings, error) {
	overrides, err := s.repos.Setting.All(ctx)
	if err != nil {
		return FactorySettings{}, fmt.Errorf("load factory settings: %w", err)
	}
	return resolveSettings(s.opts.Factory, overrides, s.logger), nil
}

// UpdateSettings 校验并写入工厂参数，返回新的生效值
func (s *PlanningService) UpdateSettings(ctx context.Context, values map[string]string) (FactorySettings, error) {
	for key, v := range values {
		if err := validateSetting(key, v); err != nil {
			return FactorySettings{}, err
		}
	}
	for key, v := range values {
		if err := s.repos.Setting.Set(ctx, key, strings.TrimSpace(v)); err != nil {
			return FactorySettings{}, fmt.Errorf("save factory setting %s: %w", key, err)
		}
	}
	s.logger.Info("Factory settings updated", zap.Any("values", values))
	return s.Settings(ctx)
}

func validateSetting(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case entity.SettingWorkingHours, entity.SettingTargetEfficiency:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v <= 0 {
			return fmt.Errorf("%w: %s must be a positive number", ErrInvalidSetting, key)
		}
		if key == entity.SettingWorkingHours && v > 24 {
			return fmt.Errorf("%w: %s cannot exceed 24", ErrInvalidSetting, key)
		}
	case entity.SettingNonWorkingWeekday:
		if _, err := planning.ParseWeekday(value); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSetting, err)
		}
	default:
		return fmt.Errorf("%w: unknown key %q", ErrInvalidSetting, key)
	}
	return nil
}

// planContext 一次排产所需的订单、款式和参数
type planContext struct {
	order     *entity.Order
	style     *entity.Style
	settings  FactorySettings
	params    planning.GridParams
	targetEff float64
	standard  float64
}

func (s *PlanningService) loadPlanContext(ctx context.Context, orderID string, manpower *planning.Manpower) (*planContext, error) {
	order, err := s.repos.Order.FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order.Style == nil || order.Style.ID == "" {
		return nil, ErrStyleNotFound
	}
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	bulletin := order.Style.Bulletin()
	mp := planning.DeriveManpower(planning.BulletinOperators(bulletin))
	if manpower != nil {
		mp = planning.Manpower{
			Operators: max(manpower.Operators, 0),
			Helpers:   max(manpower.Helpers, 0),
			Checkers:  max(manpower.Checkers, 0),
		}
	}
	targetEff := order.Style.TargetEfficiency
	if targetEff <= 0 {
		targetEff = settings.TargetEfficiency
	}
	pc := &planContext{
		order:     order,
		style:     order.Style,
		settings:  settings,
		targetEff: targetEff,
		params: planning.GridParams{
			OrderID:      order.ID,
			SAM:          planning.SAM(bulletin),
			WorkingHours: settings.WorkingHours,
			Manpower:     mp,
		},
	}
	pc.standard = planning.DailyCapacity(mp, settings.WorkingHours, targetEff, pc.params.SAM)
	return pc, nil
}

// StartSession 生成（手动/推荐）或载入已有计划，创建排产会话
func (s *PlanningService) StartSession(ctx context.Context, orderID, userID string, req StartSessionRequest) (*SessionView, error) {
	switch req.Mode {
	case ModeManual, ModeAssisted, ModeExisting:
	default:
		return nil, ErrInvalidMode
	}

	pc, err := s.loadPlanContext(ctx, orderID, req.Manpower)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		OrderID:   orderID,
		StyleID:   pc.style.ID,
		UserID:    userID,
		Mode:      req.Mode,
		Requested: float64(pc.order.TotalQuantity()),
		Colors:    make(map[string]string, len(pc.order.Colors)),
	}
	for _, c := range pc.order.Colors {
		sess.Colors[c.ID] = c.Name
	}

	var grid *planning.Grid
	switch req.Mode {
	case ModeExisting:
		grid, err = s.loadExisting(ctx, pc, sess)
	case ModeManual:
		grid, err = s.generateManual(ctx, pc, sess, req)
	case ModeAssisted:
		grid, err = s.generateAssisted(ctx, pc, sess, req)
	}
	if err != nil {
		return nil, err
	}

	view := s.sessions.Create(sess, grid)
	s.logger.Info("Plan session started",
		zap.String("session_id", view.ID),
		zap.String("order_id", orderID),
		zap.String("mode", req.Mode),
		zap.Int("lines", len(sess.Lines)),
		zap.String("completion_date", view.Summary.CompletionDate.String()),
		zap.Float64("planned", view.Summary.Planned),
		zap.Float64("unplanned", view.Summary.Unplanned),
	)
	if req.Mode != ModeExisting && s.opts.Events != nil {
		s.opts.Events.PublishPlanGenerated(sse.PlanGenerated{
			OrderID:        orderID,
			SessionID:      view.ID,
			Mode:           req.Mode,
			UserID:         userID,
			CompletionDate: view.Summary.CompletionDate.String(),
			Planned:        view.Summary.Planned,
			Unplanned:      view.Summary.Unplanned,
		})
	}
	return &view, nil
}

func (s *PlanningService) loadExisting(ctx context.Context, pc *planContext, sess *Session) (*planning.Grid, error) {
	records, err := s.repos.Plan.LoadPlans(ctx, pc.order.ID)
	if err != nil {
		return nil, fmt.Errorf("load plans: %w", err)
	}
	targets := make(map[string]float64)
	for _, rec := range records {
		if _, ok := targets[rec.LineID]; !ok {
			targets[rec.LineID] = pc.standard
			sess.Lines = append(sess.Lines, planning.LineTarget{LineID: rec.LineID, DailyTarget: pc.standard})
		}
	}
	return planning.GridFromRecords(pc.params, records, targets), nil
}

func (s *PlanningService) generateManual(ctx context.Context, pc *planContext, sess *Session, req StartSessionRequest) (*planning.Grid, error) {
	if len(req.Lines) == 0 {
		return nil, planning.ErrNoLinesSelected
	}
	ids := make([]string, 0, len(req.Lines))
	for _, l := range req.Lines {
		ids = append(ids, l.LineID)
	}
	found, err := s.repos.Line.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}
	known := make(map[string]bool, len(found))
	for _, l := range found {
		known[l.ID] = true
	}

	seen := make(map[string]bool, len(req.Lines))
	for _, l := range req.Lines {
		if !known[l.LineID] {
			return nil, fmt.Errorf("%w: %s", ErrLineNotFound, l.LineID)
		}
		if seen[l.LineID] {
			continue
		}
		seen[l.LineID] = true
		target := l.DailyTarget
		if target <= 0 {
			target = pc.standard
		}
		sess.Lines = append(sess.Lines, planning.LineTarget{LineID: l.LineID, DailyTarget: target})
	}
	return s.allocate(ctx, pc, sess, req.Sequence)
}

func (s *PlanningService) generateAssisted(ctx context.Context, pc *planContext, sess *Session, req StartSessionRequest) (*planning.Grid, error) {
	var lines []entity.Line
	var err error
	if len(req.CandidateLineIDs) > 0 {
		lines, err = s.repos.Line.FindByIDs(ctx, req.CandidateLineIDs)
	} else {
		lines, err = s.repos.Line.ListActive(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}
	if len(lines) == 0 {
		return nil, planning.ErrNoLinesSelected
	}

	ids := lineIDsOf(lines)
	next, err := s.nextAvailable(ctx, ids, pc.order.ID, pc.settings.NonWorkingDay)
	if err != nil {
		return nil, err
	}
	stats, err := s.repos.Plan.Stats(ctx, ids, pc.style.ID)
	if err != nil {
		return nil, fmt.Errorf("line stats: %w", err)
	}

	candidates := make([]planning.CandidateLine, 0, len(lines))
	for _, l := range lines {
		candidates = append(candidates, planning.CandidateLine{LineID: l.ID, Name: l.Name, NextAvailable: next[l.ID]})
	}
	limit := req.MaxLines
	if limit <= 0 {
		limit = s.opts.MaxLines
	}
	rankReq := planning.RankRequest{
		StyleID:          pc.style.ID,
		StyleCode:        pc.style.Code,
		SAM:              pc.params.SAM,
		TargetEfficiency: pc.targetEff,
		WorkingHours:     pc.params.WorkingHours,
		Manpower:         pc.params.Manpower,
		Candidates:       candidates,
		Stats:            stats,
		Hint:             req.Hint,
	}
	sel := planning.SelectRanked(ctx, s.opts.Ranker, rankReq, limit)
	if sel.Err != nil {
		s.logger.Warn("Line ranking failed, using standard capacity",
			zap.String("order_id", pc.order.ID), zap.String("style_id", pc.style.ID), zap.Error(sel.Err))
	} else if sel.Fallback && s.opts.Ranker != nil {
		s.logger.Warn("Line ranking returned no usable line, using standard capacity",
			zap.String("order_id", pc.order.ID), zap.String("style_id", pc.style.ID))
	}
	sess.Selection = &sel
	sess.Lines = sel.Lines
	return s.allocateWith(pc, sess, req.Sequence, next)
}

func (s *PlanningService) allocate(ctx context.Context, pc *planContext, sess *Session, sequence []planning.ColorStart) (*planning.Grid, error) {
	next, err := s.nextAvailable(ctx, targetIDs(sess.Lines), pc.order.ID, pc.settings.NonWorkingDay)
	if err != nil {
		return nil, err
	}
	return s.allocateWith(pc, sess, sequence, next)
}

func (s *PlanningService) allocateWith(pc *planContext, sess *Session, sequence []planning.ColorStart, next map[string]planning.Date) (*planning.Grid, error) {
	remaining := make(map[string]float64, len(pc.order.Colors))
	colorOrder := make([]string, 0, len(pc.order.Colors))
	for _, c := range pc.order.Colors {
		remaining[c.ID] += float64(c.Quantity)
		colorOrder = append(colorOrder, c.ID)
	}

	alloc, err := planning.Allocate(planning.AllocationInput{
		OrderID:       pc.order.ID,
		Lines:         sess.Lines,
		Remaining:     remaining,
		Sequence:      sequence,
		ColorOrder:    colorOrder,
		NextAvailable: next,
		Start:         s.today(),
		Manpower:      pc.params.Manpower,
		SAM:           pc.params.SAM,
		WorkingHours:  pc.params.WorkingHours,
		NonWorkingDay: pc.settings.NonWorkingDay,
		HorizonDays:   pc.settings.HorizonDays,
	})
	var horizon *planning.HorizonExceededError
	switch {
	case errors.As(err, &horizon):
		sess.Warning = horizon.Error()
		s.logger.Warn("Plan exceeds planning horizon",
			zap.String("order_id", pc.order.ID),
			zap.Float64("unplanned", horizon.Remaining),
			zap.String("last_planned", horizon.LastPlanned.String()))
	case err != nil:
		return nil, err
	}
	return alloc.Grid, nil
}

func (s *PlanningService) nextAvailable(ctx context.Context, lineIDs []string, excludeOrder string, nonWorking time.Weekday) (map[string]planning.Date, error) {
	records, err := s.repos.Plan.Records(ctx, lineIDs, excludeOrder)
	if err != nil {
		return nil, fmt.Errorf("load line plans: %w", err)
	}
	return planning.NextAvailableDates(lineIDs, records, s.today(), nonWorking), nil
}

// GetSession 获取会话
func (s *PlanningService) GetSession(id string) (*SessionView, error) {
	v, err := s.sessions.View(id)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// SetQuantity 修改某线日某颜色的数量
func (s *PlanningService) SetQuantity(id string, edit QuantityEdit) (*SessionView, error) {
	if edit.Date.IsZero() || edit.LineID == "" {
		return nil, fmt.Errorf("%w: date and line are required", ErrInvalidEdit)
	}
	v, err := s.sessions.Edit(id, func(sess *Session, g *planning.Grid) (*planning.Grid, error) {
		if _, ok := sess.Colors[edit.ColorID]; !ok {
			return nil, fmt.Errorf("%w: color %s is not part of the order", ErrInvalidEdit, edit.ColorID)
		}
		return g.SetColorQuantity(edit.Date, edit.LineID, edit.ColorID, edit.Quantity), nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// SetManpower 修改某线日的人力
func (s *PlanningService) SetManpower(id string, edit ManpowerEdit) (*SessionView, error) {
	if edit.Date.IsZero() || edit.LineID == "" {
		return nil, fmt.Errorf("%w: date and line are required", ErrInvalidEdit)
	}
	if !edit.Field.Valid() {
		return nil, fmt.Errorf("%w: unknown manpower field %q", ErrInvalidEdit, edit.Field)
	}
	v, err := s.sessions.Edit(id, func(_ *Session, g *planning.Grid) (*planning.Grid, error) {
		if _, ok := g.Cell(edit.Date, edit.LineID); !ok {
			return nil, fmt.Errorf("%w: no plan for line %s on %s", ErrInvalidEdit, edit.LineID, edit.Date)
		}
		return g.SetManpower(edit.Date, edit.LineID, edit.Field, edit.Value), nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Undo 撤销上一次编辑
func (s *PlanningService) Undo(id string) (*SessionView, error) {
	v, err := s.sessions.Undo(id)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Cancel 放弃会话，不保存
func (s *PlanningService) Cancel(id string) error {
	if !s.sessions.Remove(id) {
		return ErrSessionNotFound
	}
	s.logger.Info("Plan session cancelled", zap.String("session_id", id))
	return nil
}

// Save 用会话网格替换订单的全部计划，成功后结束会话
func (s *PlanningService) Save(ctx context.Context, id, userID string) (*SaveResult, error) {
	sess, err := s.sessions.Snapshot(id)
	if err != nil {
		return nil, err
	}
	g := sess.Grid()

	cs, err := s.repos.Plan.WithCreator(userID).ReplaceOrderPlans(ctx, sess.OrderID, g)
	if err != nil {
		s.logger.Error("Plan save failed", zap.String("order_id", sess.OrderID), zap.Error(err))
		return nil, fmt.Errorf("save plan: %w", err)
	}

	status := entity.OrderStatusPlanned
	if g.IsEmpty() {
		status = entity.OrderStatusOpen
	}
	if err := s.repos.Order.UpdateStatus(ctx, sess.OrderID, status); err != nil {
		s.logger.Warn("Order status update failed", zap.String("order_id", sess.OrderID), zap.Error(err))
	}
	s.sessions.RemoveIfCurrent(id, g)

	completion, _ := g.CompletionDate()
	result := &SaveResult{
		OrderID:        sess.OrderID,
		Inserted:       len(cs.Insert),
		Deleted:        len(cs.DeleteIDs),
		CompletionDate: completion,
	}
	s.logger.Info("Plan saved",
		zap.String("order_id", sess.OrderID),
		zap.String("user_id", userID),
		zap.Int("inserted", result.Inserted),
		zap.Int("deleted", result.Deleted))
	if s.opts.Events != nil {
		s.opts.Events.PublishPlanSaved(sse.PlanSaved{
			OrderID:  sess.OrderID,
			UserID:   userID,
			LineIDs:  g.LineIDs(),
			Inserted: result.Inserted,
			Deleted:  result.Deleted,
		})
	}
	return result, nil
}

// ListPlans 订单已保存的计划
func (s *PlanningService) ListPlans(ctx context.Context, orderID string) ([]entity.DailyLinePlan, error) {
	if _, err := s.repos.Order.FindByID(ctx, orderID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return s.repos.Plan.ListByOrder(ctx, orderID)
}

// LineAvailability 各产线下一个可排产日期；lineIDs 为空时查询全部启用产线
func (s *PlanningService) LineAvailability(ctx context.Context, lineIDs []string, excludeOrder string) ([]LineAvailability, error) {
	lines, err := s.resolveLines(ctx, lineIDs)
	if err != nil {
		return nil, err
	}
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	next, err := s.nextAvailable(ctx, lineIDsOf(lines), excludeOrder, settings.NonWorkingDay)
	if err != nil {
		return nil, err
	}
	out := make([]LineAvailability, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineAvailability{LineID: l.ID, Code: l.Code, Name: l.Name, NextAvailable: next[l.ID]})
	}
	return out, nil
}

// LineStats 产线历史排产统计
func (s *PlanningService) LineStats(ctx context.Context, lineIDs []string, styleID string) ([]planning.LineStats, error) {
	lines, err := s.resolveLines(ctx, lineIDs)
	if err != nil {
		return nil, err
	}
	return s.repos.Plan.Stats(ctx, lineIDsOf(lines), styleID)
}

func (s *PlanningService) resolveLines(ctx context.Context, lineIDs []string) ([]entity.Line, error) {
	if len(lineIDs) == 0 {
		return s.repos.Line.ListActive(ctx)
	}
	lines, err := s.repos.Line.FindByIDs(ctx, lineIDs)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrLineNotFound
	}
	return lines, nil
}

// Export 导出会话网格为 xlsx；archive 为 true 时同时归档
func (s *PlanningService) Export(ctx context.Context, id string, archive bool) (*ExportResult, error) {
	sess, err := s.sessions.Snapshot(id)
	if err != nil {
		return nil, err
	}
	order, err := s.repos.Order.FindByID(ctx, sess.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	g := sess.Grid()
	lines, err := s.repos.Line.FindByIDs(ctx, g.LineIDs())
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}
	lineNames := make(map[string]string, len(lines))
	for _, l := range lines {
		lineNames[l.ID] = l.Name
	}
	sheet := ExportSheet{
		OrderCode:  order.Code,
		Grid:       g,
		Summary:    summarize(g, sess.Requested),
		LineNames:  lineNames,
		ColorNames: sess.Colors,
		Warning:    sess.Warning,
	}
	if order.Style != nil {
		sheet.StyleCode = order.Style.Code
	}

	f, filename, err := s.opts.Export.Workbook(sheet)
	if err != nil {
		return nil, fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	result := &ExportResult{Filename: filename, Data: buf.Bytes()}
	if archive {
		key, err := s.opts.Export.Archive(ctx, sess.OrderID, filename, result.Data)
		if err != nil {
			return nil, err
		}
		result.ObjectKey = key
	}
	return result, nil
}

func lineIDsOf(lines []entity.Line) []string {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ID)
	}
	return ids
}

func targetIDs(lines []planning.LineTarget) []string {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.LineID)
	}
	return ids
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
