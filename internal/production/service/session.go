package service

import (
	"context"
	"sync"
	"time"

	"github.com/bitfantasy/lineplan/internal/planning"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultSessionTTL = 2 * time.Hour
	defaultUndoDepth  = 50
)

// Session 排产会话：持有一张网格及其撤销历史，保存或取消后结束
type Session struct {
	ID        string
	OrderID   string
	StyleID   string
	UserID    string
	Mode      string
	Requested float64
	// Colors maps color ID to display name.
	Colors    map[string]string
	Lines     []planning.LineTarget
	Selection *planning.AssistedSelection
	Warning   string
	CreatedAt time.Time

	grid     *planning.Grid
	history  []*planning.Grid
	lastUsed time.Time
}

// Grid returns the session's current grid.
func (s *Session) Grid() *planning.Grid {
	return s.grid
}

// Summary 网格汇总
type Summary struct {
	OrderQuantity  float64            `json:"order_quantity"`
	Planned        float64            `json:"planned"`
	Unplanned      float64            `json:"unplanned"`
	CompletionDate planning.Date      `json:"completion_date"`
	Days           int                `json:"days"`
	ColorTotals    map[string]float64 `json:"color_totals"`
	LineTotals     map[string]float64 `json:"line_totals"`
}

// SessionView 会话的对外视图
type SessionView struct {
	ID        string                `json:"id"`
	OrderID   string                `json:"order_id"`
	Mode      string                `json:"mode"`
	Grid      *planning.Grid        `json:"grid"`
	Summary   Summary               `json:"summary"`
	Lines     []planning.LineTarget `json:"lines"`
	Ranking   []planning.RankedLine `json:"ranking,omitempty"`
	Fallback  bool                  `json:"fallback,omitempty"`
	Warning   string                `json:"warning,omitempty"`
	CanUndo   bool                  `json:"can_undo"`
	ExpiresAt time.Time             `json:"expires_at"`
}

func summarize(g *planning.Grid, requested float64) Summary {
	planned := g.TotalQuantity()
	completion, _ := g.CompletionDate()
	unplanned := requested - planned
	if unplanned < 0 {
		unplanned = 0
	}
	return Summary{
		OrderQuantity:  requested,
		Planned:        planned,
		Unplanned:      unplanned,
		CompletionDate: completion,
		Days:           g.Len(),
		ColorTotals:    g.ColorTotals(),
		LineTotals:     g.LineTotals(),
	}
}

// SessionStore 内存会话存储，空闲超过 TTL 的会话被清理
type SessionStore struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	ttl       time.Duration
	undoDepth int
	now       func() time.Time
}

func NewSessionStore(ttl time.Duration, undoDepth int) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if undoDepth <= 0 {
		undoDepth = defaultUndoDepth
	}
	return &SessionStore{
		sessions:  make(map[string]*Session),
		ttl:       ttl,
		undoDepth: undoDepth,
		now:       time.Now,
	}
}

// Create stores a new session around grid and returns its view.
func (st *SessionStore) Create(s *Session, grid *planning.Grid) SessionView {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = now
	s.lastUsed = now
	s.grid = grid
	s.history = nil
	st.sessions[s.ID] = s
	return st.viewLocked(s)
}

// View returns the current state of a session.
func (st *SessionStore) View(id string) (SessionView, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, err := st.getLocked(id)
	if err != nil {
		return SessionView{}, err
	}
	return st.viewLocked(s), nil
}

// Edit applies fn to the session's grid. A result different from the current
// grid becomes current and the old grid is kept for Undo.
func (st *SessionStore) Edit(id string, fn func(s *Session, g *planning.Grid) (*planning.Grid, error)) (SessionView, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, err := st.getLocked(id)
	if err != nil {
		return SessionView{}, err
	}
	next, err := fn(s, s.grid)
	if err != nil {
		return SessionView{}, err
	}
	if next != nil && next != s.grid {
		s.history = append(s.history, s.grid)
		if len(s.history) > st.undoDepth {
			s.history = append([]*planning.Grid(nil), s.history[len(s.history)-st.undoDepth:]...)
		}
		s.grid = next
	}
	return st.viewLocked(s), nil
}

// Undo restores the grid before the last edit.
func (st *SessionStore) Undo(id string) (SessionView, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, err := st.getLocked(id)
	if err != nil {
		return SessionView{}, err
	}
	n := len(s.history)
	if n == 0 {
		return SessionView{}, ErrNothingToUndo
	}
	s.grid = s.history[n-1]
	s.history = s.history[:n-1]
	return st.viewLocked(s), nil
}

// Snapshot returns a copy of the session without its history. Grids are
// immutable so the copy stays consistent while the caller works with it.
func (st *SessionStore) Snapshot(id string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, err := st.getLocked(id)
	if err != nil {
		return Session{}, err
	}
	cp := *s
	cp.history = nil
	return cp, nil
}

// Remove ends a session. It reports whether the session existed.
func (st *SessionStore) Remove(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	return true
}

// RemoveIfCurrent ends a session only if its grid is still g, so a save does
// not discard edits made while it was running.
func (st *SessionStore) RemoveIfCurrent(id string, g *planning.Grid) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok || s.grid != g {
		return false
	}
	delete(st.sessions, id)
	return true
}

// Len 当前会话数
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops idle sessions and returns how many were dropped.
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	n := 0
	for id, s := range st.sessions {
		if now.Sub(s.lastUsed) > st.ttl {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (st *SessionStore) Run(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				logger.Debug("Expired planning sessions swept", zap.Int("count", n), zap.Int("remaining", st.Len()))
			}
		}
	}
}

func (st *SessionStore) getLocked(id string) (*Session, error) {
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := st.now()
	if now.Sub(s.lastUsed) > st.ttl {
		delete(st.sessions, id)
		return nil, ErrSessionNotFound
	}
	s.lastUsed = now
	return s, nil
}

func (st *SessionStore) viewLocked(s *Session) SessionView {
	v := SessionView{
		ID:        s.ID,
		OrderID:   s.OrderID,
		Mode:      s.Mode,
		Grid:      s.grid,
		Summary:   summarize(s.grid, s.Requested),
		Lines:     s.Lines,
		Warning:   s.Warning,
		CanUndo:   len(s.history) > 0,
		ExpiresAt: s.lastUsed.Add(st.ttl),
	}
	if s.Selection != nil {
		v.Ranking = s.Selection.Ranked
		v.Fallback = s.Selection.Fallback
	}
	return v
}
