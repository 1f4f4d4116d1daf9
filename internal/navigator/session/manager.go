package session

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"parking-navigator/internal/navigator/engine"
	"parking-navigator/internal/navigator/models"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// ============================================================
// Session Manager
// ============================================================

// SnapshotSource откуда менеджер берёт текущий снимок (обычно engine.Engine).
type SnapshotSource interface {
	Snapshot() *engine.Snapshot
}

// Observer получает события для метрик.
type Observer interface {
	RouteComputed(state string, took time.Duration)
	SessionsActive(n int)
}

type noopObserver struct{}

func (noopObserver) RouteComputed(string, time.Duration) {}
func (noopObserver) SessionsActive(int)                  {}

type Config struct {
	// RecomputeInterval минимальный интервал между пересчётами по смене позиции.
	// Ноль отключает ограничение.
	RecomputeInterval time.Duration
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

type Manager struct {
	source   SnapshotSource
	planner  *Planner
	interval time.Duration
	now      func() time.Time
	observer Observer

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(source SnapshotSource, planner *Planner, cfg Config, opts ...Option) *Manager {
	if planner == nil {
		planner = NewPlanner(nil, nil, 0)
	}
	m := &Manager{
		source:   source,
		planner:  planner,
		interval: cfg.RecomputeInterval,
		now:      time.Now,
		observer: noopObserver{},
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) snapshot() *engine.Snapshot {
	if m.source == nil {
		return nil
	}
	return m.source.Snapshot()
}

func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := newSession(uuid.NewString(), m.now(), m.snapshot())
	m.sessions[s.id] = s
	m.observer.SessionsActive(len(m.sessions))
	log.Printf("[SESSION] Created %s", s.id)
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	m.observer.SessionsActive(len(m.sessions))
	log.Printf("[SESSION] Deleted %s", id)
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// list сессии в порядке создания.
func (m *Manager) list() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].created.Equal(out[j].created) {
			return out[i].id < out[j].id
		}
		return out[i].created.Before(out[j].created)
	})
	return out
}

// Positions позиции всех посетителей, у которых она известна.
func (m *Manager) Positions() map[string]models.Point {
	out := make(map[string]models.Point)
	for _, s := range m.list() {
		if p, ok := s.Position(); ok {
			out[s.id] = p
		}
	}
	return out
}

// Route текущий маршрут сессии без пересчёта.
func (m *Manager) Route(id string) (Route, error) {
	s, err := m.Get(id)
	if err != nil {
		return Route{}, err
	}
	return s.Route(), nil
}

// UpdatePosition сохраняет позицию и пересчитывает маршрут. Чаще, чем раз
// в RecomputeInterval, пересчёт не выполняется: сессия помечается грязной
// и догоняется в Flush.
func (m *Manager) UpdatePosition(id string, p models.Point) (Route, error) {
	s, err := m.Get(id)
	if err != nil {
		return Route{}, err
	}

	now := m.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := p
	s.pos = &pos
	if m.interval > 0 && !s.lastMove.IsZero() && now.Sub(s.lastMove) < m.interval {
		s.dirty = true
		return s.route, nil
	}
	s.lastMove = now
	return m.recomputeLocked(s, m.snapshot(), now), nil
}

// Flush пересчитывает сессии, у которых обновления позиции были отложены.
func (m *Manager) Flush() int {
	snap := m.snapshot()
	now := m.now()
	n := 0
	for _, s := range m.list() {
		s.mu.Lock()
		if s.dirty {
			s.lastMove = now
			m.recomputeLocked(s, snap, now)
			n++
		}
		s.mu.Unlock()
	}
	return n
}

// OnSnapshot слушатель engine.Engine: смена раскладки или занятости
// пересчитывает все сессии без ограничения частоты.
func (m *Manager) OnSnapshot(_ *engine.Snapshot, cause engine.Cause) {
	// берём последний опубликованный снимок: уведомления могут прийти не по порядку
	snap := m.snapshot()
	now := m.now()
	sessions := m.list()
	for _, s := range sessions {
		s.mu.Lock()
		m.recomputeLocked(s, snap, now)
		s.mu.Unlock()
	}
	if len(sessions) > 0 {
		log.Printf("[SESSION] Recomputed %d sessions after %s change", len(sessions), cause)
	}
}

func (m *Manager) recomputeLocked(s *Session, snap *engine.Snapshot, now time.Time) Route {
	started := time.Now()
	r := s.recomputeLocked(snap, m.planner, now)
	m.observer.RouteComputed(string(r.State), time.Since(started))
	return r
}
