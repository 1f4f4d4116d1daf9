package session

import (
	"sync"
	"time"

	"parking-navigator/internal/navigator/engine"
	"parking-navigator/internal/navigator/models"
)

// ============================================================
// Session
// ============================================================

// Session состояние одного посетителя: позиция и последний маршрут.
type Session struct {
	id      string
	created time.Time

	mu          sync.Mutex
	pos         *models.Point
	route       Route
	dirty       bool
	lastCompute time.Time
	// lastMove время последнего пересчёта по смене позиции
	lastMove time.Time
}

func newSession(id string, now time.Time, snap *engine.Snapshot) *Session {
	s := &Session{id: id, created: now}
	if snap == nil {
		s.route = emptyRoute(StateIdle, nil)
	} else {
		s.route = emptyRoute(StateReady, snap)
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) CreatedAt() time.Time {
	return s.created
}

func (s *Session) Position() (models.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos == nil {
		return models.Point{}, false
	}
	return *s.pos, true
}

func (s *Session) Route() Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route
}

func (s *Session) State() State {
	return s.Route().State
}

// recomputeLocked полный пересчёт; предыдущий маршрут отбрасывается.
func (s *Session) recomputeLocked(snap *engine.Snapshot, planner *Planner, now time.Time) Route {
	switch {
	case snap == nil:
		s.route = emptyRoute(StateIdle, nil)
	case s.pos == nil:
		s.route = emptyRoute(StateReady, snap)
	default:
		s.route = planner.Plan(snap, *s.pos)
	}
	s.dirty = false
	s.lastCompute = now
	return s.route
}
