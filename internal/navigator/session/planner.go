package session

import (
	"math"

	"parking-navigator/internal/navigator/engine"
	"parking-navigator/internal/navigator/models"
	"parking-navigator/internal/navigator/pathfinder"
	"parking-navigator/internal/navigator/selector"
)

// ============================================================
// Route
// ============================================================

type State string

const (
	StateIdle     State = "IDLE"
	StateReady    State = "READY"
	StateRouted   State = "ROUTED"
	StateNoTarget State = "NO_TARGET"
)

// DefaultMaxAttempts сколько кандидатов пробуем, прежде чем сдаться.
const DefaultMaxAttempts = 5

// Route результат пересчёта для посетителя.
type Route struct {
	State      State          `json:"state"`
	SlotID     string         `json:"slotId,omitempty"`
	Points     []models.Point `json:"points"`
	Nodes      []string       `json:"nodes"`
	Heading    float64        `json:"heading"`
	HasHeading bool           `json:"hasHeading"`
	Version    uint64         `json:"version"`
	Revision   uint64         `json:"revision"`
}

func emptyRoute(state State, snap *engine.Snapshot) Route {
	r := Route{State: state, Points: []models.Point{}, Nodes: []string{}}
	if snap != nil {
		r.Version = snap.Version
		r.Revision = snap.Revision
	}
	return r
}

// Heading компасный азимут от from к to в градусах [0, 360):
// 0 соответствует «вверх» по участку (-y), по часовой стрелке.
func Heading(from, to models.Point) (float64, bool) {
	dx := to.X - from.X
	dy := to.Y - from.Y
	if dx == 0 && dy == 0 {
		return 0, false
	}
	deg := math.Atan2(dx, -dy) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg -= 360
	}
	return deg, true
}

// ============================================================
// Planner
// ============================================================

// Planner выбирает место и строит до него путь.
type Planner struct {
	selector    *selector.Selector
	router      *pathfinder.Router
	maxAttempts int
}

func NewPlanner(sel *selector.Selector, router *pathfinder.Router, maxAttempts int) *Planner {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if sel == nil {
		sel = selector.New(selector.Config{})
	}
	if router == nil {
		router = pathfinder.NewRouter(nil, false)
	}
	return &Planner{selector: sel, router: router, maxAttempts: maxAttempts}
}

// Plan перебирает кандидатов по рангу, пока не найдётся непустой путь.
// Места, до которых от start нет пути, в лимит попыток не входят.
func (p *Planner) Plan(snap *engine.Snapshot, pos models.Point) Route {
	if snap == nil {
		return emptyRoute(StateIdle, nil)
	}

	start, ok := pathfinder.Snap(snap.Graph, pos)
	if !ok {
		return emptyRoute(StateNoTarget, snap)
	}

	reach := snap.Graph.Distances(start)
	attempts := 0
	for _, c := range p.selector.Rank(snap.View(), pos) {
		if c.FrontNode < 0 || c.FrontNode >= len(reach) || math.IsInf(reach[c.FrontNode], 1) {
			continue
		}
		if attempts >= p.maxAttempts {
			break
		}
		attempts++
		path := p.router.Between(snap.Graph, start, c.FrontNode)
		if len(path) == 0 {
			continue
		}

		route := Route{
			State:    StateRouted,
			SlotID:   c.Slot.ID,
			Points:   snap.Graph.Points(path),
			Nodes:    snap.Graph.IDs(path),
			Version:  snap.Version,
			Revision: snap.Revision,
		}
		target := route.Points[0]
		if len(route.Points) > 1 {
			target = route.Points[1]
		}
		route.Heading, route.HasHeading = Heading(pos, target)
		return route
	}

	return emptyRoute(StateNoTarget, snap)
}
