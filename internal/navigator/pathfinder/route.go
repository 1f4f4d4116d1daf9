package pathfinder

import (
	"parking-navigator/internal/navigator/graph"
	"parking-navigator/internal/navigator/models"
)

// ============================================================
// Router
// ============================================================

// Router привязывает точки к узлам графа и при необходимости ведёт
// маршрут через ближайший приоритетный узел.
type Router struct {
	finder         Finder
	preferPriority bool
}

func NewRouter(finder Finder, preferPriority bool) *Router {
	if finder == nil {
		finder = NewAStar()
	}
	return &Router{finder: finder, preferPriority: preferPriority}
}

// Snap ближайший к точке узел (при равенстве с меньшим индексом).
func Snap(g *graph.Dense, p models.Point) (int, bool) {
	if g == nil {
		return -1, false
	}
	return g.Nearest(p)
}

// Route путь между двумя точками в метрах участка.
func (r *Router) Route(g *graph.Dense, from, to models.Point) []int {
	start, ok := Snap(g, from)
	if !ok {
		return nil
	}
	goal, ok := Snap(g, to)
	if !ok {
		return nil
	}
	return r.Between(g, start, goal)
}

// Between путь между узлами. С preferPriority маршрут идёт
// start -> ближайший приоритетный узел -> goal; если одна из частей
// не строится, возвращается прямой путь.
func (r *Router) Between(g *graph.Dense, start, goal int) []int {
	if r.preferPriority && start != goal {
		if via, ok := nearestPriority(g, start); ok && via != start && via != goal {
			first := r.finder.FindPath(g, start, via)
			second := r.finder.FindPath(g, via, goal)
			if len(first) > 0 && len(second) > 0 {
				return append(first, second[1:]...)
			}
		}
	}
	return r.finder.FindPath(g, start, goal)
}

func nearestPriority(g *graph.Dense, from int) (int, bool) {
	best := -1
	bestDist := 0.0
	for _, idx := range g.PriorityNodes() {
		d := g.EdgeLength(from, idx)
		if best == -1 || d < bestDist {
			best, bestDist = idx, d
		}
	}
	return best, best != -1
}
