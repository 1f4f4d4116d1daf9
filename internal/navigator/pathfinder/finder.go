package pathfinder

import (
	"container/heap"

	"parking-navigator/internal/navigator/graph"
)

// ============================================================
// Finder
// ============================================================

// Finder ищет путь между двумя узлами плотного графа. Результат:
// индексы узлов от start до goal включительно; пустой срез, если
// goal недостижим.
type Finder interface {
	FindPath(g *graph.Dense, start, goal int) []int
}

// New возвращает реализацию для выбранной стратегии.
func New(strategy Strategy, opts ...Option) Finder {
	if strategy == StrategyBFS {
		return NewBFS(opts...)
	}
	return NewAStar(opts...)
}

func validEndpoints(g *graph.Dense, start, goal int) bool {
	if g == nil {
		return false
	}
	n := g.Len()
	return start >= 0 && start < n && goal >= 0 && goal < n
}

func newParents(n int) []int {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = -1
	}
	return parent
}

// unwind восстанавливает путь по массиву родителей.
func unwind(parent []int, start, goal int) []int {
	var path []int
	for cur := goal; ; cur = parent[cur] {
		path = append(path, cur)
		if cur == start {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// ============================================================
// BFS
// ============================================================

type BFS struct {
	opts Options
}

func NewBFS(opts ...Option) *BFS {
	return &BFS{opts: buildOptions(opts)}
}

// FindPath путь с минимальным числом рёбер. Соседи обходятся в порядке смежности.
func (b *BFS) FindPath(g *graph.Dense, start, goal int) []int {
	if !validEndpoints(g, start, goal) {
		return nil
	}

	parent := newParents(g.Len())
	depth := make([]int, g.Len())
	visited := make([]bool, g.Len())
	visited[start] = true

	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		b.opts.OnExpand(cur, float64(depth[cur]))

		if cur == goal {
			return unwind(parent, start, goal)
		}
		for _, nb := range g.Neighbors(cur) {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			parent[nb] = cur
			depth[nb] = depth[cur] + 1
			queue = append(queue, nb)
		}
	}
	return nil
}

// ============================================================
// A*
// ============================================================

type openItem struct {
	node int
	f    float64
	seq  uint64
}

// openSet куча по f; при равных f раньше выходит тот, кто раньше добавлен.
type openSet []openItem

func (s openSet) Len() int { return len(s) }
func (s openSet) Less(i, j int) bool {
	if s[i].f != s[j].f {
		return s[i].f < s[j].f
	}
	return s[i].seq < s[j].seq
}
func (s openSet) Swap(i, j int)       { s[i], s[j] = s[j], s[i] }
func (s *openSet) Push(x interface{}) { *s = append(*s, x.(openItem)) }
func (s *openSet) Pop() interface{} {
	old := *s
	n := len(old)
	it := old[n-1]
	*s = old[:n-1]
	return it
}

type AStar struct {
	opts Options
}

func NewAStar(opts ...Option) *AStar {
	return &AStar{opts: buildOptions(opts)}
}

func (a *AStar) cost(g *graph.Dense, u, v int) float64 {
	if a.opts.UniformCost {
		return 1
	}
	return g.EdgeLength(u, v)
}

func (a *AStar) heuristic(g *graph.Dense, u, goal int) float64 {
	d := g.EdgeLength(u, goal)
	if a.opts.UniformCost {
		return d / (g.Step() + g.Epsilon())
	}
	return d
}

// FindPath кратчайший путь A* с евклидовой эвристикой.
func (a *AStar) FindPath(g *graph.Dense, start, goal int) []int {
	if !validEndpoints(g, start, goal) {
		return nil
	}

	n := g.Len()
	parent := newParents(n)
	gScore := make([]float64, n)
	seen := make([]bool, n)
	closed := make([]bool, n)

	var seq uint64
	open := &openSet{{node: start, f: a.heuristic(g, start, goal)}}
	seen[start] = true

	for open.Len() > 0 {
		it := heap.Pop(open).(openItem)
		if closed[it.node] {
			continue
		}
		closed[it.node] = true
		a.opts.OnExpand(it.node, it.f)

		if it.node == goal {
			return unwind(parent, start, goal)
		}

		for _, nb := range g.Neighbors(it.node) {
			if closed[nb] {
				continue
			}
			tentative := gScore[it.node] + a.cost(g, it.node, nb)
			if seen[nb] && tentative >= gScore[nb] {
				continue
			}
			seen[nb] = true
			gScore[nb] = tentative
			parent[nb] = it.node
			seq++
			heap.Push(open, openItem{node: nb, f: tentative + a.heuristic(g, nb, goal), seq: seq})
		}
	}
	return nil
}
