package graph

import (
	"sort"

	"parking-navigator/internal/navigator/models"

	"github.com/dhconnelly/rtreego"
)

// ============================================================
// Dense graph
// ============================================================

const (
	// pointTolerance половина стороны прямоугольника узла в R-дереве.
	pointTolerance = 1e-9
	// tieTolerance допуск, в пределах которого узлы считаются равноудалёнными.
	tieTolerance = 1e-9
)

type Node struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Virtual  bool    `json:"virtual,omitempty"`
	Priority bool    `json:"priority,omitempty"`
}

func (n Node) Point() models.Point {
	return models.Point{X: n.X, Y: n.Y}
}

// Dense плотный граф, готовый к поиску. После сборки не изменяется,
// поэтому его можно читать из нескольких горутин без блокировок.
type Dense struct {
	nodes   []Node
	index   map[string]int
	adj     [][]int
	edges   int
	tree    *rtreego.Rtree
	step    float64
	epsilon float64
	report  BuildReport
}

type spatialNode struct {
	idx    int
	bounds rtreego.Rect
}

func (s *spatialNode) Bounds() rtreego.Rect {
	return s.bounds
}

func newSpatialNode(idx int, p models.Point) *spatialNode {
	return &spatialNode{
		idx:    idx,
		bounds: rtreego.Point{p.X, p.Y}.ToRect(pointTolerance),
	}
}

func (g *Dense) Len() int {
	return len(g.nodes)
}

func (g *Dense) Node(i int) Node {
	return g.nodes[i]
}

// Nodes возвращает копию списка узлов в порядке вставки.
func (g *Dense) Nodes() []Node {
	return append([]Node(nil), g.nodes...)
}

func (g *Dense) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Neighbors соседи узла в порядке добавления рёбер. Срез только для чтения.
func (g *Dense) Neighbors(i int) []int {
	return g.adj[i]
}

func (g *Dense) Degree(i int) int {
	return len(g.adj[i])
}

func (g *Dense) EdgeCount() int {
	return g.edges
}

// Edges список рёбер (i < j) в детерминированном порядке.
func (g *Dense) Edges() [][2]int {
	out := make([][2]int, 0, g.edges)
	for i, nbrs := range g.adj {
		for _, j := range nbrs {
			if i < j {
				out = append(out, [2]int{i, j})
			}
		}
	}
	return out
}

func (g *Dense) HasEdge(i, j int) bool {
	for _, n := range g.adj[i] {
		if n == j {
			return true
		}
	}
	return false
}

func (g *Dense) EdgeLength(i, j int) float64 {
	return g.nodes[i].Point().Distance(g.nodes[j].Point())
}

func (g *Dense) Step() float64 {
	return g.step
}

func (g *Dense) Epsilon() float64 {
	return g.epsilon
}

func (g *Dense) Report() BuildReport {
	return g.report
}

// Points переводит последовательность индексов в координаты.
func (g *Dense) Points(path []int) []models.Point {
	out := make([]models.Point, len(path))
	for k, i := range path {
		out[k] = g.nodes[i].Point()
	}
	return out
}

// IDs переводит последовательность индексов в id узлов.
func (g *Dense) IDs(path []int) []string {
	out := make([]string, len(path))
	for k, i := range path {
		out[k] = g.nodes[i].ID
	}
	return out
}

// PriorityNodes индексы приоритетных узлов.
func (g *Dense) PriorityNodes() []int {
	var out []int
	for i, n := range g.nodes {
		if n.Priority {
			out = append(out, i)
		}
	}
	return out
}

// ============================================================
// Spatial queries
// ============================================================

// Within узлы на расстоянии не больше r от p, по возрастанию индекса.
func (g *Dense) Within(p models.Point, r float64) []int {
	if g.tree == nil || len(g.nodes) == 0 || r < 0 {
		return nil
	}

	box := rtreego.Point{p.X, p.Y}.ToRect(r + pointTolerance)
	var out []int
	for _, obj := range g.tree.SearchIntersect(box) {
		idx := obj.(*spatialNode).idx
		if g.nodes[idx].Point().Distance(p) <= r {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}

// Nearest ближайший к p узел. Из равноудалённых выбирается узел
// с меньшим индексом, чтобы результат был воспроизводимым.
func (g *Dense) Nearest(p models.Point) (int, bool) {
	if g.tree == nil || len(g.nodes) == 0 {
		return -1, false
	}

	obj := g.tree.NearestNeighbor(rtreego.Point{p.X, p.Y})
	if obj == nil {
		return -1, false
	}
	best := obj.(*spatialNode).idx
	d := g.nodes[best].Point().Distance(p)

	if ties := g.Within(p, d+tieTolerance); len(ties) > 0 {
		return ties[0], true
	}
	return best, true
}
