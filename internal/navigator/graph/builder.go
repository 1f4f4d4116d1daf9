package graph

import (
	"fmt"
	"log"
	"math"
	"sort"

	"parking-navigator/internal/navigator/models"

	"github.com/dhconnelly/rtreego"
)

// ============================================================
// Graph Builder
// ============================================================

const (
	DefaultStep    = 2.5   // Шаг между виртуальными узлами, м
	DefaultEpsilon = 0.001 // Допуск при сшивке соседних узлов, м

	// параметры ветвления R-дерева
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
)

type Options struct {
	Step    float64
	Epsilon float64
}

// withDefaults подставляет значения по умолчанию вместо неположительных.
func (o Options) withDefaults() Options {
	if o.Step <= 0 {
		o.Step = DefaultStep
	}
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	return o
}

// BuildReport что сделал сборщик и что пропустил.
type BuildReport struct {
	AuthoredNodes  int           `json:"authoredNodes"`
	VirtualNodes   int           `json:"virtualNodes"`
	AuthoredEdges  int           `json:"authoredEdges"`
	StitchEdges    int           `json:"stitchEdges"`
	Edges          int           `json:"edges"`
	DuplicateNodes []string      `json:"duplicateNodes,omitempty"`
	DanglingLinks  []models.Link `json:"danglingLinks,omitempty"`
	SelfLoops      int           `json:"selfLoops"`
}

// Clean true, если входные данные не пришлось исправлять.
func (r BuildReport) Clean() bool {
	return len(r.DuplicateNodes) == 0 && len(r.DanglingLinks) == 0 && r.SelfLoops == 0
}

type edgeKey struct {
	a, b int
}

func keyOf(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

type Builder struct {
	opts    Options
	nodes   []Node
	index   map[string]int
	adj     [][]int
	edgeSet map[edgeKey]struct{}
	linked  []bool
	report  BuildReport
}

func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts.withDefaults()}
}

// Build собирает плотный граф по раскладке.
func Build(layout models.Layout, opts Options) *Dense {
	return NewBuilder(opts).Build(layout.Nodes, layout.Links)
}

// Build строит плотный граф. Ошибок не возвращает: некорректные
// ссылки и дубликаты пропускаются и попадают в BuildReport.
func (b *Builder) Build(nodes []models.Node, links []models.Link) *Dense {
	b.reset()

	for _, n := range nodes {
		b.addAuthored(n)
	}
	b.report.AuthoredNodes = len(b.nodes)

	for _, e := range b.collectEdges(nodes, links) {
		b.densify(e.a, e.b)
	}
	b.report.AuthoredEdges = len(b.edgeSet)

	tree := b.buildIndex()
	b.stitch(tree)

	b.report.Edges = len(b.edgeSet)
	b.report.VirtualNodes = len(b.nodes) - b.report.AuthoredNodes

	if !b.report.Clean() {
		log.Printf("[GRAPH] Skipped input: %d duplicate nodes, %d dangling links, %d self-loops",
			len(b.report.DuplicateNodes), len(b.report.DanglingLinks), b.report.SelfLoops)
	}

	return &Dense{
		nodes:   b.nodes,
		index:   b.index,
		adj:     b.adj,
		edges:   len(b.edgeSet),
		tree:    tree,
		step:    b.opts.Step,
		epsilon: b.opts.Epsilon,
		report:  b.report,
	}
}

func (b *Builder) reset() {
	b.nodes = nil
	b.index = make(map[string]int)
	b.adj = nil
	b.edgeSet = make(map[edgeKey]struct{})
	b.linked = nil
	b.report = BuildReport{}
}

func (b *Builder) appendNode(n Node) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, n)
	b.index[n.ID] = idx
	b.adj = append(b.adj, nil)
	b.linked = append(b.linked, false)
	return idx
}

func (b *Builder) addAuthored(n models.Node) {
	if _, ok := b.index[n.ID]; ok {
		b.report.DuplicateNodes = append(b.report.DuplicateNodes, n.ID)
		return
	}
	b.appendNode(Node{ID: n.ID, X: n.X, Y: n.Y, Priority: n.Priority})
}

// collectEdges объединяет neighbors и links в один список неориентированных
// рёбер без повторов, в порядке первого появления.
func (b *Builder) collectEdges(nodes []models.Node, links []models.Link) []edgeKey {
	seen := make(map[edgeKey]struct{})
	var out []edgeKey

	add := func(from, to string) {
		a, okA := b.index[from]
		c, okC := b.index[to]
		if !okA || !okC {
			b.report.DanglingLinks = append(b.report.DanglingLinks, models.Link{From: from, To: to})
			return
		}
		if a == c {
			b.report.SelfLoops++
			return
		}
		k := keyOf(a, c)
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		// порядок концов сохраняем как в исходных данных
		out = append(out, edgeKey{a, c})
	}

	for _, n := range nodes {
		for _, nb := range n.Neighbors {
			add(n.ID, nb)
		}
	}
	for _, l := range links {
		add(l.From, l.To)
	}
	return out
}

// densify заменяет длинное ребро цепочкой виртуальных узлов с шагом не больше step.
func (b *Builder) densify(from, to int) {
	p1 := b.nodes[from].Point()
	p2 := b.nodes[to].Point()
	length := p1.Distance(p2)

	if length <= b.opts.Step {
		b.connect(from, to)
		return
	}

	segments := int(math.Ceil(length / b.opts.Step))
	prev := from
	for i := 1; i < segments; i++ {
		t := float64(i) / float64(segments)
		v := b.appendNode(Node{
			ID:      b.virtualID(from, to, i),
			X:       p1.X + (p2.X-p1.X)*t,
			Y:       p1.Y + (p2.Y-p1.Y)*t,
			Virtual: true,
		})
		b.connect(prev, v)
		prev = v
	}
	b.connect(prev, to)
}

// virtualID детерминированный id виртуального узла: одинаковый вход даёт одинаковые id.
func (b *Builder) virtualID(from, to, i int) string {
	id := fmt.Sprintf("%s~%s#%d", b.nodes[from].ID, b.nodes[to].ID, i)
	for {
		if _, taken := b.index[id]; !taken {
			return id
		}
		id += "'"
	}
}

func (b *Builder) connect(a, c int) bool {
	if a == c {
		return false
	}
	k := keyOf(a, c)
	if _, ok := b.edgeSet[k]; ok {
		return false
	}
	b.edgeSet[k] = struct{}{}
	b.adj[a] = append(b.adj[a], c)
	b.adj[c] = append(b.adj[c], a)
	b.linked[a] = true
	b.linked[c] = true
	return true
}

func (b *Builder) buildIndex() *rtreego.Rtree {
	objs := make([]rtreego.Spatial, len(b.nodes))
	for i, n := range b.nodes {
		objs[i] = newSpatialNode(i, n.Point())
	}
	return rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren, objs...)
}

// stitch соединяет близкие узлы, которые уже участвуют хотя бы в одном ребре.
// Изолированные авторские узлы так и остаются недостижимыми.
func (b *Builder) stitch(tree *rtreego.Rtree) {
	linked := append([]bool(nil), b.linked...)
	radius := b.opts.Step + b.opts.Epsilon

	for i, n := range b.nodes {
		if !linked[i] {
			continue
		}
		p := n.Point()
		box := rtreego.Point{p.X, p.Y}.ToRect(radius + pointTolerance)

		var near []int
		for _, obj := range tree.SearchIntersect(box) {
			j := obj.(*spatialNode).idx
			if j <= i || !linked[j] {
				continue
			}
			if b.nodes[j].Point().Distance(p) <= radius {
				near = append(near, j)
			}
		}
		sort.Ints(near)

		for _, j := range near {
			if b.connect(i, j) {
				b.report.StitchEdges++
			}
		}
	}
}
