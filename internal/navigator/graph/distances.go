package graph

import (
	"container/heap"
	"math"
)

// ============================================================
// Single-source distances
// ============================================================

type distItem struct {
	node int
	dist float64
}

type distQueue []distItem

func (q distQueue) Len() int            { return len(q) }
func (q distQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q distQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *distQueue) Push(x interface{}) { *q = append(*q, x.(distItem)) }
func (q *distQueue) Pop() interface{} {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// Distances длины кратчайших путей от source до всех узлов (Дейкстра,
// веса рёбер евклидовы). Недостижимые узлы получают +Inf.
func (g *Dense) Distances(source int) []float64 {
	dist := make([]float64, len(g.nodes))
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	if source < 0 || source >= len(g.nodes) {
		return dist
	}

	dist[source] = 0
	q := &distQueue{{node: source}}
	for q.Len() > 0 {
		it := heap.Pop(q).(distItem)
		// устаревшая запись: узел уже закрыт с меньшей длиной
		if it.dist > dist[it.node] {
			continue
		}
		for _, nb := range g.adj[it.node] {
			nd := it.dist + g.EdgeLength(it.node, nb)
			if nd < dist[nb] {
				dist[nb] = nd
				heap.Push(q, distItem{node: nb, dist: nd})
			}
		}
	}
	return dist
}
