package graph

import (
	"fmt"
	"math"
	"testing"

	"parking-navigator/internal/navigator/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestBuildProperties инварианты сборщика на случайных раскладках.
func TestBuildProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("densified link has ceil(L/s)-1 virtual nodes", prop.ForAll(
		func(length, step float64) bool {
			g := NewBuilder(Options{Step: step}).Build(
				[]models.Node{{ID: "A"}, {ID: "B", X: length}},
				[]models.Link{{From: "A", To: "B"}},
			)

			want := 0
			if length > step {
				want = int(math.Ceil(length/step)) - 1
			}
			if g.Report().VirtualNodes != want {
				return false
			}
			for _, e := range g.Edges() {
				if g.EdgeLength(e[0], e[1]) > step+DefaultEpsilon+1e-9 {
					return false
				}
			}
			return true
		},
		gen.Float64Range(0.1, 200),
		gen.Float64Range(0.5, 10),
	))

	properties.Property("adjacency is symmetric without self-loops or duplicates", prop.ForAll(
		func(xs, ys []float64, ends []int) bool {
			nodes := make([]models.Node, len(xs))
			for i := range xs {
				nodes[i] = models.Node{ID: fmt.Sprintf("N%d", i), X: xs[i], Y: ys[i]}
			}
			var links []models.Link
			for k := 0; k+1 < len(ends); k += 2 {
				links = append(links, models.Link{
					From: fmt.Sprintf("N%d", ends[k]),
					To:   fmt.Sprintf("N%d", ends[k+1]),
				})
			}

			g := NewBuilder(Options{}).Build(nodes, links)
			for i := 0; i < g.Len(); i++ {
				seen := make(map[int]bool)
				for _, j := range g.Neighbors(i) {
					if j == i || seen[j] || !g.HasEdge(j, i) {
						return false
					}
					seen[j] = true
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.Float64Range(0, 30)),
		gen.SliceOfN(8, gen.Float64Range(0, 30)),
		gen.SliceOf(gen.IntRange(0, 9)),
	))

	properties.Property("authored link endpoints stay in one dense component", prop.ForAll(
		func(xs, ys []float64, ends []int, step float64) bool {
			nodes := make([]models.Node, len(xs))
			for i := range xs {
				nodes[i] = models.Node{ID: fmt.Sprintf("N%d", i), X: xs[i], Y: ys[i]}
			}
			var links []models.Link
			for k := 0; k+1 < len(ends); k += 2 {
				links = append(links, models.Link{
					From: fmt.Sprintf("N%d", ends[k]),
					To:   fmt.Sprintf("N%d", ends[k+1]),
				})
			}

			g := NewBuilder(Options{Step: step}).Build(nodes, links)
			comp := components(g)
			for _, l := range links {
				from, okFrom := g.Index(l.From)
				to, okTo := g.Index(l.To)
				if !okFrom || !okTo || from == to {
					continue
				}
				if comp[from] != comp[to] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.Float64Range(0, 30)),
		gen.SliceOfN(8, gen.Float64Range(0, 30)),
		gen.SliceOf(gen.IntRange(0, 9)),
		gen.Float64Range(0.5, 10),
	))

	properties.TestingRun(t)
}

// components номер компоненты связности для каждого узла (BFS по соседям).
func components(g *Dense) []int {
	comp := make([]int, g.Len())
	for i := range comp {
		comp[i] = -1
	}
	next := 0
	for i := range comp {
		if comp[i] >= 0 {
			continue
		}
		comp[i] = next
		queue := []int{i}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nb := range g.Neighbors(cur) {
				if comp[nb] < 0 {
					comp[nb] = next
					queue = append(queue, nb)
				}
			}
		}
		next++
	}
	return comp
}
