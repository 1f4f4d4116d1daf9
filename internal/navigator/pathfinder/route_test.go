package pathfinder

import (
	"testing"

	"parking-navigator/internal/navigator/graph"
	"parking-navigator/internal/navigator/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_SnapsPoints(t *testing.T) {
	g := grid(3)
	r := NewRouter(NewAStar(), false)

	path := r.Route(g, models.Point{X: -1, Y: -0.5}, models.Point{X: 4.3, Y: 3.8})
	require.NotEmpty(t, path)
	assert.Equal(t, "G0_0", g.Node(path[0]).ID)
	assert.Equal(t, "G2_2", g.Node(path[len(path)-1]).ID)
}

func TestRouter_EmptyGraph(t *testing.T) {
	r := NewRouter(nil, false)
	g := graph.NewBuilder(graph.Options{}).Build(nil, nil)

	assert.Empty(t, r.Route(g, models.Point{}, models.Point{X: 1}))
	assert.Empty(t, r.Route(nil, models.Point{}, models.Point{X: 1}))
}

func TestRouter_PriorityVia(t *testing.T) {
	// S - X - T по прямой, P отходит от S вверх
	g := graph.NewBuilder(graph.Options{}).Build([]models.Node{
		{ID: "S", X: 0, Y: 2, Neighbors: []string{"X", "P"}},
		{ID: "X", X: 2, Y: 2, Neighbors: []string{"T"}},
		{ID: "T", X: 4, Y: 2},
		{ID: "P", X: 0, Y: 0, Priority: true},
	}, nil)

	direct := NewRouter(NewBFS(), false).Between(g, 0, 2)
	assert.Equal(t, []string{"S", "X", "T"}, g.IDs(direct))

	via := NewRouter(NewBFS(), true).Between(g, 0, 2)
	assert.Equal(t, []string{"S", "P", "S", "X", "T"}, g.IDs(via))

	count := 0
	for _, id := range g.IDs(via) {
		if id == "P" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestRouter_PriorityUnreachableFallsBack(t *testing.T) {
	g := graph.NewBuilder(graph.Options{}).Build([]models.Node{
		{ID: "S", X: 0, Y: 0, Neighbors: []string{"T"}},
		{ID: "T", X: 2, Y: 0},
		{ID: "P", X: 30, Y: 30, Priority: true},
	}, nil)

	path := NewRouter(NewAStar(), true).Between(g, 0, 1)
	assert.Equal(t, []string{"S", "T"}, g.IDs(path))
}

func TestRouter_DensifiedLine(t *testing.T) {
	g := graph.NewBuilder(graph.Options{Step: 5}).Build(
		[]models.Node{{ID: "N1", X: 0, Y: 0}, {ID: "N2", X: 10, Y: 0}},
		[]models.Link{{From: "N1", To: "N2"}},
	)
	require.Equal(t, 3, g.Len())
	assert.Equal(t, models.Point{X: 5, Y: 0}, g.Node(2).Point())

	for _, f := range []Finder{NewBFS(), NewAStar()} {
		path := NewRouter(f, false).Route(g, models.Point{X: 0, Y: 0}, models.Point{X: 10, Y: 0})
		assert.Equal(t, []string{"N1", "N1~N2#1", "N2"}, g.IDs(path))
	}
}
