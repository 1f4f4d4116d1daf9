package selector

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"parking-navigator/internal/navigator/graph"
	"parking-navigator/internal/navigator/models"
)

// ============================================================
// Policies
// ============================================================

type Policy string

const (
	PolicyNearest        Policy = "nearest"
	PolicyEntranceBiased Policy = "entrance-biased"
	PolicySidePreferring Policy = "side-preferring"
)

type Metric string

const (
	MetricEuclidean Metric = "euclidean"
	MetricPath      Metric = "path"
)

type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyNearest, nil
	case PolicyNearest, PolicyEntranceBiased, PolicySidePreferring:
		return p, nil
	}
	return "", fmt.Errorf("unknown selection policy %q", s)
}

func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MetricEuclidean, nil
	case MetricEuclidean, MetricPath:
		return m, nil
	}
	return "", fmt.Errorf("unknown distance metric %q", s)
}

func ParseAxis(s string) (Axis, error) {
	switch a := Axis(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return AxisX, nil
	case AxisX, AxisY:
		return a, nil
	}
	return "", fmt.Errorf("unknown side axis %q", s)
}

func (a Axis) coord(p models.Point) float64 {
	if a == AxisY {
		return p.Y
	}
	return p.X
}

// ============================================================
// Selector
// ============================================================

type Config struct {
	Policy Policy
	Metric Metric
	Axis   Axis
	// Entrance используется, если в раскладке точка входа не задана.
	Entrance *models.Point
}

// View то, что нужно селектору от текущего снимка раскладки.
// FrontNodes[i]: узел перед местом Slots[i] или -1.
type View struct {
	Slots      []models.Slot
	Graph      *graph.Dense
	FrontNodes []int
	Entrance   *models.Point
}

// Candidate свободное место вместе с узлом назначения.
type Candidate struct {
	Slot      models.Slot
	SlotIndex int
	FrontNode int
	Distance  float64
}

type Selector struct {
	cfg Config
}

func New(cfg Config) *Selector {
	if cfg.Policy == "" {
		cfg.Policy = PolicyNearest
	}
	if cfg.Metric == "" {
		cfg.Metric = MetricEuclidean
	}
	if cfg.Axis == "" {
		cfg.Axis = AxisX
	}
	return &Selector{cfg: cfg}
}

func (s *Selector) Policy() Policy {
	return s.cfg.Policy
}

// Select лучший кандидат или false, если свободных мест нет.
func (s *Selector) Select(v View, pos models.Point) (Candidate, bool) {
	ranked := s.Rank(v, pos)
	if len(ranked) == 0 {
		return Candidate{}, false
	}
	return ranked[0], true
}

// Rank свободные места по возрастанию расстояния согласно политике.
// При равных расстояниях сохраняется порядок мест в раскладке.
func (s *Selector) Rank(v View, pos models.Point) []Candidate {
	origin := pos
	if s.cfg.Policy == PolicyEntranceBiased {
		if e := s.entrance(v); e != nil {
			origin = *e
		}
	}

	distance := s.distanceFrom(v, origin)
	var out []Candidate
	for i, slot := range v.Slots {
		if !slot.Free() {
			continue
		}
		front := frontNode(v, i)
		if front < 0 {
			continue
		}
		d := distance(front)
		if math.IsInf(d, 1) {
			continue
		}
		out = append(out, Candidate{Slot: slot, SlotIndex: i, FrontNode: front, Distance: d})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance < out[j].Distance
	})

	if s.cfg.Policy == PolicySidePreferring {
		out = s.preferSide(v, pos, out)
	}
	return out
}

func (s *Selector) entrance(v View) *models.Point {
	if v.Entrance != nil {
		return v.Entrance
	}
	return s.cfg.Entrance
}

// distanceFrom функция расстояния от origin до узла графа.
func (s *Selector) distanceFrom(v View, origin models.Point) func(node int) float64 {
	if s.cfg.Metric == MetricPath && v.Graph != nil {
		start, ok := v.Graph.Nearest(origin)
		if !ok {
			return func(int) float64 { return math.Inf(1) }
		}
		dist := v.Graph.Distances(start)
		return func(node int) float64 { return dist[node] }
	}
	return func(node int) float64 {
		return origin.Distance(v.Graph.Node(node).Point())
	}
}

func frontNode(v View, slot int) int {
	if v.Graph == nil || slot >= len(v.FrontNodes) {
		return -1
	}
	return v.FrontNodes[slot]
}

// preferSide ставит вперёд места с той же стороны разделителя, что и посетитель;
// внутри каждой стороны порядок ранжирования сохраняется.
func (s *Selector) preferSide(v View, pos models.Point, ranked []Candidate) []Candidate {
	divider, ok := Divider(v.Slots, s.cfg.Axis)
	if !ok {
		return ranked
	}
	low := s.cfg.Axis.coord(pos) < divider

	same := make([]Candidate, 0, len(ranked))
	var other []Candidate
	for _, c := range ranked {
		if (s.cfg.Axis.coord(c.Slot.Center()) < divider) == low {
			same = append(same, c)
		} else {
			other = append(other, c)
		}
	}
	return append(same, other...)
}

// Divider середина между крайними центрами мест по оси.
func Divider(slots []models.Slot, axis Axis) (float64, bool) {
	if len(slots) == 0 {
		return 0, false
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, slot := range slots {
		c := axis.coord(slot.Center())
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}
	return (lo + hi) / 2, true
}

// FrontNodes для каждого места ближайший к его центру узел графа (или -1).
func FrontNodes(g *graph.Dense, slots []models.Slot) []int {
	out := make([]int, len(slots))
	for i, slot := range slots {
		out[i] = -1
		if g == nil {
			continue
		}
		if idx, ok := g.Nearest(slot.Center()); ok {
			out[i] = idx
		}
	}
	return out
}
