package models

import "math"

// ============================================================
// Geometry primitives
// ============================================================

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance возвращает евклидово расстояние между точками.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// ============================================================
// Parking layout
// ============================================================

// Occupancy занятость места: 0 свободно, 1 занято (как status в admin-панели).
type Occupancy int

const (
	SlotFree     Occupancy = 0
	SlotOccupied Occupancy = 1
)

func (o Occupancy) String() string {
	if o == SlotOccupied {
		return "OCCUPIED"
	}
	return "FREE"
}

// Parking границы участка. Width/Height в метрах, вычисляются из пары координат.
type Parking struct {
	Lat1   float64 `json:"lat1"`
	Lng1   float64 `json:"lng1"`
	Lat2   float64 `json:"lat2"`
	Lng2   float64 `json:"lng2"`
	Width  float64 `json:"width" validate:"gte=0"`
	Height float64 `json:"height" validate:"gte=0"`
}

// Slot парковочное место. В документе раскладки лежит под ключом "rods".
type Slot struct {
	ID      string    `json:"id" validate:"required"`
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	Width   float64   `json:"width" validate:"gte=0"`
	Height  float64   `json:"height" validate:"gte=0"`
	Angle   float64   `json:"angle"`
	Status  Occupancy `json:"status" validate:"oneof=0 1"`
	GroupID string    `json:"groupId,omitempty"`
}

// Center центр места. Поворот выполняется вокруг центра, поэтому угол не влияет.
func (s Slot) Center() Point {
	return Point{X: s.X + s.Width/2, Y: s.Y + s.Height/2}
}

func (s Slot) Free() bool {
	return s.Status == SlotFree
}

type Node struct {
	ID        string   `json:"id" validate:"required"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Radius    float64  `json:"radius,omitempty"`
	Neighbors []string `json:"neighbors"`
	Priority  bool     `json:"priority,omitempty"`
}

func (n Node) Point() Point {
	return Point{X: n.X, Y: n.Y}
}

type Link struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// Layout раскладка одного участка.
type Layout struct {
	Name     string  `json:"name"`
	Parking  Parking `json:"parking"`
	Slots    []Slot  `json:"rods" validate:"dive"`
	Nodes    []Node  `json:"nodes" validate:"dive"`
	Links    []Link  `json:"links" validate:"dive"`
	Entrance *Point  `json:"entrance,omitempty"`
	BgSrc    string  `json:"bgSrc,omitempty"`
}

// SlotIndex возвращает позицию места по id или -1.
func (l *Layout) SlotIndex(id string) int {
	for i := range l.Slots {
		if l.Slots[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone копирует раскладку вместе со срезами, чтобы изменения не задевали оригинал.
func (l Layout) Clone() Layout {
	out := l
	out.Slots = append([]Slot(nil), l.Slots...)
	out.Links = append([]Link(nil), l.Links...)
	out.Nodes = make([]Node, len(l.Nodes))
	for i, n := range l.Nodes {
		n.Neighbors = append([]string(nil), n.Neighbors...)
		out.Nodes[i] = n
	}
	if l.Entrance != nil {
		e := *l.Entrance
		out.Entrance = &e
	}
	return out
}

// LayoutDocument то, что отдаёт хранилище раскладок: parkingID -> Layout.
type LayoutDocument map[string]Layout

// ============================================================
// Occupancy updates
// ============================================================

type OccupancyChange struct {
	ID     string    `json:"id" validate:"required"`
	Status Occupancy `json:"status" validate:"oneof=0 1"`
}

type OccupancyUpdate struct {
	Updates []OccupancyChange `json:"updates" validate:"required,min=1,dive"`
	Source  string            `json:"source,omitempty"`
}
