package engine

import (
	"time"

	"parking-navigator/internal/navigator/graph"
	"parking-navigator/internal/navigator/models"
	"parking-navigator/internal/navigator/selector"
)

// Snapshot опубликованное состояние раскладки. После публикации не меняется:
// обновление занятости создаёт новый снимок с общим графом.
type Snapshot struct {
	// Version растёт при каждой замене раскладки.
	Version uint64
	// Revision растёт при любой публикации, включая изменения занятости.
	Revision   uint64
	ParkingID  string
	Layout     models.Layout
	Graph      *graph.Dense
	FrontNodes []int
	BuiltAt    time.Time
}

// View данные для селектора мест.
func (s *Snapshot) View() selector.View {
	return selector.View{
		Slots:      s.Layout.Slots,
		Graph:      s.Graph,
		FrontNodes: s.FrontNodes,
		Entrance:   s.Layout.Entrance,
	}
}

// FreeSlots число свободных мест.
func (s *Snapshot) FreeSlots() int {
	n := 0
	for _, slot := range s.Layout.Slots {
		if slot.Free() {
			n++
		}
	}
	return n
}

// withSlots копия снимка с новым списком мест; граф и узлы перед местами общие.
func (s *Snapshot) withSlots(slots []models.Slot) *Snapshot {
	next := *s
	next.Layout.Slots = slots
	next.Revision = s.Revision + 1
	return &next
}
