package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"parking-navigator/internal/navigator/geo"
	"parking-navigator/internal/navigator/graph"
	"parking-navigator/internal/navigator/models"
	"parking-navigator/internal/navigator/selector"
)

var (
	ErrNoLayout    = errors.New("no layout loaded")
	ErrFetchFailed = errors.New("layout fetch failed")
)

// ============================================================
// Collaborators
// ============================================================

// Fetcher достаёт актуальную раскладку из хранилища.
type Fetcher interface {
	Fetch(ctx context.Context) (parkingID string, layout models.Layout, err error)
}

type FetcherFunc func(ctx context.Context) (string, models.Layout, error)

func (f FetcherFunc) Fetch(ctx context.Context) (string, models.Layout, error) {
	return f(ctx)
}

// Store сохраняет последнюю удачную раскладку и журнал занятости.
type Store interface {
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	AppendOccupancy(ctx context.Context, parkingID string, revision uint64, update models.OccupancyUpdate) error
}

// Observer получает события для метрик.
type Observer interface {
	GraphBuilt(nodes, edges int, took time.Duration)
	LayoutReload(status string)
	OccupancyApplied(applied, unknown int)
}

type noopObserver struct{}

func (noopObserver) GraphBuilt(int, int, time.Duration) {}
func (noopObserver) LayoutReload(string)                {}
func (noopObserver) OccupancyApplied(int, int)          {}

// Cause причина публикации нового снимка.
type Cause string

const (
	CauseLayout    Cause = "layout"
	CauseOccupancy Cause = "occupancy"
)

type Listener func(snap *Snapshot, cause Cause)

// ============================================================
// Engine
// ============================================================

type Config struct {
	Graph graph.Options
	// Strict отклоняет раскладки с висячими ссылками и повторами id.
	Strict bool
}

type Option func(*Engine)

func WithStore(s Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// Engine хранит общий снимок раскладки и упорядочивает перезагрузки:
// публикуется только результат последнего запроса.
type Engine struct {
	cfg      Config
	current  atomic.Pointer[Snapshot]
	store    Store
	observer Observer

	mu     sync.Mutex
	ticket uint64
	cancel context.CancelFunc

	lmu       sync.RWMutex
	listeners []Listener
}

func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, observer: noopObserver{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot текущий снимок или nil, если раскладка ещё не загружена.
func (e *Engine) Snapshot() *Snapshot {
	return e.current.Load()
}

// Subscribe регистрирует слушателя. Слушатели вызываются синхронно после публикации.
func (e *Engine) Subscribe(l Listener) {
	e.lmu.Lock()
	e.listeners = append(e.listeners, l)
	e.lmu.Unlock()
}

func (e *Engine) notify(snap *Snapshot, cause Cause) {
	e.lmu.RLock()
	listeners := append([]Listener(nil), e.listeners...)
	e.lmu.RUnlock()

	for _, l := range listeners {
		l(snap, cause)
	}
}

// ============================================================
// Layout publish
// ============================================================

type ReloadStatus string

const (
	ReloadPublished ReloadStatus = "published"
	ReloadStale     ReloadStatus = "stale"
	ReloadFailed    ReloadStatus = "failed"
	ReloadInvalid   ReloadStatus = "invalid"
)

type ReloadResult struct {
	Status   ReloadStatus
	Snapshot *Snapshot
	// Overwritten сколько ревизий занятости, применённых во время загрузки,
	// заменила опубликованная раскладка: её статусы мест главнее.
	Overwritten uint64
}

// Load синхронно публикует раскладку (старт из кэша, тесты).
func (e *Engine) Load(parkingID string, layout models.Layout) (*Snapshot, error) {
	e.mu.Lock()
	e.ticket++
	ticket := e.ticket
	base := e.revisionLocked()
	e.mu.Unlock()

	res, err := e.publishLayout(context.Background(), ticket, base, parkingID, layout)
	if err != nil {
		return nil, err
	}
	return res.Snapshot, nil
}

// Reload перечитывает раскладку. Предыдущая незавершённая загрузка отменяется,
// устаревший результат отбрасывается без ошибки. При ошибке загрузки или
// проверки остаётся последний удачный снимок.
func (e *Engine) Reload(ctx context.Context, f Fetcher) (ReloadResult, error) {
	e.mu.Lock()
	e.ticket++
	ticket := e.ticket
	base := e.revisionLocked()
	if e.cancel != nil {
		e.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		if e.ticket == ticket {
			e.cancel = nil
		}
		e.mu.Unlock()
		cancel()
	}()

	parkingID, layout, err := f.Fetch(fetchCtx)
	if err != nil {
		if !e.isLatest(ticket) {
			e.observer.LayoutReload(string(ReloadStale))
			return ReloadResult{Status: ReloadStale, Snapshot: e.Snapshot()}, nil
		}
		log.Printf("[ENGINE] Layout fetch failed: %v", err)
		e.observer.LayoutReload(string(ReloadFailed))
		return ReloadResult{Status: ReloadFailed, Snapshot: e.Snapshot()}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	return e.publishLayout(ctx, ticket, base, parkingID, layout)
}

func (e *Engine) revisionLocked() uint64 {
	if cur := e.current.Load(); cur != nil {
		return cur.Revision
	}
	return 0
}

func (e *Engine) isLatest(ticket uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticket == ticket
}

func (e *Engine) publishLayout(ctx context.Context, ticket, base uint64, parkingID string, layout models.Layout) (ReloadResult, error) {
	if e.cfg.Strict {
		if err := graph.Validate(layout); err != nil {
			log.Printf("[ENGINE] Layout %s rejected: %v", parkingID, err)
			e.observer.LayoutReload(string(ReloadInvalid))
			return ReloadResult{Status: ReloadInvalid, Snapshot: e.Snapshot()}, err
		}
	}

	layout = layout.Clone()
	if layout.Parking.Width == 0 && layout.Parking.Height == 0 && geo.HasCorners(layout.Parking) {
		geo.CalcSize(&layout.Parking)
	}

	started := time.Now()
	g := graph.Build(layout, e.cfg.Graph)
	e.observer.GraphBuilt(g.Len(), g.EdgeCount(), time.Since(started))

	snap := &Snapshot{
		ParkingID:  parkingID,
		Layout:     layout,
		Graph:      g,
		FrontNodes: selector.FrontNodes(g, layout.Slots),
		BuiltAt:    time.Now(),
	}

	e.mu.Lock()
	if e.ticket != ticket {
		e.mu.Unlock()
		e.observer.LayoutReload(string(ReloadStale))
		return ReloadResult{Status: ReloadStale, Snapshot: e.Snapshot()}, nil
	}
	var overwritten uint64
	if prev := e.current.Load(); prev != nil {
		snap.Version = prev.Version + 1
		snap.Revision = prev.Revision + 1
		if prev.Revision > base {
			overwritten = prev.Revision - base
		}
	} else {
		snap.Version = 1
		snap.Revision = 1
	}
	e.current.Store(snap)
	e.mu.Unlock()

	log.Printf("[ENGINE] Published layout %s v%d: %d slots, %d nodes (%d virtual), %d edges",
		parkingID, snap.Version, len(layout.Slots), g.Len(), g.Report().VirtualNodes, g.EdgeCount())
	e.observer.LayoutReload(string(ReloadPublished))
	if overwritten > 0 {
		log.Printf("[ENGINE] Layout %s v%d replaced %d occupancy revision(s) applied during fetch",
			parkingID, snap.Version, overwritten)
	}

	if e.store != nil {
		if err := e.store.SaveSnapshot(ctx, snap); err != nil {
			log.Printf("[ENGINE] Failed to persist layout %s: %v", parkingID, err)
		}
	}

	e.notify(snap, CauseLayout)
	return ReloadResult{Status: ReloadPublished, Snapshot: snap, Overwritten: overwritten}, nil
}

// ============================================================
// Occupancy
// ============================================================

type OccupancyResult struct {
	Applied  int      `json:"applied"`
	Unknown  []string `json:"unknown,omitempty"`
	Revision uint64   `json:"revision"`
}

// ApplyOccupancy применяет изменения занятости к копии списка мест.
// Неизвестные id пропускаются и возвращаются в результате.
func (e *Engine) ApplyOccupancy(ctx context.Context, update models.OccupancyUpdate) (OccupancyResult, error) {
	e.mu.Lock()
	cur := e.current.Load()
	if cur == nil {
		e.mu.Unlock()
		return OccupancyResult{}, ErrNoLayout
	}

	slots := append([]models.Slot(nil), cur.Layout.Slots...)
	var res OccupancyResult
	for _, ch := range update.Updates {
		idx := cur.Layout.SlotIndex(ch.ID)
		if idx < 0 {
			res.Unknown = append(res.Unknown, ch.ID)
			continue
		}
		slots[idx].Status = ch.Status
		res.Applied++
	}

	if res.Applied == 0 {
		e.mu.Unlock()
		res.Revision = cur.Revision
		e.observer.OccupancyApplied(0, len(res.Unknown))
		return res, nil
	}

	next := cur.withSlots(slots)
	e.current.Store(next)
	e.mu.Unlock()

	res.Revision = next.Revision
	e.observer.OccupancyApplied(res.Applied, len(res.Unknown))
	if len(res.Unknown) > 0 {
		log.Printf("[ENGINE] Occupancy update from %q: unknown slots %v", update.Source, res.Unknown)
	}

	if e.store != nil {
		if err := e.store.AppendOccupancy(ctx, next.ParkingID, next.Revision, update); err != nil {
			log.Printf("[ENGINE] Failed to log occupancy: %v", err)
		}
	}

	e.notify(next, CauseOccupancy)
	return res, nil
}
