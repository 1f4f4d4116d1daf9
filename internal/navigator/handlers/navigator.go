package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"parking-navigator/internal/navigator/engine"
	"parking-navigator/internal/navigator/geo"
	"parking-navigator/internal/navigator/graph"
	"parking-navigator/internal/navigator/models"
	"parking-navigator/internal/navigator/repository"
	"parking-navigator/internal/navigator/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Navigator Handler
// ============================================================

// OccupancyLog журнал изменений занятости (repository.Repository).
type OccupancyLog interface {
	OccupancyEvents(ctx context.Context, parkingID string, limit int) ([]repository.OccupancyEvent, error)
}

type NavigatorHandler struct {
	engine   *engine.Engine
	sessions *session.Manager
	fetcher  engine.Fetcher
	events   OccupancyLog
	validate *validator.Validate
}

// NewNavigatorHandler fetcher и events могут быть nil: тогда перезагрузка
// и журнал занятости отвечают 503.
func NewNavigatorHandler(e *engine.Engine, sessions *session.Manager, fetcher engine.Fetcher, events OccupancyLog) *NavigatorHandler {
	return &NavigatorHandler{
		engine:   e,
		sessions: sessions,
		fetcher:  fetcher,
		events:   events,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register вешает маршруты навигатора на роутер.
func (h *NavigatorHandler) Register(r fiber.Router) {
	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions", h.ListSessions)
	r.Get("/sessions/:id/route", h.GetRoute)
	r.Put("/sessions/:id/position", h.UpdatePosition)
	r.Delete("/sessions/:id", h.DeleteSession)

	r.Post("/occupancy", h.ApplyOccupancy)
	r.Get("/occupancy/events", h.OccupancyEvents)

	r.Get("/layout", h.GetLayout)
	r.Post("/layout/reload", h.ReloadLayout)
	r.Get("/layout/graph", h.GetGraph)
}

func errorJSON(c fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// ============================================================
// Sessions
// ============================================================

type createSessionResponse struct {
	ID    string        `json:"id"`
	State session.State `json:"state"`
}

func (h *NavigatorHandler) CreateSession(c fiber.Ctx) error {
	s := h.sessions.Create()
	log.Printf("[NAVIGATOR] Session %s created", s.ID())
	return c.Status(http.StatusCreated).JSON(createSessionResponse{ID: s.ID(), State: s.State()})
}

// ListSessions позиции всех посетителей, у которых она известна.
func (h *NavigatorHandler) ListSessions(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"count":     h.sessions.Len(),
		"positions": h.sessions.Positions(),
	})
}

func (h *NavigatorHandler) GetRoute(c fiber.Ctx) error {
	route, err := h.sessions.Route(c.Params("id"))
	if err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(route)
}

type positionRequest struct {
	X   *float64 `json:"x"`
	Y   *float64 `json:"y"`
	Lat *float64 `json:"lat" validate:"omitempty,latitude"`
	Lng *float64 `json:"lng" validate:"omitempty,longitude"`
}

// UpdatePosition принимает {x,y} в метрах участка или {lat,lng}.
func (h *NavigatorHandler) UpdatePosition(c fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return errorJSON(c, http.StatusBadRequest, "empty body")
	}

	var req positionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid json")
	}
	if err := h.validate.Struct(req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var pos models.Point
	switch {
	case req.X != nil && req.Y != nil:
		pos = models.Point{X: *req.X, Y: *req.Y}
	case req.Lat != nil && req.Lng != nil:
		snap := h.engine.Snapshot()
		if snap == nil {
			return errorJSON(c, http.StatusServiceUnavailable, engine.ErrNoLayout.Error())
		}
		if !geo.HasCorners(snap.Layout.Parking) {
			return errorJSON(c, http.StatusUnprocessableEntity, "parking has no coordinates")
		}
		pos = geo.ToLocal(snap.Layout.Parking, *req.Lat, *req.Lng)
	default:
		return errorJSON(c, http.StatusBadRequest, "x,y or lat,lng required")
	}

	route, err := h.sessions.UpdatePosition(c.Params("id"), pos)
	if err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(route)
}

func (h *NavigatorHandler) DeleteSession(c fiber.Ctx) error {
	id := c.Params("id")
	if err := h.sessions.Delete(id); err != nil {
		return h.sessionError(c, err)
	}
	log.Printf("[NAVIGATOR] Session %s closed", id)
	return c.SendStatus(http.StatusNoContent)
}

func (h *NavigatorHandler) sessionError(c fiber.Ctx, err error) error {
	if errors.Is(err, session.ErrSessionNotFound) {
		return errorJSON(c, http.StatusNotFound, err.Error())
	}
	log.Printf("[NAVIGATOR] session error: %v", err)
	return errorJSON(c, http.StatusInternalServerError, "internal error")
}

// ============================================================
// Occupancy
// ============================================================

func (h *NavigatorHandler) ApplyOccupancy(c fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return errorJSON(c, http.StatusBadRequest, "empty body")
	}

	var req models.OccupancyUpdate
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid json")
	}
	if err := h.validate.Struct(req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	res, err := h.engine.ApplyOccupancy(context.Background(), req)
	if err != nil {
		if errors.Is(err, engine.ErrNoLayout) {
			return errorJSON(c, http.StatusConflict, err.Error())
		}
		log.Printf("[NAVIGATOR] occupancy error: %v", err)
		return errorJSON(c, http.StatusInternalServerError, "internal error")
	}
	return c.JSON(res)
}

// OccupancyEvents последние изменения занятости текущего участка (?limit=N).
func (h *NavigatorHandler) OccupancyEvents(c fiber.Ctx) error {
	if h.events == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "occupancy log disabled")
	}
	snap := h.engine.Snapshot()
	if snap == nil {
		return errorJSON(c, http.StatusServiceUnavailable, engine.ErrNoLayout.Error())
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return errorJSON(c, http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	events, err := h.events.OccupancyEvents(context.Background(), snap.ParkingID, limit)
	if err != nil {
		log.Printf("[NAVIGATOR] occupancy log error: %v", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to read occupancy log")
	}
	if events == nil {
		events = []repository.OccupancyEvent{}
	}
	return c.JSON(fiber.Map{"parkingId": snap.ParkingID, "events": events})
}

// ============================================================
// Layout
// ============================================================

type layoutResponse struct {
	ParkingID string        `json:"parkingId"`
	Version   uint64        `json:"version"`
	Revision  uint64        `json:"revision"`
	FreeSlots int           `json:"freeSlots"`
	Layout    models.Layout `json:"layout"`
}

func (h *NavigatorHandler) GetLayout(c fiber.Ctx) error {
	snap := h.engine.Snapshot()
	if snap == nil {
		return errorJSON(c, http.StatusServiceUnavailable, engine.ErrNoLayout.Error())
	}
	return c.JSON(layoutResponse{
		ParkingID: snap.ParkingID,
		Version:   snap.Version,
		Revision:  snap.Revision,
		FreeSlots: snap.FreeSlots(),
		Layout:    snap.Layout,
	})
}

type reloadResponse struct {
	Status   engine.ReloadStatus `json:"status"`
	Version  uint64              `json:"version"`
	Revision uint64              `json:"revision"`
}

// ReloadLayout webhook хранилища раскладок: то же, что событие layout_updated.
func (h *NavigatorHandler) ReloadLayout(c fiber.Ctx) error {
	if h.fetcher == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "layout source not configured")
	}

	res, err := h.engine.Reload(context.Background(), h.fetcher)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrFetchFailed):
			return errorJSON(c, http.StatusBadGateway, err.Error())
		case errors.Is(err, graph.ErrInvalidLayout):
			return errorJSON(c, http.StatusUnprocessableEntity, err.Error())
		}
		log.Printf("[NAVIGATOR] reload error: %v", err)
		return errorJSON(c, http.StatusInternalServerError, "internal error")
	}

	out := reloadResponse{Status: res.Status}
	if res.Snapshot != nil {
		out.Version = res.Snapshot.Version
		out.Revision = res.Snapshot.Revision
	}
	return c.JSON(out)
}

type graphEdge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Length float64 `json:"length"`
}

type graphResponse struct {
	Version uint64            `json:"version"`
	Step    float64           `json:"step"`
	Nodes   []graph.Node      `json:"nodes"`
	Edges   []graphEdge       `json:"edges"`
	Report  graph.BuildReport `json:"report"`
}

// GetGraph плотный граф текущей раскладки (для отладки и отрисовки).
func (h *NavigatorHandler) GetGraph(c fiber.Ctx) error {
	snap := h.engine.Snapshot()
	if snap == nil {
		return errorJSON(c, http.StatusServiceUnavailable, engine.ErrNoLayout.Error())
	}

	g := snap.Graph
	edges := make([]graphEdge, 0, g.EdgeCount())
	for _, e := range g.Edges() {
		edges = append(edges, graphEdge{
			From:   g.Node(e[0]).ID,
			To:     g.Node(e[1]).ID,
			Length: g.EdgeLength(e[0], e[1]),
		})
	}
	nodes := g.Nodes()
	if nodes == nil {
		nodes = []graph.Node{}
	}

	return c.JSON(graphResponse{
		Version: snap.Version,
		Step:    g.Step(),
		Nodes:   nodes,
		Edges:   edges,
		Report:  g.Report(),
	})
}
