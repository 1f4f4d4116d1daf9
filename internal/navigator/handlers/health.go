package handlers

import (
	"net/http"
	"time"

	"parking-navigator/internal/navigator/engine"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Health Check Handlers
// ============================================================

// SnapshotSource источник текущего снимка (engine.Engine).
type SnapshotSource interface {
	Snapshot() *engine.Snapshot
}

type HealthHandler struct {
	source  SnapshotSource
	started time.Time
}

func NewHealthHandler(source SnapshotSource) *HealthHandler {
	return &HealthHandler{source: source, started: time.Now()}
}

func (h *HealthHandler) Register(r fiber.Router) {
	r.Get("/health/live", h.LivenessProbe)
	r.Get("/health/ready", h.ReadinessProbe)
	r.Get("/health/startup", h.StartupProbe)
}

// LivenessProbe проверяет, что процесс отвечает
func (h *HealthHandler) LivenessProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "alive",
	})
}

// ReadinessProbe готов, когда опубликована хотя бы одна раскладка
func (h *HealthHandler) ReadinessProbe(c fiber.Ctx) error {
	snap := h.source.Snapshot()
	if snap == nil {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "waiting for layout",
		})
	}
	return c.JSON(fiber.Map{
		"status":    "ready",
		"parkingId": snap.ParkingID,
		"version":   snap.Version,
		"revision":  snap.Revision,
		"nodes":     snap.Graph.Len(),
		"freeSlots": snap.FreeSlots(),
	})
}

// StartupProbe проверяет, что приложение успешно запустилось
func (h *HealthHandler) StartupProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "started",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}
