package middleware

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method, path, status string
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recorded
}

func (f *fakeRecorder) RecordHTTPRequest(method, path, status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, recorded{method, path, status})
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	rec := &fakeRecorder{}
	app := fiber.New()
	app.Use(Metrics(rec))
	app.Get("/sessions/:id/route", func(c fiber.Ctx) error {
		return c.SendString(c.Params("id"))
	})
	app.Post("/fail", func(c fiber.Ctx) error {
		return fiber.NewError(fiber.StatusConflict, "busy")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/sessions/abc/route", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodPost, "/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	require.Len(t, rec.seen, 2)
	assert.Equal(t, recorded{"GET", "/sessions/:id/route", "200"}, rec.seen[0])
	assert.Equal(t, recorded{"POST", "/fail", "409"}, rec.seen[1])
}

func TestCORS_Preflight(t *testing.T) {
	app := fiber.New()
	app.Use(CORS([]string{"https://nav.example"}))
	app.Get("/x", func(c fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	req := httptest.NewRequest(fiber.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://nav.example")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "https://nav.example", resp.Header.Get("Access-Control-Allow-Origin"))
}
