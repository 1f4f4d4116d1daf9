package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Metrics Middleware
// ============================================================

// HTTPRecorder принимает замер запроса (metrics.Registry).
type HTTPRecorder interface {
	RecordHTTPRequest(method, path, status string, duration time.Duration)
}

// Metrics считает запросы по шаблону маршрута (/sessions/:id), а не по фактическому пути.
func Metrics(rec HTTPRecorder) fiber.Handler {
	return func(c fiber.Ctx) error {
		started := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		path := c.Route().Path
		if path == "" {
			path = "unmatched"
		}
		rec.RecordHTTPRequest(c.Method(), path, strconv.Itoa(status), time.Since(started))
		return err
	}
}
