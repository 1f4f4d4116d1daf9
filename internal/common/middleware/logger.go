package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// ============================================================
// Logger Middleware
// ============================================================

// Logger access-лог с тегом сервиса, чтобы строки gateway и навигатора различались.
func Logger(service string) fiber.Handler {
	return logger.New(logger.Config{
		Format:     fmt.Sprintf("[${time}] [%s] ${status} - ${latency} ${method} ${path} | ${bytesSent}b\n", service),
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	})
}
