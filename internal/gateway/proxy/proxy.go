package proxy

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"resty.dev/v3"
)

// ============================================================
// Proxy Handler
// ============================================================

// forwardedHeaders заголовки запроса, которые уходят в навигатор.
var forwardedHeaders = []string{"Content-Type", "Accept", "Authorization"}

// skippedHeaders заголовки ответа, которые выставляет сам fiber.
var skippedHeaders = map[string]bool{
	"Content-Length":    true,
	"Connection":        true,
	"Transfer-Encoding": true,
	"Date":              true,
	"Server":            true,
}

// Proxy пересылает запросы gateway в сервис навигатора.
type Proxy struct {
	client *resty.Client
	target string
}

func New(target string, timeout time.Duration) *Proxy {
	return &Proxy{
		client: resty.New().SetTimeout(timeout),
		target: strings.TrimRight(target, "/"),
	}
}

func (p *Proxy) Close() error {
	return p.client.Close()
}

// Handler проксирует запрос, отрезая prefix: /api/v1/sessions -> {target}/sessions.
func (p *Proxy) Handler(prefix string) fiber.Handler {
	return func(c fiber.Ctx) error {
		path := strings.TrimPrefix(c.Path(), prefix)
		if path == "" {
			path = "/"
		}
		return p.Forward(c, path)
	}
}

// Forward пересылает текущий запрос на path сервиса с тем же методом, телом и query.
func (p *Proxy) Forward(c fiber.Ctx, path string) error {
	targetURL := p.target + path
	if q := string(c.Request().URI().QueryString()); q != "" {
		targetURL += "?" + q
	}
	log.Printf("[PROXY] %s %s -> %s (%d bytes)", c.Method(), c.Path(), targetURL, len(c.Body()))

	req := p.client.R().SetContext(context.Background())
	for _, h := range forwardedHeaders {
		if v := c.Get(h); v != "" {
			req.SetHeader(h, v)
		}
	}
	if body := c.Body(); len(body) > 0 {
		req.SetBody(append([]byte(nil), body...))
	}

	res, err := req.Execute(c.Method(), targetURL)
	if err != nil {
		log.Printf("[PROXY] Error: %v", err)
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "failed to reach upstream service"})
	}

	for key, values := range res.Header() {
		if skippedHeaders[http.CanonicalHeaderKey(key)] || len(values) == 0 {
			continue
		}
		c.Set(key, values[0])
	}
	c.Status(res.StatusCode())
	return c.Send(res.Bytes())
}

// Ping проверяет готовность навигатора.
func (p *Proxy) Ping(ctx context.Context) error {
	res, err := p.client.R().SetContext(ctx).Get(p.target + "/health/ready")
	if err != nil {
		return fmt.Errorf("navigator unreachable: %w", err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("navigator not ready: status %d", res.StatusCode())
	}
	return nil
}
