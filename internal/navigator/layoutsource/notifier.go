package layoutsource

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync/atomic"

	"parking-navigator/internal/navigator/engine"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// LayoutUpdatedEvent событие, которое админ-панель рассылает после сохранения раскладки.
const LayoutUpdatedEvent = "layout_updated"

// Reloader то, что умеет перечитать раскладку (engine.Engine).
type Reloader interface {
	Reload(ctx context.Context, f engine.Fetcher) (engine.ReloadResult, error)
}

// ============================================================
// Socket.IO notifier
// ============================================================

// Notifier слушает socket.io и на каждое событие layout_updated запускает
// перезагрузку. Повторное подключение выполняет менеджер socket.io.
type Notifier struct {
	rawURL    string
	namespace string
	event     string
	reloader  Reloader
	fetcher   engine.Fetcher
}

func NewNotifier(rawURL string, reloader Reloader, fetcher engine.Fetcher) *Notifier {
	return &Notifier{
		rawURL:    rawURL,
		namespace: "/",
		event:     LayoutUpdatedEvent,
		reloader:  reloader,
		fetcher:   fetcher,
	}
}

// Trigger запускает перезагрузку. Каждая перезагрузка идёт в своей горутине,
// engine сам отменяет предыдущую и публикует только последнюю.
func (n *Notifier) Trigger(ctx context.Context) <-chan engine.ReloadResult {
	done := make(chan engine.ReloadResult, 1)
	go func() {
		res, err := n.reloader.Reload(ctx, n.fetcher)
		if err != nil {
			log.Printf("[LAYOUT] Reload after notification failed: %v", err)
		} else {
			log.Printf("[LAYOUT] Reload after notification: %s", res.Status)
		}
		done <- res
	}()
	return done
}

// onConnect после переподключения могли пропустить событие, перечитываем.
func (n *Notifier) onConnect(ctx context.Context, connected *atomic.Bool) <-chan engine.ReloadResult {
	if connected.Swap(true) {
		return n.Trigger(ctx)
	}
	return nil
}

// Run подключается к серверу и обрабатывает события до отмены ctx.
func (n *Notifier) Run(ctx context.Context) error {
	parsed, err := url.Parse(n.rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse socket URL: %w", err)
	}

	opts := socket.DefaultOptions()
	if parsed.Path != "" && parsed.Path != "/" {
		opts.SetPath(parsed.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))
	opts.SetReconnection(true)

	baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(n.namespace, opts)

	var connected atomic.Bool
	io.On(types.EventName("connect"), func(...any) {
		log.Printf("[LAYOUT] Connected to %s (sid %s)", baseURL, io.Id())
		n.onConnect(ctx, &connected)
	})
	io.On(types.EventName("disconnect"), func(reason ...any) {
		log.Printf("[LAYOUT] Disconnected from %s: %v", baseURL, reason)
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		log.Printf("[LAYOUT] Connection error: %v", errs)
	})
	io.On(types.EventName(n.event), func(...any) {
		log.Printf("[LAYOUT] %s received", n.event)
		n.Trigger(ctx)
	})

	io.Connect()
	<-ctx.Done()
	io.Disconnect()
	return nil
}
