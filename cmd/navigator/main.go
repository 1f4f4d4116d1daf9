package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"parking-navigator/internal/common/config"
	"parking-navigator/internal/common/middleware"
	"parking-navigator/internal/navigator/engine"
	"parking-navigator/internal/navigator/graph"
	"parking-navigator/internal/navigator/handlers"
	"parking-navigator/internal/navigator/layoutsource"
	"parking-navigator/internal/navigator/metrics"
	"parking-navigator/internal/navigator/models"
	"parking-navigator/internal/navigator/pathfinder"
	"parking-navigator/internal/navigator/repository"
	"parking-navigator/internal/navigator/selector"
	"parking-navigator/internal/navigator/session"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/recover"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ============================================================
// Navigator Service
// ============================================================

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ============================================================
	// Storage
	// ============================================================

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open sqlite: %v", err)
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(ctx, cfg.Migrations); err != nil {
		log.Fatalf("Failed to init repository: %v", err)
	}

	// ============================================================
	// Engine & Sessions
	// ============================================================

	reg := metrics.NewRegistry()
	eng := engine.New(engine.Config{
		Graph:  graph.Options{Step: cfg.GraphStep, Epsilon: cfg.GraphEpsilon},
		Strict: cfg.StrictLayout,
	}, engine.WithStore(repo), engine.WithObserver(reg))

	planner, err := buildPlanner(cfg)
	if err != nil {
		log.Fatalf("Invalid routing config: %v", err)
	}
	sessions := session.NewManager(eng, planner, session.Config{
		RecomputeInterval: time.Duration(cfg.RecomputeInterval) * time.Millisecond,
	}, session.WithObserver(reg))
	eng.Subscribe(sessions.OnSnapshot)

	// последняя удачная раскладка, пока хранилище не ответило
	if parkingID, layout, err := repo.LoadLatest(ctx, cfg.ParkingID); err == nil {
		if _, err := eng.Load(parkingID, layout); err != nil {
			log.Printf("[NAVIGATOR] Cached layout %s rejected: %v", parkingID, err)
		} else {
			log.Printf("[NAVIGATOR] Restored cached layout %s", parkingID)
		}
	} else if !errors.Is(err, repository.ErrNoSnapshot) {
		log.Printf("[NAVIGATOR] Failed to read cached layout: %v", err)
	}

	// ============================================================
	// Layout Source
	// ============================================================

	fetcher := layoutsource.NewFetcher(cfg.LayoutURL, cfg.ParkingID, time.Duration(cfg.FetchTimeout)*time.Second)
	defer fetcher.Close()

	if res, err := eng.Reload(ctx, fetcher); err != nil {
		log.Printf("[NAVIGATOR] Initial layout load failed: %v", err)
	} else {
		log.Printf("[NAVIGATOR] Initial layout load: %s", res.Status)
	}

	if cfg.SocketURL != "" {
		notifier := layoutsource.NewNotifier(cfg.SocketURL, eng, fetcher)
		go func() {
			if err := notifier.Run(ctx); err != nil {
				log.Printf("[LAYOUT] Notifier stopped: %v", err)
			}
		}()
	}

	if cfg.RecomputeInterval > 0 {
		go flushLoop(ctx, sessions, time.Duration(cfg.RecomputeInterval)*time.Millisecond)
	}

	// ============================================================
	// HTTP
	// ============================================================

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Parking Navigator",
	})

	app.Use(recover.New())
	app.Use(middleware.Logger("navigator"))
	app.Use(middleware.CORS(cfg.CORSOrigins))
	app.Use(middleware.Metrics(reg))

	handlers.NewHealthHandler(eng).Register(app)
	handlers.NewNavigatorHandler(eng, sessions, fetcher, repo).Register(app)
	app.Get("/metrics", adaptor.HTTPHandler(reg.Handler()))

	go func() {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			log.Printf("[NAVIGATOR] Shutdown error: %v", err)
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Parking Navigator on %s (env: %s)", addr, cfg.Environment)
	log.Printf("Layout source: %s (parking %q)", cfg.LayoutURL, cfg.ParkingID)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func buildPlanner(cfg *config.Config) (*session.Planner, error) {
	strategy, err := pathfinder.ParseStrategy(cfg.PathStrategy)
	if err != nil {
		return nil, err
	}
	policy, err := selector.ParsePolicy(cfg.SelectionPolicy)
	if err != nil {
		return nil, err
	}
	metric, err := selector.ParseMetric(cfg.DistanceMetric)
	if err != nil {
		return nil, err
	}
	axis, err := selector.ParseAxis(cfg.SideAxis)
	if err != nil {
		return nil, err
	}

	entrance, err := parseEntrance(cfg.Entrance)
	if err != nil {
		return nil, err
	}

	sel := selector.New(selector.Config{Policy: policy, Metric: metric, Axis: axis, Entrance: entrance})
	router := pathfinder.NewRouter(pathfinder.New(strategy), cfg.PreferPriority)
	return session.NewPlanner(sel, router, cfg.MaxAttempts), nil
}

// parseEntrance разбирает "x,y"; при пустой строке вход берётся из раскладки.
func parseEntrance(raw string) (*models.Point, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("entrance %q: want \"x,y\"", raw)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("entrance x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("entrance y: %w", err)
	}
	return &models.Point{X: x, Y: y}, nil
}

// flushLoop догоняет отложенные обновления позиций.
func flushLoop(ctx context.Context, sessions *session.Manager, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Flush()
		}
	}
}
