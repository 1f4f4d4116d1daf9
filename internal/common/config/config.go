package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string `yaml:"port"`
	Environment  string `yaml:"env"`
	ReadTimeout  int    `yaml:"read_timeout"`
	WriteTimeout int    `yaml:"write_timeout"`

	// Gateway
	NavigatorURL string   `yaml:"navigator_url"`
	CORSOrigins  []string `yaml:"cors_origins"`

	// Layout source
	LayoutURL    string `yaml:"layout_url"`
	SocketURL    string `yaml:"socket_url"`
	ParkingID    string `yaml:"parking_id"`
	FetchTimeout int    `yaml:"fetch_timeout"`
	DBPath       string `yaml:"db_path"`
	Migrations   string `yaml:"migrations"`

	// Graph / routing
	GraphStep         float64 `yaml:"graph_step"`
	GraphEpsilon      float64 `yaml:"graph_epsilon"`
	PathStrategy      string  `yaml:"path_strategy"`
	SelectionPolicy   string  `yaml:"selection_policy"`
	DistanceMetric    string  `yaml:"distance_metric"`
	SideAxis          string  `yaml:"side_axis"`
	Entrance          string  `yaml:"entrance"` // "x,y" в метрах участка
	PreferPriority    bool    `yaml:"prefer_priority"`
	MaxAttempts       int     `yaml:"max_attempts"`
	RecomputeInterval int     `yaml:"recompute_interval_ms"`
	StrictLayout      bool    `yaml:"strict_layout"`
}

func defaults() *Config {
	return &Config{
		Port:              "3000",
		Environment:       "development",
		ReadTimeout:       10,
		WriteTimeout:      10,
		NavigatorURL:      "http://localhost:3003",
		LayoutURL:         "http://localhost:3000/api/layout",
		FetchTimeout:      10,
		DBPath:            "data/navigator.db",
		Migrations:        "migrations/001_init_navigator.sql",
		GraphStep:         2.5,
		GraphEpsilon:      0.001,
		PathStrategy:      "astar",
		SelectionPolicy:   "nearest",
		DistanceMetric:    "euclidean",
		SideAxis:          "x",
		MaxAttempts:       5,
		RecomputeInterval: 500,
	}
}

// Load загружает конфигурацию: значения по умолчанию, затем YAML из CONFIG_FILE
// (если задан), затем переменные окружения.
func Load() *Config {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			log.Printf("[CONFIG] %v, using defaults", err)
		}
	}
	cfg.applyEnv()
	return cfg
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.Environment = getEnv("ENV", c.Environment)
	c.ReadTimeout = getEnvAsInt("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvAsInt("WRITE_TIMEOUT", c.WriteTimeout)

	c.NavigatorURL = getEnv("NAVIGATOR_URL", c.NavigatorURL)
	c.CORSOrigins = getEnvAsList("CORS_ORIGINS", c.CORSOrigins)

	c.LayoutURL = getEnv("LAYOUT_URL", c.LayoutURL)
	c.SocketURL = getEnv("SOCKET_URL", c.SocketURL)
	c.ParkingID = getEnv("PARKING_ID", c.ParkingID)
	c.FetchTimeout = getEnvAsInt("FETCH_TIMEOUT", c.FetchTimeout)
	c.DBPath = getEnv("NAVIGATOR_DB_PATH", c.DBPath)
	c.Migrations = getEnv("NAVIGATOR_MIGRATIONS", c.Migrations)

	c.GraphStep = getEnvAsFloat("GRAPH_STEP", c.GraphStep)
	c.GraphEpsilon = getEnvAsFloat("GRAPH_EPSILON", c.GraphEpsilon)
	c.PathStrategy = getEnv("PATH_STRATEGY", c.PathStrategy)
	c.SelectionPolicy = getEnv("SELECTION_POLICY", c.SelectionPolicy)
	c.DistanceMetric = getEnv("DISTANCE_METRIC", c.DistanceMetric)
	c.SideAxis = getEnv("SIDE_AXIS", c.SideAxis)
	c.Entrance = getEnv("ENTRANCE", c.Entrance)
	c.PreferPriority = getEnvAsBool("PREFER_PRIORITY", c.PreferPriority)
	c.MaxAttempts = getEnvAsInt("MAX_ATTEMPTS", c.MaxAttempts)
	c.RecomputeInterval = getEnvAsInt("RECOMPUTE_INTERVAL_MS", c.RecomputeInterval)
	c.StrictLayout = getEnvAsBool("STRICT_LAYOUT", c.StrictLayout)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvAsList значения через запятую.
func getEnvAsList(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
