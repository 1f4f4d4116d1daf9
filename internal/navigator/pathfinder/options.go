package pathfinder

import (
	"fmt"
	"strings"
)

// Strategy алгоритм поиска пути.
type Strategy string

const (
	StrategyAStar Strategy = "astar"
	StrategyBFS   Strategy = "bfs"
)

// ParseStrategy разбирает значение PATH_STRATEGY. Пустая строка даёт A*.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyAStar:
		return StrategyAStar, nil
	case StrategyBFS:
		return StrategyBFS, nil
	}
	return "", fmt.Errorf("unknown path strategy %q", s)
}

// Option настраивает поиск.
type Option func(*Options)

type Options struct {
	// UniformCost: каждое ребро стоит 1, эвристика dist/(step+epsilon). Только для A*.
	UniformCost bool

	// OnExpand вызывается при раскрытии узла. key: f = g+h для A*
	// и число рёбер от старта для BFS.
	OnExpand func(node int, key float64)
}

func defaultOptions() Options {
	return Options{
		OnExpand: func(int, float64) {},
	}
}

func WithUniformCost() Option {
	return func(o *Options) {
		o.UniformCost = true
	}
}

func WithOnExpand(fn func(node int, key float64)) Option {
	return func(o *Options) {
		if fn != nil {
			o.OnExpand = fn
		}
	}
}

func buildOptions(opts []Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
