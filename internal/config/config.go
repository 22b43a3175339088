package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/closset/vectorcore/internal/editor"
)

type Config struct {
	Port               int    `envconfig:"PORT" default:"8080"`
	JWTSecret          string `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	AllowedOrigins     string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	LogLevel           string `envconfig:"LOG_LEVEL" default:"info"`
	PlaygroundDocument string `envconfig:"PLAYGROUND_DOCUMENT" default:"doc_playground"`

	SnapTolerance    float64 `envconfig:"SNAP_TOLERANCE" default:"5"`
	SnapGridSize     float64 `envconfig:"SNAP_GRID_SIZE" default:"20"`
	HitTolerance     float64 `envconfig:"HIT_TOLERANCE" default:"5"`
	HistoryMaxSize   int     `envconfig:"HISTORY_MAX_SIZE" default:"100"`
	HistoryMaxMemory int     `envconfig:"HISTORY_MAX_MEMORY" default:"52428800"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SnapGridSize <= 0 {
		return nil, fmt.Errorf("SNAP_GRID_SIZE must be positive, got %v", cfg.SnapGridSize)
	}
	if cfg.HistoryMaxSize <= 0 {
		return nil, fmt.Errorf("HISTORY_MAX_SIZE must be positive, got %d", cfg.HistoryMaxSize)
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// EditorOptions returns session options with the configured tolerances and
// history limits applied over the defaults.
func (c *Config) EditorOptions(logger *slog.Logger) editor.Options {
	opts := editor.DefaultOptions()
	opts.Logger = logger
	opts.Snap.Tolerance = c.SnapTolerance
	opts.Snap.GridSize = c.SnapGridSize
	opts.Hit.Tolerance = c.HitTolerance
	opts.History.MaxSize = c.HistoryMaxSize
	opts.History.MaxMemory = c.HistoryMaxMemory
	return opts
}
