package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	normalizeWatch(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = "data/state"
	}
	if strings.TrimSpace(cfg.Paths.DatabaseDir) == "" {
		cfg.Paths.DatabaseDir = "data/database"
	}

	if cfg.Grid.Extent == 0 && cfg.Grid.Min == nil && cfg.Grid.Max == nil {
		cfg.Grid.Extent = DefaultExtent
	}
	if strings.TrimSpace(cfg.Grid.ErrorToken) == "" {
		cfg.Grid.ErrorToken = DefaultErrorToken
	}
	if cfg.Grid.MaxDepth <= 0 {
		cfg.Grid.MaxDepth = DefaultMaxDepth
	}

	if cfg.Formula.ProgramCacheSize <= 0 {
		cfg.Formula.ProgramCacheSize = DefaultProgramCacheSize
	}

	if strings.TrimSpace(cfg.DB.Driver) == "" {
		cfg.DB.Driver = "sqlite"
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "gridnote.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if len(cfg.Watch.Paths) == 0 {
		cfg.Watch.Paths = []string{"."}
	}
	if len(cfg.Watch.Include) == 0 {
		cfg.Watch.Include = []string{DefaultDocumentPattern}
	}
	if cfg.Watch.ReloadRate <= 0 {
		cfg.Watch.ReloadRate = 2
	}
	if cfg.Watch.ReloadBurst <= 0 {
		cfg.Watch.ReloadBurst = 4
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "gridnote"
	}
}

func normalizeWatch(cfg *Config) {
	cfg.Watch.Paths = trimAll(cfg.Watch.Paths)
	cfg.Watch.Include = trimAll(cfg.Watch.Include)
	cfg.Watch.Exclude = trimAll(cfg.Watch.Exclude)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
