package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: GRIDNOTE_[SECTION]_[KEY] (e.g., GRIDNOTE_GRID_ERROR_TOKEN).
func ApplyEnvOverrides(cfg *Config) {
	// Paths
	setEnvString(&cfg.Paths.ProjectRoot, "GRIDNOTE_PATHS_PROJECT_ROOT")
	setEnvString(&cfg.Paths.StateDir, "GRIDNOTE_PATHS_STATE_DIR")
	setEnvString(&cfg.Paths.DatabaseDir, "GRIDNOTE_PATHS_DATABASE_DIR")

	// Grid
	setEnvInt(&cfg.Grid.Extent, "GRIDNOTE_GRID_EXTENT")
	setEnvString(&cfg.Grid.ErrorToken, "GRIDNOTE_GRID_ERROR_TOKEN")
	setEnvInt(&cfg.Grid.MaxDepth, "GRIDNOTE_GRID_MAX_DEPTH")

	// Formula
	setEnvInt(&cfg.Formula.ProgramCacheSize, "GRIDNOTE_FORMULA_PROGRAM_CACHE_SIZE")

	// Database
	setEnvBool(&cfg.DB.Enabled, "GRIDNOTE_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "GRIDNOTE_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "GRIDNOTE_DB_BUSY_TIMEOUT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "GRIDNOTE_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.ReloadRate, "GRIDNOTE_WATCH_RELOAD_RATE")
	setEnvInt(&cfg.Watch.ReloadBurst, "GRIDNOTE_WATCH_RELOAD_BURST")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddress, "GRIDNOTE_OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "GRIDNOTE_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.ServiceName, "GRIDNOTE_OBSERVABILITY_SERVICE_NAME")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
