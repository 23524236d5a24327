package config

import "time"

const (
	DefaultExtent           = 12
	DefaultErrorToken       = "#ERROR"
	DefaultMaxDepth         = 4096
	DefaultProgramCacheSize = 512
	DefaultDocumentPattern  = "*.grid.toml"
)

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	Grid          Grid          `toml:"grid"`
	Formula       Formula       `toml:"formula"`
	DB            Database      `toml:"db"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
	StateDir    string `toml:"state_dir"`
	DatabaseDir string `toml:"database_dir"`
}

// Grid bounds are inclusive on both axes. Extent is shorthand for
// [-extent, extent] and is ignored when Min or Max is set.
type Grid struct {
	Extent     int    `toml:"extent"`
	Min        *int   `toml:"min"`
	Max        *int   `toml:"max"`
	ErrorToken string `toml:"error_token"`
	MaxDepth   int    `toml:"max_depth"`
}

type Formula struct {
	ProgramCacheSize int `toml:"program_cache_size"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Driver      string        `toml:"driver"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Watch struct {
	Debounce    time.Duration `toml:"debounce"`
	Paths       []string      `toml:"paths"`
	Include     []string      `toml:"include"`
	Exclude     []string      `toml:"exclude"`
	ReloadRate  float64       `toml:"reload_rate"`
	ReloadBurst int           `toml:"reload_burst"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
	ServiceName    string `toml:"service_name"`
}

// DefaultConfig is the configuration used when no file is found.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Bounds returns the resolved inclusive grid range.
func (g Grid) Bounds() (min, max int) {
	if g.Min != nil || g.Max != nil {
		min, max = -g.Extent, g.Extent
		if g.Min != nil {
			min = *g.Min
		}
		if g.Max != nil {
			max = *g.Max
		}
		return min, max
	}
	return -g.Extent, g.Extent
}
