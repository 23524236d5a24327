package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// maxGridSize caps an axis at three-letter column labels (A..ZZZ).
const maxGridSize = 18278

// Validate checks a fully defaulted configuration.
func Validate(cfg *Config) error {
	if err := validateVersion(cfg); err != nil {
		return err
	}
	if err := validateGrid(cfg); err != nil {
		return err
	}
	if err := validateDatabase(cfg); err != nil {
		return err
	}
	if err := validateWatch(cfg); err != nil {
		return err
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateGrid(cfg *Config) error {
	if cfg.Grid.Extent < 0 {
		return fmt.Errorf("grid.extent must be >= 0, got %d", cfg.Grid.Extent)
	}
	min, max := cfg.Grid.Bounds()
	if min > max {
		return fmt.Errorf("grid.min (%d) must not exceed grid.max (%d)", min, max)
	}
	if min > 0 || max < 0 {
		return fmt.Errorf("grid bounds [%d, %d] must contain the origin", min, max)
	}
	if max-min+1 > maxGridSize {
		return fmt.Errorf("grid spans %d cells per axis; the limit is %d", max-min+1, maxGridSize)
	}
	if strings.ContainsAny(cfg.Grid.ErrorToken, "\n\r") {
		return fmt.Errorf("grid.error_token must be a single line")
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	driver := strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	if driver != "sqlite" {
		return fmt.Errorf("db.driver must be sqlite, got %q", cfg.DB.Driver)
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	for _, pattern := range append(append([]string(nil), cfg.Watch.Include...), cfg.Watch.Exclude...) {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("invalid watch pattern %q: %w", pattern, err)
		}
	}
	return nil
}
