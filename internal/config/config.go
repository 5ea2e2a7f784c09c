// Package config loads the viewer configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Overlay defines one auxiliary overlay layer.
type Overlay struct {
	Name  string `yaml:"name"`
	Label string `yaml:"label"`
	File  string `yaml:"file"`
}

// Config is the viewer configuration. Zero values fall back to defaults in
// Load, so a partial file is fine.
type Config struct {
	// Manifest is the URL of the main collection's manifest. Relative paths
	// are resolved against the server's own /data/ mount by the caller.
	Manifest string `yaml:"manifest"`
	// Concurrency bounds each fetch wave.
	Concurrency int `yaml:"concurrency"`
	// Opacity is the startup fill opacity.
	Opacity float64 `yaml:"opacity"`
	// FitPadding is the padding factor for fit-to-bounds camera moves.
	FitPadding float64 `yaml:"fitPadding"`
	// DeselectResetsCamera controls whether an explicit deselection fits the
	// view back to the full collection bounds. Observed datasets disagree,
	// so it is configurable.
	DeselectResetsCamera *bool `yaml:"deselectResetsCamera"`
	// Overlays lists the auxiliary layers offered as toggles.
	Overlays []Overlay `yaml:"overlays"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	yes := true
	return Config{
		Manifest:             "/data/manifest.json",
		Concurrency:          5,
		Opacity:              0.7,
		FitPadding:           0.1,
		DeselectResetsCamera: &yes,
	}
}

// Load reads a YAML config file and fills unset fields with defaults. An
// empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if file.Manifest != "" {
		cfg.Manifest = file.Manifest
	}
	if file.Concurrency > 0 {
		cfg.Concurrency = file.Concurrency
	}
	if file.Opacity > 0 {
		cfg.Opacity = file.Opacity
	}
	if file.FitPadding > 0 {
		cfg.FitPadding = file.FitPadding
	}
	if file.DeselectResetsCamera != nil {
		cfg.DeselectResetsCamera = file.DeselectResetsCamera
	}
	cfg.Overlays = file.Overlays
	return cfg, nil
}

// OverlayNames returns the configured overlay names in order.
func (c Config) OverlayNames() []string {
	names := make([]string, len(c.Overlays))
	for i, o := range c.Overlays {
		names[i] = o.Name
	}
	return names
}
