package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Concurrency != 5 || cfg.Opacity != 0.7 {
		t.Fatalf("defaults=%+v", cfg)
	}
	if cfg.DeselectResetsCamera == nil || !*cfg.DeselectResetsCamera {
		t.Fatal("deselect camera default must be true")
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	body := `
manifest: https://data.example.com/aquifers/manifest.json
concurrency: 3
deselectResetsCamera: false
overlays:
  - name: boundaries
    label: State boundaries
    file: overlays/boundaries.geojson
  - name: wells
    label: Monitoring wells
    file: overlays/wells.geojson
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Manifest != "https://data.example.com/aquifers/manifest.json" {
		t.Fatalf("manifest=%q", cfg.Manifest)
	}
	if cfg.Concurrency != 3 {
		t.Fatalf("concurrency=%d", cfg.Concurrency)
	}
	if cfg.Opacity != 0.7 {
		t.Fatalf("unset opacity changed: %v", cfg.Opacity)
	}
	if cfg.DeselectResetsCamera == nil || *cfg.DeselectResetsCamera {
		t.Fatal("deselectResetsCamera=false not honored")
	}
	if names := cfg.OverlayNames(); len(names) != 2 || names[0] != "boundaries" || names[1] != "wells" {
		t.Fatalf("overlay names=%v", names)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
