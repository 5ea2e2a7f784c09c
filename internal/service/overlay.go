package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OverlayService manages the configured auxiliary overlay files.
type OverlayService struct {
	dataDir string
	defs    []OverlayDef
}

// NewOverlayService creates an overlay service for the given definitions.
func NewOverlayService(dataDir string, defs []OverlayDef) *OverlayService {
	return &OverlayService{dataDir: dataDir, defs: defs}
}

// List returns every configured overlay with its availability. A missing
// data file marks the overlay unavailable instead of erroring.
func (s *OverlayService) List() []OverlayFile {
	out := make([]OverlayFile, 0, len(s.defs))
	for _, def := range s.defs {
		file := OverlayFile{Name: def.Name, Label: def.Label, File: def.File}
		if info, err := os.Stat(filepath.Join(s.dataDir, def.File)); err == nil && !info.IsDir() {
			file.Available = true
			file.Size = formatSize(info.Size())
		}
		out = append(out, file)
	}
	return out
}

// Names returns the configured overlay names in order.
func (s *OverlayService) Names() []string {
	names := make([]string, len(s.defs))
	for i, def := range s.defs {
		names[i] = def.Name
	}
	return names
}

// Path resolves an overlay name to its data file path. It rejects names
// that are not configured and files escaping the data directory.
func (s *OverlayService) Path(name string) (string, bool) {
	for _, def := range s.defs {
		if def.Name != name {
			continue
		}
		if strings.Contains(def.File, "..") {
			return "", false
		}
		return filepath.Join(s.dataDir, def.File), true
	}
	return "", false
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
