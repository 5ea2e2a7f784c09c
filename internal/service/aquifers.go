package service

import (
	"strconv"

	"github.com/joeblew999/plat-aquifer/internal/aquifer"
)

// AquiferService exposes the loaded feature store as aquifer summaries.
type AquiferService struct {
	store *aquifer.Store
}

// NewAquiferService creates an aquifer service over a store.
func NewAquiferService(store *aquifer.Store) *AquiferService {
	return &AquiferService{store: store}
}

// List returns all aquifers in encounter order.
func (s *AquiferService) List() []AquiferSummary {
	names := s.store.Groups()
	out := make([]AquiferSummary, 0, len(names))
	for _, name := range names {
		if summary, ok := s.Get(name); ok {
			out = append(out, summary)
		}
	}
	return out
}

// Names returns all aquifer names in encounter order.
func (s *AquiferService) Names() []string {
	return s.store.Groups()
}

// Get returns one aquifer's summary by group name.
func (s *AquiferService) Get(name string) (AquiferSummary, bool) {
	features := s.store.Group(name)
	if features == nil {
		return AquiferSummary{}, false
	}

	summary := AquiferSummary{
		Name:         name,
		FeatureCount: len(features),
		Levels:       make(map[string]int),
	}
	seenKeys := make(map[string]bool)
	for _, f := range features {
		summary.Levels[levelKey(f.Level)]++
		if f.AltKey != "" && !seenKeys[f.AltKey] {
			seenKeys[f.AltKey] = true
			summary.Keys = append(summary.Keys, f.AltKey)
		}
	}
	if b, ok := s.store.GroupBounds(name); ok {
		summary.Bounds = [4]float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}
	}
	return summary, true
}

// Resolve maps a query to a group name: an exact group name wins, otherwise
// the alternate-key index is consulted.
func (s *AquiferService) Resolve(q string) (string, bool) {
	if s.store.HasGroup(q) {
		return q, true
	}
	if group, ok := s.store.GroupOf(q); ok && group != "" {
		return group, true
	}
	return "", false
}

// Loaded reports whether the underlying store finished its initial load.
func (s *AquiferService) Loaded() bool { return s.store.Loaded() }

// FeatureCount returns the merged collection size.
func (s *AquiferService) FeatureCount() int { return s.store.Len() }

func levelKey(level int) string {
	if level == aquifer.LevelUnknown {
		return "unknown"
	}
	return strconv.Itoa(level)
}
