package aquifer

import (
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Store holds the merged feature collection and its lookup indexes.
// It is written once by Load and read-only afterwards.
type Store struct {
	mu          sync.RWMutex
	features    []Feature
	groups      map[string][]int // group name -> feature IDs, encounter order
	groupNames  []string         // group names in encounter order
	keys        map[string]string // alternate key -> group name, first writer wins
	bounds      orb.Bound
	groupBounds map[string]orb.Bound
	loaded      bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		groups:      make(map[string][]int),
		keys:        make(map[string]string),
		groupBounds: make(map[string]orb.Bound),
	}
}

// Load merges the given collections in order, normalizes every feature and
// builds the group and key indexes. The merged count always equals the sum
// of the input collection counts. Load replaces any previous contents.
func (s *Store) Load(collections []*geojson.FeatureCollection) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.features = s.features[:0]
	s.groups = make(map[string][]int)
	s.groupNames = s.groupNames[:0]
	s.keys = make(map[string]string)
	s.groupBounds = make(map[string]orb.Bound)

	first := true
	for _, fc := range collections {
		if fc == nil {
			continue
		}
		for _, raw := range fc.Features {
			feat := Normalize(len(s.features), raw)
			s.features = append(s.features, feat)

			if feat.Geometry != nil {
				b := feat.Geometry.Bound()
				if first {
					s.bounds = b
					first = false
				} else {
					s.bounds = s.bounds.Union(b)
				}
			}

			if feat.Group != "" {
				if _, seen := s.groups[feat.Group]; !seen {
					s.groupNames = append(s.groupNames, feat.Group)
				}
				s.groups[feat.Group] = append(s.groups[feat.Group], feat.ID)
				if feat.Geometry != nil {
					gb, seen := s.groupBounds[feat.Group]
					if !seen {
						s.groupBounds[feat.Group] = feat.Geometry.Bound()
					} else {
						s.groupBounds[feat.Group] = gb.Union(feat.Geometry.Bound())
					}
				}
			}
			if feat.AltKey != "" {
				if _, taken := s.keys[feat.AltKey]; !taken {
					s.keys[feat.AltKey] = feat.Group
				}
			}
		}
	}

	s.loaded = true
	return len(s.features)
}

// Loaded reports whether Load has completed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Len returns the merged feature count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.features)
}

// Feature returns the feature with the given ID.
func (s *Store) Feature(id int) (Feature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 0 || id >= len(s.features) {
		return Feature{}, false
	}
	return s.features[id], true
}

// Features returns a copy of the merged collection in merge order.
func (s *Store) Features() []Feature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Feature, len(s.features))
	copy(out, s.features)
	return out
}

// Groups returns all group names in encounter order.
func (s *Store) Groups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.groupNames))
	copy(out, s.groupNames)
	return out
}

// Group returns the features of one group in encounter order.
func (s *Store) Group(name string) []Feature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, ok := s.groups[name]
	if !ok {
		return nil
	}
	out := make([]Feature, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.features[id])
	}
	return out
}

// HasGroup reports whether a group exists in the index.
func (s *Store) HasGroup(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.groups[name]
	return ok
}

// GroupOf resolves an alternate key to its group name.
func (s *Store) GroupOf(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group, ok := s.keys[key]
	return group, ok
}

// Bounds returns the bounding box of the full merged collection.
func (s *Store) Bounds() orb.Bound {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bounds
}

// GroupBounds returns the bounding box of one group's features.
func (s *Store) GroupBounds(name string) (orb.Bound, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.groupBounds[name]
	return b, ok
}

// LevelCounts returns a histogram of vulnerability levels across the
// collection, keyed by level (LevelUnknown included).
func (s *Store) LevelCounts() map[int]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[int]int)
	for _, f := range s.features {
		counts[f.Level]++
	}
	return counts
}
