// Package aquifer defines the canonical feature model for aquifer polygons
// and the in-memory store assembled from loaded GeoJSON collections.
package aquifer

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Level bounds for the vulnerability classification. LevelUnknown marks a
// feature whose source data carried no usable level.
const (
	LevelUnknown = 0
	LevelMin     = 1
	LevelMax     = 5
)

// Feature is one aquifer polygon in canonical form. Source datasets disagree
// on property names, so ingestion maps aliases onto this fixed schema once;
// nothing downstream branches on raw property keys.
type Feature struct {
	ID         int                // index in the merged collection
	Group      string             // aquifer this polygon belongs to ("" = ungrouped)
	AltKey     string             // alternate lookup key (e.g. official register code)
	Level      int                // vulnerability 1-5, LevelUnknown if absent
	Name       string             // display name
	Geometry   orb.Geometry       // opaque to everything but bounds math
	Properties geojson.Properties // raw bag, kept for the info panel
}

// HasGroup reports whether the feature belongs to a named aquifer.
func (f Feature) HasGroup() bool { return f.Group != "" }

// Alias tables from observed source datasets (Spanish and English exports,
// mixed casing). Order matters: first present alias wins.
var (
	groupAliases = []string{"acuifero", "ACUIFERO", "Acuifero", "aquifer", "grupo", "group"}
	keyAliases   = []string{"clave", "CLAVE", "Clave", "key", "codigo", "code"}
	levelAliases = []string{"vulnerabilidad", "VULNERABILIDAD", "Vulnerabilidad", "vulnerability", "nivel", "level"}
	nameAliases  = []string{"nombre", "NOMBRE", "Nombre", "name", "NAME"}
)

// Normalize converts a raw GeoJSON feature into the canonical schema.
// Missing fields degrade to empty strings and LevelUnknown, never an error.
// A feature without a group is still rendered, just not indexed.
func Normalize(id int, f *geojson.Feature) Feature {
	feat := Feature{
		ID:         id,
		Geometry:   f.Geometry,
		Properties: f.Properties,
	}
	feat.Group = strings.TrimSpace(stringProp(f.Properties, groupAliases))
	feat.AltKey = strings.TrimSpace(stringProp(f.Properties, keyAliases))
	feat.Name = strings.TrimSpace(stringProp(f.Properties, nameAliases))
	if feat.Name == "" {
		feat.Name = feat.Group
	}
	feat.Level = levelProp(f.Properties, levelAliases)
	return feat
}

func stringProp(props geojson.Properties, aliases []string) string {
	for _, key := range aliases {
		v, ok := props[key]
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			return s
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64)
		}
	}
	return ""
}

// levelProp reads the vulnerability level, accepting numeric or string
// encodings. Anything outside 1-5 collapses to LevelUnknown.
func levelProp(props geojson.Properties, aliases []string) int {
	for _, key := range aliases {
		v, ok := props[key]
		if !ok {
			continue
		}
		var lvl int
		switch n := v.(type) {
		case float64:
			lvl = int(n)
		case int:
			lvl = n
		case string:
			parsed, err := strconv.Atoi(strings.TrimSpace(n))
			if err != nil {
				continue
			}
			lvl = parsed
		default:
			continue
		}
		if lvl >= LevelMin && lvl <= LevelMax {
			return lvl
		}
	}
	return LevelUnknown
}
