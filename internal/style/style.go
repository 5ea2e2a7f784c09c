// Package style computes the visual style of an aquifer feature from the
// current view state. Resolve is a pure function: no lookups outside its
// arguments, identical output for identical input.
package style

import (
	"github.com/joeblew999/plat-aquifer/internal/aquifer"
	"github.com/joeblew999/plat-aquifer/internal/view"
)

// Record is the resolved per-feature style handed to the map engine.
type Record struct {
	Stroke      string  `json:"stroke" doc:"Stroke color (CSS)"`
	Weight      float64 `json:"weight" doc:"Stroke width"`
	Fill        string  `json:"fill" doc:"Fill color (CSS)"`
	FillOpacity float64 `json:"fillOpacity" doc:"Fill opacity 0-1"`
	Dashed      bool    `json:"dashed,omitempty" doc:"Dashed stroke"`
}

// Level ramp, green to red. Index 0 is the unknown-level neutral.
var levelColors = [...]string{
	aquifer.LevelUnknown: "#9e9e9e",
	1:                    "#2e7d32",
	2:                    "#8bc34a",
	3:                    "#fdd835",
	4:                    "#fb8c00",
	5:                    "#d32f2f",
}

// Fixed pieces of the resolution rules.
const (
	baseStroke     = "#455a64"
	baseWeight     = 1.0
	mutedFill      = "#cfd8dc"
	mutedStroke    = "#b0bec5"
	mutedOpacity   = 0.15 // independent of the global opacity slider
	selectedStroke = "#01579b"
	selectedWeight = 3.0
	selectedOpacity = 0.9
)

// LevelColor returns the ramp color for a vulnerability level. Out-of-range
// levels get the unknown neutral.
func LevelColor(level int) string {
	if level < aquifer.LevelMin || level > aquifer.LevelMax {
		return levelColors[aquifer.LevelUnknown]
	}
	return levelColors[level]
}

// Unknown is the fallback style used when resolving a feature fails.
func Unknown(opacity float64) Record {
	return Record{
		Stroke:      baseStroke,
		Weight:      baseWeight,
		Fill:        levelColors[aquifer.LevelUnknown],
		FillOpacity: opacity,
	}
}

// Resolve maps a feature and a state snapshot to its style. Precedence:
// base (level color, global opacity), then the muted override when the
// active filter excludes the feature, then the selected override, which
// always beats muted. A selected feature is never muted.
func Resolve(f aquifer.Feature, s view.State) Record {
	r := Record{
		Stroke:      baseStroke,
		Weight:      baseWeight,
		Fill:        LevelColor(f.Level),
		FillOpacity: s.Opacity,
	}

	if excludedByFilter(f, s) {
		r.Fill = mutedFill
		r.Stroke = mutedStroke
		r.FillOpacity = mutedOpacity
		r.Dashed = true
	}

	if f.Group != "" && f.Group == s.SelectedGroup {
		r.Stroke = selectedStroke
		r.Weight = selectedWeight
		r.Fill = LevelColor(f.Level)
		r.FillOpacity = selectedOpacity
		r.Dashed = false
	}

	return r
}

func excludedByFilter(f aquifer.Feature, s view.State) bool {
	if s.FilterLevel == "" || s.FilterLevel == view.FilterAll {
		return false
	}
	return levelString(f.Level) != s.FilterLevel
}

func levelString(level int) string {
	switch level {
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	case 4:
		return "4"
	case 5:
		return "5"
	default:
		return ""
	}
}

// Legend describes one entry of the level legend.
type Legend struct {
	Level int    `json:"level" doc:"Vulnerability level, 0 = unknown"`
	Label string `json:"label" doc:"Display label"`
	Color string `json:"color" doc:"Fill color (CSS)"`
}

// LegendEntries returns the fixed legend, levels 1-5 then unknown.
func LegendEntries() []Legend {
	labels := map[int]string{
		1: "Very low", 2: "Low", 3: "Medium", 4: "High", 5: "Very high",
		aquifer.LevelUnknown: "Unknown",
	}
	entries := make([]Legend, 0, 6)
	for lvl := aquifer.LevelMin; lvl <= aquifer.LevelMax; lvl++ {
		entries = append(entries, Legend{Level: lvl, Label: labels[lvl], Color: levelColors[lvl]})
	}
	entries = append(entries, Legend{Level: aquifer.LevelUnknown, Label: labels[aquifer.LevelUnknown], Color: levelColors[aquifer.LevelUnknown]})
	return entries
}
