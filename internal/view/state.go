// Package view holds the canonical view state of the aquifer viewer and the
// observer-style container that owns it. Snapshots are immutable: every
// update produces a new State, never a mutation of a handed-out one.
package view

import "maps"

// FilterAll disables level filtering.
const FilterAll = "all"

// CameraKind discriminates the one-shot camera commands.
type CameraKind int

const (
	CameraNone CameraKind = iota
	CameraFlyTo
	CameraFitGroup // fit the selected group's bounds
	CameraFitAll   // fit the full collection's bounds
)

// Camera is a one-shot command embedded in the state. The render step
// executes it and then clears it, so it never replays on unrelated updates.
type Camera struct {
	Kind     CameraKind
	Lat, Lon float64
	Zoom     float64
	Label    string
}

// State is one immutable snapshot of the view parameters.
type State struct {
	Opacity       float64         // global fill opacity, 0-1
	FilterLevel   string          // FilterAll or "1".."5"
	SelectedGroup string          // "" = no selection
	Overlays      map[string]bool // auxiliary layer visibility by name
	Camera        Camera
	Version       uint64
}

// Default returns the startup state. Overlay flags start false for every
// known overlay name.
func Default(overlayNames []string) State {
	overlays := make(map[string]bool, len(overlayNames))
	for _, name := range overlayNames {
		overlays[name] = false
	}
	return State{
		Opacity:     0.7,
		FilterLevel: FilterAll,
		Overlays:    overlays,
	}
}

// clone deep-copies the snapshot so subscribers holding an old one are
// isolated from later updates.
func (s State) clone() State {
	out := s
	out.Overlays = maps.Clone(s.Overlays)
	return out
}

// equal compares everything but the version counter.
func (s State) equal(o State) bool {
	return s.Opacity == o.Opacity &&
		s.FilterLevel == o.FilterLevel &&
		s.SelectedGroup == o.SelectedGroup &&
		s.Camera == o.Camera &&
		maps.Equal(s.Overlays, o.Overlays)
}

// Partial is a shallow-merge update. Nil fields are untouched; a non-nil
// SelectedGroup pointing at "" is an explicit deselection, which is a
// different signal from leaving the field nil.
type Partial struct {
	Opacity       *float64
	FilterLevel   *string
	SelectedGroup *string
	Overlays      map[string]bool // merged per key
	Camera        *Camera
	Reset         bool // short-circuit back to the initial defaults
}
