// Package render reconciles the map engine's displayed layers with the view
// state. It is the only package allowed to call into the map engine and
// panel contracts; state transitions and style math live elsewhere.
package render

import (
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-aquifer/internal/aquifer"
	"github.com/joeblew999/plat-aquifer/internal/style"
	"github.com/joeblew999/plat-aquifer/internal/view"
)

// MapEngine is the narrow contract the external mapping library exposes.
// Implementations live browser-side; the orchestrator only issues commands.
type MapEngine interface {
	AddLayer(name string)
	RemoveLayer(name string)
	SetFeatureStyle(id int, r style.Record)
	BringToFront(id int)
	FitBounds(b orb.Bound, padding float64)
	FlyTo(lat, lon, zoom float64)
}

// Panel is the contract of the excluded presentation layer: it receives
// state snapshots for display and feature property bags for the info box.
type Panel interface {
	Refresh(s view.State)
	ShowFeatureInfo(f aquifer.Feature)
}

// Options tunes orchestrator behavior.
type Options struct {
	// DeselectResetsCamera fits the view to the full collection bounds on an
	// explicit deselection. Source datasets disagree on this behavior, so it
	// is a knob rather than a constant.
	DeselectResetsCamera bool
	// FitPadding is the padding factor passed to FitBounds.
	FitPadding float64
}

// DefaultOptions match the shipped viewer configuration.
func DefaultOptions() Options {
	return Options{DeselectResetsCamera: true, FitPadding: 0.1}
}
