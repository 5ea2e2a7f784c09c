// Package panel contains the Datastar SSE handlers for the viewer's side
// panel, plus the bus bridge that carries render commands to the browser.
package panel

import (
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-aquifer/internal/aquifer"
	"github.com/joeblew999/plat-aquifer/internal/service"
	"github.com/joeblew999/plat-aquifer/internal/style"
	"github.com/joeblew999/plat-aquifer/internal/view"
)

// BusEngine implements the map engine contract by publishing commands on
// the event bus; the panel event stream relays them to the browser map.
type BusEngine struct {
	bus *service.EventBus
}

// NewBusEngine creates the bus-backed engine.
func NewBusEngine(bus *service.EventBus) *BusEngine {
	return &BusEngine{bus: bus}
}

func (e *BusEngine) publish(cmd service.MapCommand) {
	e.bus.Publish(service.Event{Kind: "map", Map: cmd})
}

func (e *BusEngine) AddLayer(name string) {
	e.publish(service.MapCommand{Op: "addLayer", Layer: name})
}

func (e *BusEngine) RemoveLayer(name string) {
	e.publish(service.MapCommand{Op: "removeLayer", Layer: name})
}

func (e *BusEngine) SetFeatureStyle(id int, r style.Record) {
	e.publish(service.MapCommand{Op: "style", FeatureID: id, Style: r})
}

func (e *BusEngine) BringToFront(id int) {
	e.publish(service.MapCommand{Op: "front", FeatureID: id})
}

func (e *BusEngine) FitBounds(b orb.Bound, padding float64) {
	e.publish(service.MapCommand{
		Op:      "fit",
		Bounds:  [4]float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()},
		Padding: padding,
	})
}

func (e *BusEngine) FlyTo(lat, lon, zoom float64) {
	e.publish(service.MapCommand{Op: "fly", Lat: lat, Lon: lon, Zoom: zoom})
}

// BusPanel implements the panel contract: state refreshes and info-panel
// requests become bus events consumed by the SSE stream.
type BusPanel struct {
	bus *service.EventBus
}

// NewBusPanel creates the bus-backed panel.
func NewBusPanel(bus *service.EventBus) *BusPanel {
	return &BusPanel{bus: bus}
}

func (p *BusPanel) Refresh(s view.State) {
	p.bus.Publish(service.Event{Kind: "state", State: s})
}

func (p *BusPanel) ShowFeatureInfo(f aquifer.Feature) {
	p.bus.Publish(service.Event{Kind: "info", FeatureID: f.ID})
}
