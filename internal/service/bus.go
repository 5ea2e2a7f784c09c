package service

import (
	"sync"

	"github.com/joeblew999/plat-aquifer/internal/style"
	"github.com/joeblew999/plat-aquifer/internal/view"
)

// MapCommand is one instruction for the browser-side map engine, produced
// by the render orchestrator and delivered over the panel SSE stream.
type MapCommand struct {
	Op        string       `json:"op"` // style, front, addLayer, removeLayer, fit, fly
	FeatureID int          `json:"featureId,omitempty"`
	Layer     string       `json:"layer,omitempty"`
	Style     style.Record `json:"style,omitzero"`
	Bounds    [4]float64   `json:"bounds,omitempty"`
	Padding   float64      `json:"padding,omitempty"`
	Lat       float64      `json:"lat,omitempty"`
	Lon       float64      `json:"lon,omitempty"`
	Zoom      float64      `json:"zoom,omitempty"`
}

// Event is a viewer event fanned out to SSE subscribers: a new state
// snapshot, a notice, a map command, or a feature-info request.
type Event struct {
	Kind      string // "state", "notice", "map" or "info"
	State     view.State
	Notice    Notice
	Map       MapCommand
	FeatureID int
}

// EventBus is a simple fan-out pub/sub for viewer events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers (non-blocking).
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}
