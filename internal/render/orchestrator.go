package render

import (
	"log/slog"

	"github.com/joeblew999/plat-aquifer/internal/aquifer"
	"github.com/joeblew999/plat-aquifer/internal/style"
	"github.com/joeblew999/plat-aquifer/internal/view"
)

// Orchestrator drives the map engine from state snapshots. It owns no
// durable data beyond the set of overlay layers currently attached, which
// is a disposable cache it reconciles against the desired state.
type Orchestrator struct {
	engine MapEngine
	panel  Panel
	store  *aquifer.Store
	states *view.Store
	opts   Options
	log    *slog.Logger

	attached     map[string]bool // overlay layers currently on the map
	prevSelected string
	hovered      int // feature ID under the pointer, -1 when none
}

// New wires an orchestrator to the state container. Every future state
// change triggers a full reconcile pass.
func New(engine MapEngine, panel Panel, store *aquifer.Store, states *view.Store, opts Options, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	o := &Orchestrator{
		engine:   engine,
		panel:    panel,
		store:    store,
		states:   states,
		opts:     opts,
		log:      log,
		attached: make(map[string]bool),
		hovered:  -1,
	}
	states.Subscribe(o.apply)
	return o
}

// Render forces a reconcile pass against the current state. Called once
// after the initial data load; afterwards the subscription takes over.
func (o *Orchestrator) Render() {
	o.apply(o.states.Get())
}

// apply is the single reconcile step: restyle, raise, overlays, camera,
// panel. It runs to completion synchronously, so no state change can
// interleave mid-restyle.
func (o *Orchestrator) apply(s view.State) {
	o.restyleAll(s)

	// Raise after restyling, so the draw order survives the style pass.
	if s.SelectedGroup != "" {
		for _, f := range o.store.Group(s.SelectedGroup) {
			o.engine.BringToFront(f.ID)
		}
	}

	o.reconcileOverlays(s)
	o.applyCamera(s)
	o.prevSelected = s.SelectedGroup

	if o.panel != nil {
		o.panel.Refresh(s)
	}
}

func (o *Orchestrator) restyleAll(s view.State) {
	for _, f := range o.store.Features() {
		o.engine.SetFeatureStyle(f.ID, o.styleFor(f, s))
	}
}

// styleFor shields the restyle pass from a single feature's failure: a
// panic inside the resolver falls back to the unknown style.
func (o *Orchestrator) styleFor(f aquifer.Feature, s view.State) (r style.Record) {
	defer func() {
		if rec := recover(); rec != nil {
			o.log.Warn("style resolution failed", "feature", f.ID, "cause", rec)
			r = style.Unknown(s.Opacity)
		}
	}()
	return style.Resolve(f, s)
}

// reconcileOverlays adds or removes auxiliary layers so the attached set
// matches the desired flags. Both directions are no-ops when already in the
// desired state.
func (o *Orchestrator) reconcileOverlays(s view.State) {
	for name, visible := range s.Overlays {
		switch {
		case visible && !o.attached[name]:
			o.engine.AddLayer(name)
			o.attached[name] = true
		case !visible && o.attached[name]:
			o.engine.RemoveLayer(name)
			delete(o.attached, name)
		}
	}
}

// applyCamera executes a pending one-shot command, or derives a fit from a
// selection transition when no explicit command is queued.
func (o *Orchestrator) applyCamera(s view.State) {
	if s.Camera.Kind != view.CameraNone {
		o.executeCamera(s)
		o.states.ConsumeCamera()
		return
	}

	if s.SelectedGroup == o.prevSelected {
		return
	}
	if s.SelectedGroup != "" {
		if b, ok := o.store.GroupBounds(s.SelectedGroup); ok {
			o.engine.FitBounds(b, o.opts.FitPadding)
		}
		return
	}
	// Explicit deselection: the field transitioned from a defined group to
	// none. An unchanged field never reaches this branch.
	if o.opts.DeselectResetsCamera {
		o.engine.FitBounds(o.store.Bounds(), o.opts.FitPadding)
	}
}

func (o *Orchestrator) executeCamera(s view.State) {
	switch s.Camera.Kind {
	case view.CameraFlyTo:
		o.engine.FlyTo(s.Camera.Lat, s.Camera.Lon, s.Camera.Zoom)
	case view.CameraFitGroup:
		if b, ok := o.store.GroupBounds(s.SelectedGroup); ok {
			o.engine.FitBounds(b, o.opts.FitPadding)
		}
	case view.CameraFitAll:
		o.engine.FitBounds(o.store.Bounds(), o.opts.FitPadding)
	}
}

// ClickFeature handles a feature click: select its group and show its
// properties. Clicking the already-selected group never toggles the
// selection off, but still redisplays the info panel.
func (o *Orchestrator) ClickFeature(id int) {
	f, ok := o.store.Feature(id)
	if !ok {
		return
	}
	if o.panel != nil {
		o.panel.ShowFeatureInfo(f)
	}
	if f.Group == "" || f.Group == o.states.Get().SelectedGroup {
		return
	}
	o.states.Set(view.Partial{SelectedGroup: view.Ptr(f.Group)})
}

// Deselect clears the selection explicitly.
func (o *Orchestrator) Deselect() {
	o.states.Set(view.Partial{SelectedGroup: view.Ptr("")})
}

// HoverFeature applies the transient hover highlight. Hovering the selected
// group's features is visually a no-op.
func (o *Orchestrator) HoverFeature(id int) {
	f, ok := o.store.Feature(id)
	if !ok {
		return
	}
	s := o.states.Get()
	if f.Group != "" && f.Group == s.SelectedGroup {
		return
	}
	o.hovered = id
	r := o.styleFor(f, s)
	r.Weight = r.Weight + 1.5
	r.FillOpacity = min(r.FillOpacity+0.2, 1)
	o.engine.SetFeatureStyle(id, r)
}

// LeaveFeature restores a hovered feature by recomputing its style fresh
// from the current state; the pre-hover record is never remembered because
// state may have changed while hovering.
func (o *Orchestrator) LeaveFeature(id int) {
	if o.hovered != id {
		return
	}
	o.hovered = -1
	f, ok := o.store.Feature(id)
	if !ok {
		return
	}
	o.engine.SetFeatureStyle(id, o.styleFor(f, o.states.Get()))
}
