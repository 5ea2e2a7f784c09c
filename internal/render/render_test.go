package render

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-aquifer/internal/aquifer"
	"github.com/joeblew999/plat-aquifer/internal/style"
	"github.com/joeblew999/plat-aquifer/internal/view"
)

type call struct {
	op   string // "style", "front", "add", "remove", "fit", "fly"
	id   int
	name string
}

type fakeEngine struct {
	calls  []call
	styles map[int]style.Record
	fits   []orb.Bound
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{styles: make(map[int]style.Record)}
}

func (e *fakeEngine) AddLayer(name string)    { e.calls = append(e.calls, call{op: "add", name: name}) }
func (e *fakeEngine) RemoveLayer(name string) { e.calls = append(e.calls, call{op: "remove", name: name}) }
func (e *fakeEngine) SetFeatureStyle(id int, r style.Record) {
	e.calls = append(e.calls, call{op: "style", id: id})
	e.styles[id] = r
}
func (e *fakeEngine) BringToFront(id int) { e.calls = append(e.calls, call{op: "front", id: id}) }
func (e *fakeEngine) FitBounds(b orb.Bound, padding float64) {
	e.calls = append(e.calls, call{op: "fit"})
	e.fits = append(e.fits, b)
}
func (e *fakeEngine) FlyTo(lat, lon, zoom float64) { e.calls = append(e.calls, call{op: "fly"}) }

func (e *fakeEngine) count(op string) int {
	n := 0
	for _, c := range e.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

type fakePanel struct {
	refreshes []view.State
	infos     []aquifer.Feature
}

func (p *fakePanel) Refresh(s view.State)              { p.refreshes = append(p.refreshes, s) }
func (p *fakePanel) ShowFeatureInfo(f aquifer.Feature) { p.infos = append(p.infos, f) }

func testFeature(group string, level int, x, y float64) *geojson.Feature {
	f := geojson.NewFeature(orb.Polygon{{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}})
	f.Properties = map[string]interface{}{"acuifero": group, "vulnerabilidad": float64(level)}
	return f
}

// testStore has group A (IDs 0, 2), group B (ID 1) and one ungrouped
// feature (ID 3).
func testStore() *aquifer.Store {
	fc := geojson.NewFeatureCollection()
	fc.Append(testFeature("A", 2, 0, 0))
	fc.Append(testFeature("B", 4, 4, 4))
	fc.Append(testFeature("A", 3, 8, 8))
	fc.Append(testFeature("", 1, 12, 12))
	s := aquifer.NewStore()
	s.Load([]*geojson.FeatureCollection{fc})
	return s
}

func setup(opts Options) (*fakeEngine, *fakePanel, *aquifer.Store, *view.Store, *Orchestrator) {
	engine := newFakeEngine()
	panel := &fakePanel{}
	store := testStore()
	states := view.NewStore(view.Default([]string{"boundaries", "wells"}))
	o := New(engine, panel, store, states, opts, nil)
	return engine, panel, store, states, o
}

func TestEveryFeatureRestyledOnStateChange(t *testing.T) {
	engine, panel, store, states, _ := setup(DefaultOptions())

	states.Set(view.Partial{Opacity: view.Ptr(0.4)})
	if got := engine.count("style"); got != store.Len() {
		t.Fatalf("styled %d features, want %d", got, store.Len())
	}
	if len(panel.refreshes) != 1 {
		t.Fatalf("panel refreshes=%d, want 1", len(panel.refreshes))
	}
}

func TestSelectedGroupRaisedAfterRestyle(t *testing.T) {
	engine, _, _, states, _ := setup(DefaultOptions())

	states.Set(view.Partial{SelectedGroup: view.Ptr("A")})

	lastStyle, firstFront := -1, -1
	var fronted []int
	for i, c := range engine.calls {
		switch c.op {
		case "style":
			lastStyle = i
		case "front":
			if firstFront == -1 {
				firstFront = i
			}
			fronted = append(fronted, c.id)
		}
	}
	if firstFront == -1 {
		t.Fatal("no BringToFront calls")
	}
	if firstFront < lastStyle {
		t.Fatal("raise happened before the restyle pass finished")
	}
	if len(fronted) != 2 || fronted[0] != 0 || fronted[1] != 2 {
		t.Fatalf("raised IDs=%v, want [0 2]", fronted)
	}
}

func TestOverlayReconcileIdempotent(t *testing.T) {
	engine, _, _, states, _ := setup(DefaultOptions())

	states.Set(view.Partial{Overlays: map[string]bool{"boundaries": true}})
	// Same flag again plus an unrelated change: no second AddLayer.
	states.Set(view.Partial{Overlays: map[string]bool{"boundaries": true}, Opacity: view.Ptr(0.2)})
	if got := engine.count("add"); got != 1 {
		t.Fatalf("AddLayer calls=%d, want 1", got)
	}

	states.Set(view.Partial{Overlays: map[string]bool{"boundaries": false}})
	states.Set(view.Partial{Overlays: map[string]bool{"boundaries": false}, Opacity: view.Ptr(0.3)})
	if got := engine.count("remove"); got != 1 {
		t.Fatalf("RemoveLayer calls=%d, want 1", got)
	}

	// Removing a never-attached layer is a no-op.
	states.Set(view.Partial{Overlays: map[string]bool{"wells": false}, Opacity: view.Ptr(0.4)})
	if got := engine.count("remove"); got != 1 {
		t.Fatalf("RemoveLayer calls=%d after absent removal, want 1", got)
	}
}

func TestFlyToConsumedOnce(t *testing.T) {
	engine, _, _, states, _ := setup(DefaultOptions())

	states.Set(view.Partial{Camera: &view.Camera{Kind: view.CameraFlyTo, Lat: 20, Lon: -100, Zoom: 8}})
	if got := engine.count("fly"); got != 1 {
		t.Fatalf("FlyTo calls=%d, want 1", got)
	}

	// Unrelated updates must not replay the consumed command.
	states.Set(view.Partial{Opacity: view.Ptr(0.5)})
	states.Set(view.Partial{FilterLevel: view.Ptr("3")})
	if got := engine.count("fly"); got != 1 {
		t.Fatalf("FlyTo replayed: calls=%d, want 1", got)
	}
}

func TestSelectionCameraSequence(t *testing.T) {
	engine, _, store, states, o := setup(DefaultOptions())

	states.Set(view.Partial{SelectedGroup: view.Ptr("A")})
	states.Set(view.Partial{SelectedGroup: view.Ptr("B")})
	o.Deselect()

	if got := states.Get().SelectedGroup; got != "" {
		t.Fatalf("final selection=%q, want none", got)
	}
	if len(engine.fits) != 3 {
		t.Fatalf("FitBounds calls=%d, want 3", len(engine.fits))
	}
	wantA, _ := store.GroupBounds("A")
	wantB, _ := store.GroupBounds("B")
	if engine.fits[0] != wantA || engine.fits[1] != wantB {
		t.Fatalf("group fits=%v, want %v then %v", engine.fits[:2], wantA, wantB)
	}
	if engine.fits[2] != store.Bounds() {
		t.Fatalf("final fit=%v, want full bounds %v", engine.fits[2], store.Bounds())
	}
}

func TestDeselectCameraConfigurable(t *testing.T) {
	opts := DefaultOptions()
	opts.DeselectResetsCamera = false
	engine, _, _, states, o := setup(opts)

	states.Set(view.Partial{SelectedGroup: view.Ptr("A")})
	o.Deselect()

	// Only the group fit; the deselection leaves the camera alone.
	if got := engine.count("fit"); got != 1 {
		t.Fatalf("FitBounds calls=%d, want 1", got)
	}
}

func TestUnchangedSelectionNoCameraMove(t *testing.T) {
	engine, _, _, states, _ := setup(DefaultOptions())

	// Selection absent from these partials: no deselect-driven fit.
	states.Set(view.Partial{Opacity: view.Ptr(0.4)})
	states.Set(view.Partial{FilterLevel: view.Ptr("2")})
	if got := engine.count("fit"); got != 0 {
		t.Fatalf("FitBounds calls=%d, want 0", got)
	}
}

func TestClickSelectsAndShowsInfo(t *testing.T) {
	_, panel, _, states, o := setup(DefaultOptions())

	o.ClickFeature(1) // group B
	if got := states.Get().SelectedGroup; got != "B" {
		t.Fatalf("selection=%q, want B", got)
	}
	if len(panel.infos) != 1 || panel.infos[0].ID != 1 {
		t.Fatalf("infos=%v", panel.infos)
	}

	// Clicking the selected group again: no toggle, info shown again.
	before := states.Get().Version
	o.ClickFeature(1)
	if got := states.Get().SelectedGroup; got != "B" {
		t.Fatalf("selection toggled off to %q", got)
	}
	if states.Get().Version != before {
		t.Fatal("redundant click produced a state transition")
	}
	if len(panel.infos) != 2 {
		t.Fatalf("infos=%d, want 2", len(panel.infos))
	}
}

func TestClickUngroupedOnlyShowsInfo(t *testing.T) {
	_, panel, _, states, o := setup(DefaultOptions())

	o.ClickFeature(3)
	if got := states.Get().SelectedGroup; got != "" {
		t.Fatalf("ungrouped click selected %q", got)
	}
	if len(panel.infos) != 1 {
		t.Fatalf("infos=%d, want 1", len(panel.infos))
	}
}

func TestHoverSkipsSelectedFeature(t *testing.T) {
	engine, _, _, states, o := setup(DefaultOptions())

	states.Set(view.Partial{SelectedGroup: view.Ptr("A")})
	styled := engine.count("style")

	o.HoverFeature(0) // belongs to selected group A
	if engine.count("style") != styled {
		t.Fatal("hover restyled a selected feature")
	}

	o.HoverFeature(1) // group B, not selected
	if engine.count("style") != styled+1 {
		t.Fatal("hover did not restyle a non-selected feature")
	}
}

func TestLeaveRecomputesStyleFresh(t *testing.T) {
	engine, _, store, states, o := setup(DefaultOptions())
	states.Set(view.Partial{Opacity: view.Ptr(0.6)})

	o.HoverFeature(1)
	// State changes while hovering; restore must reflect it, not the
	// pre-hover record.
	states.Set(view.Partial{Opacity: view.Ptr(0.9)})
	o.LeaveFeature(1)

	f, _ := store.Feature(1)
	want := style.Resolve(f, states.Get())
	if engine.styles[1] != want {
		t.Fatalf("restored style=%+v, want %+v", engine.styles[1], want)
	}
}
