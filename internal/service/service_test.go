package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/joeblew999/plat-aquifer/internal/aquifer"
	"github.com/joeblew999/plat-aquifer/internal/fetch"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func loadedStore(t *testing.T) *aquifer.Store {
	t.Helper()
	fc := geojson.NewFeatureCollection()
	for i, props := range []map[string]interface{}{
		{"acuifero": "Valle Alto", "clave": "VA-01", "vulnerabilidad": float64(3)},
		{"acuifero": "Valle Alto", "clave": "VA-02", "vulnerabilidad": float64(4)},
		{"acuifero": "Costa", "clave": "C-01", "vulnerabilidad": float64(1)},
		{"acuifero": "Costa"},
	} {
		x := float64(i * 2)
		f := geojson.NewFeature(orb.Polygon{{{x, 0}, {x + 1, 0}, {x + 1, 1}, {x, 1}, {x, 0}}})
		f.Properties = props
		fc.Append(f)
	}
	s := aquifer.NewStore()
	s.Load([]*geojson.FeatureCollection{fc})
	return s
}

func TestAquiferServiceList(t *testing.T) {
	svc := NewAquiferService(loadedStore(t))

	list := svc.List()
	if len(list) != 2 {
		t.Fatalf("aquifers=%d, want 2", len(list))
	}
	if list[0].Name != "Valle Alto" || list[1].Name != "Costa" {
		t.Fatalf("order=%v", []string{list[0].Name, list[1].Name})
	}

	va := list[0]
	if va.FeatureCount != 2 {
		t.Fatalf("Valle Alto count=%d, want 2", va.FeatureCount)
	}
	if va.Levels["3"] != 1 || va.Levels["4"] != 1 {
		t.Fatalf("Valle Alto levels=%v", va.Levels)
	}
	if len(va.Keys) != 2 {
		t.Fatalf("Valle Alto keys=%v", va.Keys)
	}

	costa := list[1]
	if costa.Levels["unknown"] != 1 {
		t.Fatalf("Costa levels=%v", costa.Levels)
	}
}

func TestAquiferServiceResolve(t *testing.T) {
	svc := NewAquiferService(loadedStore(t))

	if got, ok := svc.Resolve("Costa"); !ok || got != "Costa" {
		t.Fatalf("resolve by name: %q %v", got, ok)
	}
	if got, ok := svc.Resolve("VA-02"); !ok || got != "Valle Alto" {
		t.Fatalf("resolve by key: %q %v", got, ok)
	}
	if _, ok := svc.Resolve("nope"); ok {
		t.Fatal("resolved a nonexistent query")
	}
}

func TestOverlayServiceAvailability(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "overlays"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "overlays", "bounds.geojson"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewOverlayService(dir, []OverlayDef{
		{Name: "boundaries", Label: "State boundaries", File: "overlays/bounds.geojson"},
		{Name: "wells", Label: "Wells", File: "overlays/wells.geojson"},
	})

	list := svc.List()
	if len(list) != 2 {
		t.Fatalf("overlays=%d, want 2", len(list))
	}
	if !list[0].Available {
		t.Fatal("existing overlay reported unavailable")
	}
	if list[1].Available {
		t.Fatal("missing overlay reported available")
	}

	if _, ok := svc.Path("boundaries"); !ok {
		t.Fatal("path for configured overlay not resolved")
	}
	if _, ok := svc.Path("nope"); ok {
		t.Fatal("path resolved for unknown overlay")
	}
}

func TestNoticeLifecycle(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	svc := NewNoticeService(bus)
	n := svc.Publish(SeverityBlocking, "manifest missing")
	if !n.Dismissible {
		t.Fatal("blocking notice must be dismissible")
	}

	ev := <-ch
	if ev.Kind != "notice" || ev.Notice.Message != "manifest missing" {
		t.Fatalf("event=%+v", ev)
	}

	if got := len(svc.List()); got != 1 {
		t.Fatalf("retained notices=%d, want 1", got)
	}
	if err := svc.Dismiss(n.ID); err != nil {
		t.Fatal(err)
	}
	if got := len(svc.List()); got != 0 {
		t.Fatalf("notices after dismiss=%d, want 0", got)
	}

	// Toasts broadcast but are not retained.
	svc.Publish(SeverityToast, "loaded")
	if got := len(svc.List()); got != 0 {
		t.Fatalf("toast retained: %d", got)
	}
}

func TestLoaderClassifiesOutcomes(t *testing.T) {
	manifest := func(srvURL string, files []string) string {
		out := `{"basePath":"` + srvURL + `/files/","files":[`
		for i, f := range files {
			if i > 0 {
				out += ","
			}
			out += fmt.Sprintf("%q", f)
		}
		return out + `]}`
	}

	run := func(t *testing.T, files []string, fail map[string]bool, noManifest bool) (*NoticeService, error) {
		t.Helper()
		var srv *httptest.Server
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/manifest.json" {
				if noManifest {
					http.NotFound(w, r)
					return
				}
				fmt.Fprint(w, manifest(srv.URL, files))
				return
			}
			name := filepath.Base(r.URL.Path)
			if fail[name] {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"acuifero":"A"}}]}`)
		}))
		t.Cleanup(srv.Close)

		notices := NewNoticeService(nil)
		loader := NewLoaderService(fetch.NewFetcher(srv.Client(), 2, nil), aquifer.NewStore(), notices, nil)
		return notices, loader.Load(context.Background(), srv.URL+"/manifest.json")
	}

	t.Run("missing manifest is blocking", func(t *testing.T) {
		notices, err := run(t, nil, nil, true)
		if !errors.Is(err, fetch.ErrBadManifest) {
			t.Fatalf("err=%v", err)
		}
		if list := notices.List(); len(list) != 1 || list[0].Severity != SeverityBlocking {
			t.Fatalf("notices=%v", list)
		}
	})

	t.Run("all files failing is blocking and distinct", func(t *testing.T) {
		notices, err := run(t, []string{"a", "b"}, map[string]bool{"a": true, "b": true}, false)
		if !errors.Is(err, fetch.ErrAllFailed) {
			t.Fatalf("err=%v", err)
		}
		if errors.Is(err, fetch.ErrBadManifest) {
			t.Fatal("total failure classified as manifest error")
		}
		if list := notices.List(); len(list) != 1 || list[0].Severity != SeverityBlocking {
			t.Fatalf("notices=%v", list)
		}
	})

	t.Run("partial failure warns and proceeds", func(t *testing.T) {
		notices, err := run(t, []string{"a", "b", "c"}, map[string]bool{"b": true}, false)
		if err != nil {
			t.Fatal(err)
		}
		list := notices.List()
		if len(list) != 1 || list[0].Severity != SeverityWarning {
			t.Fatalf("notices=%v", list)
		}
	})

	t.Run("full success only toasts", func(t *testing.T) {
		notices, err := run(t, []string{"a", "b"}, nil, false)
		if err != nil {
			t.Fatal(err)
		}
		if list := notices.List(); len(list) != 0 {
			t.Fatalf("retained notices=%v", list)
		}
	})
}
