package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func geojsonBody(name string) string {
	return fmt.Sprintf(`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"nombre":%q}}]}`, name)
}

// dataServer serves /files/fN.geojson, failing the names in failNames.
func dataServer(t *testing.T, failNames map[string]bool, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		name := strings.TrimPrefix(r.URL.Path, "/files/")
		if failNames[name] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, geojsonBody(name))
	}))
}

func fileURLs(base string, n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/files/f%d.geojson", base, i+1)
	}
	return urls
}

func TestFetchAllPartialFailures(t *testing.T) {
	srv := dataServer(t, map[string]bool{"f3.geojson": true, "f7.geojson": true, "f11.geojson": true}, nil)
	defer srv.Close()

	f := NewFetcher(srv.Client(), 5, nil)
	res, err := f.FetchAll(context.Background(), fileURLs(srv.URL, 12))
	if err != nil {
		t.Fatal("partial failure must not error:", err)
	}
	if len(res.Collections) != 9 {
		t.Fatalf("collections=%d, want 9", len(res.Collections))
	}
	if len(res.Failed) != 3 {
		t.Fatalf("failed=%d, want 3", len(res.Failed))
	}
	if !res.Partial() {
		t.Fatal("result must report partial")
	}
	if res.FeatureCount() != 9 {
		t.Fatalf("feature count=%d, want 9", res.FeatureCount())
	}
}

func TestFetchAllAllFail(t *testing.T) {
	srv := dataServer(t, map[string]bool{"f1.geojson": true, "f2.geojson": true, "f3.geojson": true}, nil)
	defer srv.Close()

	f := NewFetcher(srv.Client(), 5, nil)
	res, err := f.FetchAll(context.Background(), fileURLs(srv.URL, 3))
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err=%v, want ErrAllFailed", err)
	}
	if errors.Is(err, ErrBadManifest) {
		t.Fatal("total batch failure must not look like a manifest error")
	}
	if len(res.Collections) != 0 {
		t.Fatalf("collections=%d, want 0", len(res.Collections))
	}
	if res.Partial() {
		t.Fatal("all-failed result must not report partial")
	}
}

func TestFetchAllEmptyList(t *testing.T) {
	f := NewFetcher(nil, 5, nil)
	res, err := f.FetchAll(context.Background(), nil)
	if err != nil {
		t.Fatal("empty list must not error:", err)
	}
	if len(res.Collections) != 0 || len(res.Failed) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestFetchAllPreservesRequestOrder(t *testing.T) {
	srv := dataServer(t, map[string]bool{"f2.geojson": true}, nil)
	defer srv.Close()

	f := NewFetcher(srv.Client(), 3, nil)
	res, err := f.FetchAll(context.Background(), fileURLs(srv.URL, 7))
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"f1.geojson", "f3.geojson", "f4.geojson", "f5.geojson", "f6.geojson", "f7.geojson"}
	if len(res.Collections) != len(want) {
		t.Fatalf("collections=%d, want %d", len(res.Collections), len(want))
	}
	for i, fc := range res.Collections {
		name, _ := fc.Features[0].Properties["nombre"].(string)
		if name != want[i] {
			t.Fatalf("slot %d: %q, want %q", i, name, want[i])
		}
	}
}

func TestFetchAllBoundsConcurrency(t *testing.T) {
	var inflight, peak atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		fmt.Fprint(w, geojsonBody("x"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), 4, nil)
	if _, err := f.FetchAll(context.Background(), fileURLs(srv.URL, 13)); err != nil {
		t.Fatal(err)
	}
	if p := peak.Load(); p > 4 {
		t.Fatalf("peak in-flight=%d, want <=4", p)
	}
}

func manifestServer(t *testing.T, manifest string, dataHits *atomic.Int64) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/manifest.json" {
			fmt.Fprint(w, strings.ReplaceAll(manifest, "BASE", srv.URL))
			return
		}
		if dataHits != nil {
			dataHits.Add(1)
		}
		fmt.Fprint(w, geojsonBody(r.URL.Path))
	}))
	return srv
}

func TestLoadManifestValid(t *testing.T) {
	srv := manifestServer(t, `{"basePath":"BASE/files/","files":["a.geojson","b.geojson"]}`, nil)
	defer srv.Close()

	f := NewFetcher(srv.Client(), 5, nil)
	res, err := f.Load(context.Background(), srv.URL+"/manifest.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Collections) != 2 {
		t.Fatalf("collections=%d, want 2", len(res.Collections))
	}
}

func TestLoadManifestRejectedBeforeDataFetch(t *testing.T) {
	cases := []string{
		`{"files":["a.geojson"]}`,              // missing basePath
		`{"basePath":"BASE/files/"}`,           // missing files
		`{"basePath":"BASE/files/","files":[]}`, // zero files
		`{"basePath":"BASE/files/","files":"a"}`, // files not an array
		`not json`,
	}

	for _, manifest := range cases {
		var dataHits atomic.Int64
		srv := manifestServer(t, manifest, &dataHits)

		f := NewFetcher(srv.Client(), 5, nil)
		_, err := f.Load(context.Background(), srv.URL+"/manifest.json")
		if !errors.Is(err, ErrBadManifest) {
			t.Errorf("manifest %q: err=%v, want ErrBadManifest", manifest, err)
		}
		if n := dataHits.Load(); n != 0 {
			t.Errorf("manifest %q: %d data fetches before rejection, want 0", manifest, n)
		}
		srv.Close()
	}
}

func TestLoadManifestMissing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewFetcher(srv.Client(), 5, nil)
	_, err := f.Load(context.Background(), srv.URL+"/manifest.json")
	if !errors.Is(err, ErrBadManifest) {
		t.Fatalf("err=%v, want ErrBadManifest", err)
	}
}
