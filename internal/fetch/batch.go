package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/paulmach/orb/geojson"
)

// DefaultConcurrency bounds each wave of in-flight requests.
const DefaultConcurrency = 5

// ErrAllFailed marks a batch in which every requested resource failed.
// The dependent collection cannot be shown; callers surface a blocking
// notice rather than a partial-data warning.
var ErrAllFailed = errors.New("all resources failed")

// Result is the outcome of one batch. Collections holds the successfully
// parsed files in request order, which also preserves wave order.
type Result struct {
	Collections []*geojson.FeatureCollection
	Failed      []string // URLs that failed to fetch or parse
	Requested   int
}

// Partial reports whether some but not all resources failed.
func (r Result) Partial() bool {
	return len(r.Failed) > 0 && len(r.Collections) > 0
}

// FeatureCount sums the features across all successful collections.
func (r Result) FeatureCount() int {
	n := 0
	for _, fc := range r.Collections {
		n += len(fc.Features)
	}
	return n
}

// Fetcher downloads GeoJSON resources in waves of bounded concurrency.
// A wave fully settles, success or failure, before the next one starts.
type Fetcher struct {
	client *http.Client
	limit  int
	log    *slog.Logger
}

// NewFetcher creates a fetcher. A nil client means http.DefaultClient, a
// non-positive limit means DefaultConcurrency, a nil logger means
// slog.Default.
func NewFetcher(client *http.Client, limit int, log *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{client: client, limit: limit, log: log}
}

// FetchAll requests every URL in waves of at most the concurrency limit.
// Individual failures are logged and recorded, never fatal for the batch.
// An empty URL list returns an empty result with no error; a batch where
// every resource failed returns the result plus ErrAllFailed.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) (Result, error) {
	res := Result{Requested: len(urls)}
	if len(urls) == 0 {
		return res, nil
	}

	// Indexed slots keep request order; nil slots are failures.
	slots := make([]*geojson.FeatureCollection, len(urls))

	for start := 0; start < len(urls); start += f.limit {
		end := start + f.limit
		if end > len(urls) {
			end = len(urls)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				fc, err := f.fetchOne(ctx, urls[i])
				if err != nil {
					f.log.Warn("resource failed", "url", urls[i], "error", err)
					return
				}
				slots[i] = fc
			}(i)
		}
		wg.Wait()
	}

	for i, fc := range slots {
		if fc == nil {
			res.Failed = append(res.Failed, urls[i])
			continue
		}
		res.Collections = append(res.Collections, fc)
	}

	if len(res.Collections) == 0 {
		return res, fmt.Errorf("%w: %d requested", ErrAllFailed, len(urls))
	}
	if res.Partial() {
		f.log.Warn("partial batch", "requested", res.Requested, "failed", len(res.Failed))
	}
	return res, nil
}

// Load fetches a manifest and then all of its files in one call.
func (f *Fetcher) Load(ctx context.Context, manifestURL string) (Result, error) {
	manifest, err := LoadManifest(ctx, f.client, manifestURL)
	if err != nil {
		return Result{}, err
	}
	return f.FetchAll(ctx, manifest.URLs())
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) (*geojson.FeatureCollection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return geojson.UnmarshalFeatureCollection(body)
}
