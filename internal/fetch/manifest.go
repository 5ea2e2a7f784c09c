// Package fetch downloads the aquifer datasets over HTTP: a manifest naming
// the data files, then the files themselves in bounded concurrent waves.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrBadManifest marks a missing, malformed or empty manifest. It is fatal
// for the dependent collection and distinct from download failures: callers
// use errors.Is to tell "no manifest" apart from "files failed".
var ErrBadManifest = errors.New("bad manifest")

// Manifest lists the data files of one collection relative to a base path.
type Manifest struct {
	BasePath string   `json:"basePath"`
	Files    []string `json:"files"`
}

// URLs resolves every file against the base path.
func (m Manifest) URLs() []string {
	urls := make([]string, len(m.Files))
	for i, f := range m.Files {
		urls[i] = m.BasePath + f
	}
	return urls
}

// manifestWire mirrors Manifest with pointer fields so an absent key can be
// told apart from a present-but-empty one.
type manifestWire struct {
	BasePath *string   `json:"basePath"`
	Files    *[]string `json:"files"`
}

// LoadManifest fetches and validates a manifest. Absent basePath, absent or
// empty files, or undecodable JSON all reject the manifest before any data
// file is requested.
func LoadManifest(ctx context.Context, client *http.Client, url string) (Manifest, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: fetch %s: %v", ErrBadManifest, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Manifest{}, fmt.Errorf("%w: fetch %s: status %d", ErrBadManifest, url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: read %s: %v", ErrBadManifest, url, err)
	}

	var wire manifestWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return Manifest{}, fmt.Errorf("%w: decode %s: %v", ErrBadManifest, url, err)
	}
	if wire.BasePath == nil {
		return Manifest{}, fmt.Errorf("%w: %s: missing basePath", ErrBadManifest, url)
	}
	if wire.Files == nil {
		return Manifest{}, fmt.Errorf("%w: %s: missing files", ErrBadManifest, url)
	}
	if len(*wire.Files) == 0 {
		return Manifest{}, fmt.Errorf("%w: %s: manifest lists no files", ErrBadManifest, url)
	}

	return Manifest{BasePath: *wire.BasePath, Files: *wire.Files}, nil
}
