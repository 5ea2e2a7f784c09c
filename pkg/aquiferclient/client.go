// Package aquiferclient is a typed Go client for the plat-aquifer API.
// Method signatures follow the (response, body, error) convention so callers
// can inspect headers when they need to.
package aquiferclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// PlatAquiferAPIClient is the client interface, handy for mocking.
type PlatAquiferAPIClient interface {
	Health(ctx context.Context) (*http.Response, HealthBody, error)
	GetInfo(ctx context.Context) (*http.Response, InfoBody, error)
	ListAquifers(ctx context.Context) (*http.Response, []AquiferSummary, error)
	GetAquifer(ctx context.Context, name string) (*http.Response, AquiferSummary, error)
	Search(ctx context.Context, q string) (*http.Response, SearchBody, error)
	Legend(ctx context.Context) (*http.Response, []LegendEntry, error)
	ListOverlays(ctx context.Context) (*http.Response, []OverlayFile, error)
	GetState(ctx context.Context) (*http.Response, StateBody, error)
	PatchState(ctx context.Context, patch StatePatch) (*http.Response, StateBody, error)
	ListNotices(ctx context.Context) (*http.Response, []Notice, error)
	DismissNotice(ctx context.Context, id int) (*http.Response, MessageBody, error)
	Tables(ctx context.Context) (*http.Response, TablesBody, error)
	Query(ctx context.Context, query string) (*http.Response, QueryBody, error)
}

// Body types mirror the API schemas.

type HealthBody struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Loaded  bool   `json:"loaded"`
}

type InfoBody struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Features []string `json:"features"`
	Aquifers int      `json:"aquifers"`
	Polygons int      `json:"polygons"`
}

type AquiferSummary struct {
	Name         string         `json:"name"`
	FeatureCount int            `json:"featureCount"`
	Levels       map[string]int `json:"levels"`
	Bounds       [4]float64     `json:"bounds"`
	Keys         []string       `json:"keys,omitempty"`
}

type SearchBody struct {
	Query   string         `json:"query"`
	Aquifer AquiferSummary `json:"aquifer"`
}

type LegendEntry struct {
	Level int    `json:"level"`
	Label string `json:"label"`
	Color string `json:"color"`
}

type OverlayFile struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	File      string `json:"file"`
	Size      string `json:"size,omitempty"`
	Available bool   `json:"available"`
}

type StateBody struct {
	Opacity       float64         `json:"opacity"`
	FilterLevel   string          `json:"filterLevel"`
	SelectedGroup string          `json:"selectedGroup"`
	Overlays      map[string]bool `json:"overlays"`
	Version       uint64          `json:"version"`
}

type FlyTo struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Zoom  float64 `json:"zoom,omitempty"`
	Label string  `json:"label,omitempty"`
}

type StatePatch struct {
	Opacity       *float64        `json:"opacity,omitempty"`
	FilterLevel   *string         `json:"filterLevel,omitempty"`
	SelectedGroup *string         `json:"selectedGroup,omitempty"`
	Overlays      map[string]bool `json:"overlays,omitempty"`
	FlyTo         *FlyTo          `json:"flyTo,omitempty"`
	Reset         bool            `json:"reset,omitempty"`
}

type Notice struct {
	ID          int    `json:"id"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

type MessageBody struct {
	Message string `json:"message"`
}

type TablesBody struct {
	Tables []string `json:"tables"`
}

type QueryBody struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Count   int              `json:"count"`
}

// APIError is returned for non-2xx responses, carrying the RFC 9457 body.
type APIError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

type client struct {
	base string
	http *http.Client
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.http = hc }
}

// New creates a client for the given base URL.
func New(base string, opts ...Option) PlatAquiferAPIClient {
	c := &client{base: base, http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) do(ctx context.Context, method, path string, in, out any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, err
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Title: resp.Status}
		json.Unmarshal(raw, apiErr)
		return resp, apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

func (c *client) Health(ctx context.Context) (*http.Response, HealthBody, error) {
	var body HealthBody
	resp, err := c.do(ctx, http.MethodGet, "/health", nil, &body)
	return resp, body, err
}

func (c *client) GetInfo(ctx context.Context) (*http.Response, InfoBody, error) {
	var body InfoBody
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/info", nil, &body)
	return resp, body, err
}

func (c *client) ListAquifers(ctx context.Context) (*http.Response, []AquiferSummary, error) {
	var body []AquiferSummary
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/aquifers", nil, &body)
	return resp, body, err
}

func (c *client) GetAquifer(ctx context.Context, name string) (*http.Response, AquiferSummary, error) {
	var body AquiferSummary
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/aquifers/"+url.PathEscape(name), nil, &body)
	return resp, body, err
}

func (c *client) Search(ctx context.Context, q string) (*http.Response, SearchBody, error) {
	var body SearchBody
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/search?q="+url.QueryEscape(q), nil, &body)
	return resp, body, err
}

func (c *client) Legend(ctx context.Context) (*http.Response, []LegendEntry, error) {
	var body []LegendEntry
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/legend", nil, &body)
	return resp, body, err
}

func (c *client) ListOverlays(ctx context.Context) (*http.Response, []OverlayFile, error) {
	var body []OverlayFile
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/overlays", nil, &body)
	return resp, body, err
}

func (c *client) GetState(ctx context.Context) (*http.Response, StateBody, error) {
	var body StateBody
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/state", nil, &body)
	return resp, body, err
}

func (c *client) PatchState(ctx context.Context, patch StatePatch) (*http.Response, StateBody, error) {
	var body StateBody
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/state", patch, &body)
	return resp, body, err
}

func (c *client) ListNotices(ctx context.Context) (*http.Response, []Notice, error) {
	var body []Notice
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/notices", nil, &body)
	return resp, body, err
}

func (c *client) DismissNotice(ctx context.Context, id int) (*http.Response, MessageBody, error) {
	var body MessageBody
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/notices/%d", id), nil, &body)
	return resp, body, err
}

func (c *client) Tables(ctx context.Context) (*http.Response, TablesBody, error) {
	var body TablesBody
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/tables", nil, &body)
	return resp, body, err
}

func (c *client) Query(ctx context.Context, query string) (*http.Response, QueryBody, error) {
	var body QueryBody
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/query", map[string]string{"query": query}, &body)
	return resp, body, err
}
