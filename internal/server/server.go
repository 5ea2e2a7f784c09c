// Package server wires the aquifer viewer: feature store, batched loader,
// view state, render orchestrator, REST API, and the Datastar panel.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-aquifer/internal/api"
	"github.com/joeblew999/plat-aquifer/internal/api/panel"
	"github.com/joeblew999/plat-aquifer/internal/aquifer"
	"github.com/joeblew999/plat-aquifer/internal/config"
	"github.com/joeblew999/plat-aquifer/internal/db"
	"github.com/joeblew999/plat-aquifer/internal/fetch"
	"github.com/joeblew999/plat-aquifer/internal/render"
	"github.com/joeblew999/plat-aquifer/internal/service"
	"github.com/joeblew999/plat-aquifer/internal/templates"
	"github.com/joeblew999/plat-aquifer/internal/view"
)

const version = "1.0.0"

// Config holds the server configuration.
type Config struct {
	Host       string
	Port       string
	DataDir    string
	WebDir     string // Path to web/ directory for static files and templates
	ConfigFile string // Optional viewer config YAML
}

// Server is the aquifer viewer HTTP server.
type Server struct {
	config   Config
	viewer   config.Config
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	store    *aquifer.Store
	states   *view.Store
	services *api.Services
	bus      *service.EventBus
	loader   *service.LoaderService
	orch     *render.Orchestrator
	renderer *templates.Renderer
	log      *slog.Logger
}

// New creates a new viewer server. Missing optional pieces (config file,
// templates, DuckDB) degrade to defaults rather than failing startup.
func New(cfg Config) *Server {
	log := slog.Default().With("component", "server")

	viewer, err := config.Load(cfg.ConfigFile)
	if err != nil {
		log.Warn("config load failed, using defaults", "path", cfg.ConfigFile, "error", err)
	}

	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-aquifer API", version)
	humaConfig.Info.Description = "Aquifer vulnerability map viewer: batched GeoJSON loading, view state, and styled polygon rendering."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	// Core pipeline: store <- loader <- fetcher, fanned out through the bus
	store := aquifer.NewStore()
	bus := service.NewEventBus()
	notices := service.NewNoticeService(bus)
	fetcher := fetch.NewFetcher(nil, viewer.Concurrency, log)
	loader := service.NewLoaderService(fetcher, store, notices, log)

	initial := view.Default(viewer.OverlayNames())
	initial.Opacity = viewer.Opacity
	states := view.NewStore(initial)

	overlayDefs := make([]service.OverlayDef, len(viewer.Overlays))
	for i, o := range viewer.Overlays {
		overlayDefs[i] = service.OverlayDef{Name: o.Name, Label: o.Label, File: o.File}
	}

	services := &api.Services{
		Aquifer: service.NewAquiferService(store),
		Overlay: service.NewOverlayService(cfg.DataDir, overlayDefs),
		Notice:  notices,
		States:  states,
	}

	// Initialize template renderer for panel SSE handlers
	var renderer *templates.Renderer
	if cfg.WebDir != "" {
		fragmentsDir := filepath.Join(cfg.WebDir, "templates", "fragments")
		if r, err := templates.New(fragmentsDir); err == nil {
			renderer = r
			log.Info("loaded fragment templates", "dir", fragmentsDir)
		}
	}

	opts := render.DefaultOptions()
	opts.FitPadding = viewer.FitPadding
	if viewer.DeselectResetsCamera != nil {
		opts.DeselectResetsCamera = *viewer.DeselectResetsCamera
	}
	orch := render.New(panel.NewBusEngine(bus), panel.NewBusPanel(bus), store, states, opts, log)

	s := &Server{
		config:   cfg,
		viewer:   viewer,
		mux:      mux,
		humaAPI:  humaAPI,
		store:    store,
		states:   states,
		services: services,
		bus:      bus,
		loader:   loader,
		orch:     orch,
		renderer: renderer,
		log:      log,
	}

	// Initialize DuckDB connection
	conn, err := db.Get(db.Config{
		DataDir: cfg.DataDir,
		DBName:  "aquifer",
	})
	if err == nil {
		s.db = conn
	}

	s.routes()
	return s
}

// LoadData fetches the main collection and primes the store, orchestrator,
// and attribute table. Failures surface as notices, so the server keeps
// running either way.
func (s *Server) LoadData(ctx context.Context) error {
	url := s.viewer.Manifest
	if strings.HasPrefix(url, "/") {
		host := s.config.Host
		if host == "0.0.0.0" || host == "" {
			host = "localhost"
		}
		url = fmt.Sprintf("http://%s:%s%s", host, s.config.Port, url)
	}

	if err := s.loader.Load(ctx, url); err != nil {
		return err
	}

	s.orch.Render()

	if s.db != nil {
		if err := db.LoadFeatures(s.db, s.store.Features()); err != nil {
			s.log.Warn("attribute table load failed", "error", err)
		}
	}
	return nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated spec for export.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close closes server resources.
func (s *Server) Close() error {
	return db.Close()
}

func (s *Server) routes() {
	// Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.NewAPIHandler(s.services, version).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Datastar panel routes (SSE stream plus control signals)
	panelHandler := panel.NewHandler(
		s.services.Aquifer, s.services.Notice, s.states, s.store,
		s.orch, s.bus, s.renderer, s.log,
	)
	panelHandler.RegisterRoutes(s.humaAPI)

	// Static files and GeoJSON data
	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}
	s.mux.Handle("/data/", http.StripPrefix("/data/", s.handleData(s.config.DataDir)))

	// Page routes
	s.mux.HandleFunc("/viewer", s.handleViewer)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-aquifer",
		"status":  "running",
	})
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	templatePath := filepath.Join(s.config.WebDir, "templates", "viewer.html")
	http.ServeFile(w, r, templatePath)
}

// handleData serves manifest and GeoJSON files with CORS headers so the
// viewer can be embedded cross-origin.
func (s *Server) handleData(dataDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		http.FileServer(http.Dir(dataDir)).ServeHTTP(w, r)
	})
}
