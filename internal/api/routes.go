// Package api defines the Huma API routes and handlers.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-aquifer/internal/service"
	"github.com/joeblew999/plat-aquifer/internal/style"
	"github.com/joeblew999/plat-aquifer/internal/view"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Aquifer *service.AquiferService
	Overlay *service.OverlayService
	Notice  *service.NoticeService
	States  *view.Store
}

// Types

type NameInput struct {
	Name string `path:"name" doc:"Aquifer name" example:"Valle Alto"`
}

type SearchInput struct {
	Q string `query:"q" required:"true" minLength:"1" doc:"Aquifer name or alternate key"`
}

type AquiferOutput struct {
	Body service.AquiferSummary
}

type AquifersOutput struct {
	Body []service.AquiferSummary
}

type SearchBody struct {
	Query   string                 `json:"query" doc:"Original query"`
	Aquifer service.AquiferSummary `json:"aquifer" doc:"Resolved aquifer"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
	Loaded  bool   `json:"loaded" doc:"Whether the main collection finished loading"`
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	Features []string `json:"features" doc:"Available features"`
	Aquifers int      `json:"aquifers" doc:"Loaded aquifer count"`
	Polygons int      `json:"polygons" doc:"Loaded polygon count"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

// StateBody is the durable slice of the view state; one-shot camera
// commands never appear here.
type StateBody struct {
	Opacity       float64         `json:"opacity" doc:"Global fill opacity 0-1"`
	FilterLevel   string          `json:"filterLevel" doc:"Active level filter: all or 1-5"`
	SelectedGroup string          `json:"selectedGroup" doc:"Selected aquifer, empty when none"`
	Overlays      map[string]bool `json:"overlays" doc:"Overlay visibility flags"`
	Version       uint64          `json:"version" doc:"Snapshot version"`
}

// StatePatchBody is a partial update. Absent fields are untouched; an empty
// selectedGroup explicitly deselects.
type StatePatchBody struct {
	Opacity       *float64        `json:"opacity,omitempty" minimum:"0" maximum:"1" doc:"Global fill opacity"`
	FilterLevel   *string         `json:"filterLevel,omitempty" enum:"all,1,2,3,4,5" doc:"Level filter"`
	SelectedGroup *string         `json:"selectedGroup,omitempty" doc:"Aquifer to select, empty to deselect"`
	Overlays      map[string]bool `json:"overlays,omitempty" doc:"Overlay flags to merge"`
	FlyTo         *FlyToBody      `json:"flyTo,omitempty" doc:"One-shot camera move"`
	Reset         bool            `json:"reset,omitempty" doc:"Reset the whole state to defaults"`
}

type FlyToBody struct {
	Lat   float64 `json:"lat" doc:"Latitude"`
	Lon   float64 `json:"lon" doc:"Longitude"`
	Zoom  float64 `json:"zoom,omitempty" doc:"Target zoom"`
	Label string  `json:"label,omitempty" doc:"Display label"`
}

// StateFromView converts a snapshot to its API shape.
func StateFromView(s view.State) StateBody {
	return StateBody{
		Opacity:       s.Opacity,
		FilterLevel:   s.FilterLevel,
		SelectedGroup: s.SelectedGroup,
		Overlays:      s.Overlays,
		Version:       s.Version,
	}
}

// APIHandler holds all REST API handlers.
type APIHandler struct {
	svc     *Services
	version string
}

func NewAPIHandler(svc *Services, version string) *APIHandler {
	return &APIHandler{svc: svc, version: version}
}

// RegisterRoutes registers every REST route.
func (h *APIHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
	huma.Get(api, "/api/v1/aquifers", h.ListAquifers, huma.OperationTags("aquifers"))
	huma.Get(api, "/api/v1/aquifers/{name}", h.GetAquifer, huma.OperationTags("aquifers"))
	huma.Get(api, "/api/v1/search", h.Search, huma.OperationTags("aquifers"))
	huma.Get(api, "/api/v1/legend", h.GetLegend, huma.OperationTags("viewer"))
	huma.Get(api, "/api/v1/overlays", h.ListOverlays, huma.OperationTags("viewer"))
	huma.Get(api, "/api/v1/state", h.GetState, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/state", h.PatchState, huma.OperationTags("viewer"))
	huma.Get(api, "/api/v1/notices", h.ListNotices, huma.OperationTags("notices"))
	huma.Delete(api, "/api/v1/notices/{id}", h.DismissNotice, huma.OperationTags("notices"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	loaded := h.svc != nil && h.svc.Aquifer != nil && h.svc.Aquifer.Loaded()
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: h.version, Loaded: loaded}}, nil
}

func (h *APIHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:     "plat-aquifer",
		Version:  h.version,
		Features: []string{"geojson", "batched-fetch", "duckdb", "datastar"},
	}
	if h.svc != nil && h.svc.Aquifer != nil {
		body.Aquifers = len(h.svc.Aquifer.List())
		body.Polygons = h.svc.Aquifer.FeatureCount()
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}

func (h *APIHandler) ListAquifers(ctx context.Context, input *struct{}) (*AquifersOutput, error) {
	if h.svc == nil || h.svc.Aquifer == nil {
		return &AquifersOutput{Body: []service.AquiferSummary{}}, nil
	}
	return &AquifersOutput{Body: h.svc.Aquifer.List()}, nil
}

func (h *APIHandler) GetAquifer(ctx context.Context, input *NameInput) (*AquiferOutput, error) {
	if h.svc == nil || h.svc.Aquifer == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	summary, ok := h.svc.Aquifer.Get(input.Name)
	if !ok {
		return nil, huma.Error404NotFound("aquifer not found")
	}
	return &AquiferOutput{Body: summary}, nil
}

func (h *APIHandler) Search(ctx context.Context, input *SearchInput) (*struct{ Body SearchBody }, error) {
	if h.svc == nil || h.svc.Aquifer == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	name, ok := h.svc.Aquifer.Resolve(input.Q)
	if !ok {
		return nil, huma.Error404NotFound("no aquifer matches " + input.Q)
	}
	summary, _ := h.svc.Aquifer.Get(name)
	return &struct{ Body SearchBody }{Body: SearchBody{Query: input.Q, Aquifer: summary}}, nil
}

func (h *APIHandler) GetLegend(ctx context.Context, input *struct{}) (*struct{ Body []style.Legend }, error) {
	return &struct{ Body []style.Legend }{Body: style.LegendEntries()}, nil
}

func (h *APIHandler) ListOverlays(ctx context.Context, input *struct{}) (*struct{ Body []service.OverlayFile }, error) {
	if h.svc == nil || h.svc.Overlay == nil {
		return &struct{ Body []service.OverlayFile }{Body: []service.OverlayFile{}}, nil
	}
	return &struct{ Body []service.OverlayFile }{Body: h.svc.Overlay.List()}, nil
}

func (h *APIHandler) GetState(ctx context.Context, input *struct{}) (*struct{ Body StateBody }, error) {
	return &struct{ Body StateBody }{Body: StateFromView(h.svc.States.Get())}, nil
}

func (h *APIHandler) PatchState(ctx context.Context, input *struct{ Body StatePatchBody }) (*struct{ Body StateBody }, error) {
	partial, err := h.partialFromPatch(input.Body)
	if err != nil {
		return nil, err
	}
	h.svc.States.Set(partial)
	return &struct{ Body StateBody }{Body: StateFromView(h.svc.States.Get())}, nil
}

// partialFromPatch validates a patch and converts it. A selection is
// canonicalized through Resolve so alternate keys select too.
func (h *APIHandler) partialFromPatch(patch StatePatchBody) (view.Partial, error) {
	partial := view.Partial{
		Opacity:     patch.Opacity,
		FilterLevel: patch.FilterLevel,
		Overlays:    patch.Overlays,
		Reset:       patch.Reset,
	}
	if patch.SelectedGroup != nil {
		selected := *patch.SelectedGroup
		if selected != "" {
			name, ok := h.svc.Aquifer.Resolve(selected)
			if !ok {
				return view.Partial{}, huma.Error404NotFound("no aquifer matches " + selected)
			}
			selected = name
		}
		partial.SelectedGroup = &selected
	}
	if patch.FlyTo != nil {
		partial.Camera = &view.Camera{
			Kind:  view.CameraFlyTo,
			Lat:   patch.FlyTo.Lat,
			Lon:   patch.FlyTo.Lon,
			Zoom:  patch.FlyTo.Zoom,
			Label: patch.FlyTo.Label,
		}
	}
	return partial, nil
}

type NoticeIDInput struct {
	ID int `path:"id" doc:"Notice ID"`
}

func (h *APIHandler) ListNotices(ctx context.Context, input *struct{}) (*struct{ Body []service.Notice }, error) {
	if h.svc == nil || h.svc.Notice == nil {
		return &struct{ Body []service.Notice }{Body: []service.Notice{}}, nil
	}
	return &struct{ Body []service.Notice }{Body: h.svc.Notice.List()}, nil
}

func (h *APIHandler) DismissNotice(ctx context.Context, input *NoticeIDInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Notice == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	if err := h.svc.Notice.Dismiss(input.ID); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Notice dismissed"}}, nil
}
