package panel

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-aquifer/internal/aquifer"
	"github.com/joeblew999/plat-aquifer/internal/humastar"
	"github.com/joeblew999/plat-aquifer/internal/render"
	"github.com/joeblew999/plat-aquifer/internal/service"
	"github.com/joeblew999/plat-aquifer/internal/style"
	"github.com/joeblew999/plat-aquifer/internal/templates"
	"github.com/joeblew999/plat-aquifer/internal/view"
)

// Handler serves the viewer panel over Datastar SSE. The event stream
// pushes state signals, notices, feature info fragments, and map commands;
// the POST endpoints accept panel control signals.
type Handler struct {
	humastar.Handler
	aquifers *service.AquiferService
	notices  *service.NoticeService
	states   *view.Store
	store    *aquifer.Store
	orch     *render.Orchestrator
	bus      *service.EventBus
	log      *slog.Logger
}

// NewHandler creates the panel handler.
func NewHandler(
	aquifers *service.AquiferService,
	notices *service.NoticeService,
	states *view.Store,
	store *aquifer.Store,
	orch *render.Orchestrator,
	bus *service.EventBus,
	renderer *templates.Renderer,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		Handler:  humastar.Handler{Renderer: renderer},
		aquifers: aquifers,
		notices:  notices,
		states:   states,
		store:    store,
		orch:     orch,
		bus:      bus,
		log:      log,
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/panel/events", h.Events, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/state", h.UpdateState, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/search", h.Search, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/reset", h.Reset, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/click/{id}", h.Click, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/hover/{id}", h.Hover, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/leave/{id}", h.Leave, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/dismiss/{id}", h.DismissNotice, huma.OperationTags("panel"))
}

// Events is the long-lived panel stream. It replays the current state and
// notices on connect, then relays bus events until the client goes away.
func (h *Handler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := humastar.NewSSE(humaCtx)

			sse.Signals(stateSignals(h.states.Get()))
			sse.Patch(h.renderAquiferOptions(), "#aquifer-options")
			sse.Patch(h.renderLegend(), "#legend")
			sse.Patch(h.renderNoticeList(), "#notice-list")

			ch := h.bus.Subscribe()
			defer h.bus.Unsubscribe(ch)

			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-ch:
					switch ev.Kind {
					case "state":
						sse.Signals(stateSignals(ev.State))
					case "notice":
						if ev.Notice.Severity == service.SeverityToast {
							sse.DispatchCustomEvent("toast", eventDetail(ev.Notice))
							continue
						}
						sse.Patch(h.renderNoticeList(), "#notice-list")
						if ev.Notice.Severity == service.SeverityBlocking {
							sse.Signals(map[string]any{"blockingError": ev.Notice.Message})
						}
					case "map":
						sse.DispatchCustomEvent("map-command", eventDetail(ev.Map))
					case "info":
						f, ok := h.store.Feature(ev.FeatureID)
						if !ok {
							h.log.Warn("info event for unknown feature", "id", ev.FeatureID)
							continue
						}
						sse.Patch(h.renderFeatureInfo(f), "#info-panel")
						sse.Signals(map[string]any{"infoOpen": true})
					}
				}
			}
		},
	}, nil
}

// UpdateState merges panel control signals into the view state. Absent
// signals are untouched; an empty selectedAquifer deselects.
func (h *Handler) UpdateState(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}

	var partial view.Partial
	if signals.Has("opacity") {
		v := signals.Float("opacity")
		if v < 0 || v > 1 {
			return nil, huma.Error400BadRequest("Opacity must be between 0 and 1")
		}
		partial.Opacity = &v
	}
	if signals.Has("filterLevel") {
		lv := signals.String("filterLevel")
		if !validFilter(lv) {
			return nil, huma.Error400BadRequest("Filter must be 'all' or a level 1-5")
		}
		partial.FilterLevel = &lv
	}
	if signals.Has("overlays") {
		if m, ok := signals["overlays"].(map[string]any); ok {
			flags := make(map[string]bool, len(m))
			for name, v := range m {
				on, _ := v.(bool)
				flags[name] = on
			}
			partial.Overlays = flags
		}
	}

	return h.Stream(func(sse humastar.SSE) {
		if signals.Has("selectedAquifer") {
			selected := signals.String("selectedAquifer")
			if selected != "" {
				name, ok := h.aquifers.Resolve(selected)
				if !ok {
					sse.Error(fmt.Sprintf("No aquifer matches %q", selected))
					return
				}
				selected = name
			}
			partial.SelectedGroup = &selected
		}

		h.states.Set(partial)
		sse.Signals(stateSignals(h.states.Get()))
	}), nil
}

// Search resolves a typed query to an aquifer and selects it.
func (h *Handler) Search(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	query := signals.String("query")

	return h.Stream(func(sse humastar.SSE) {
		if query == "" {
			sse.Error("Enter an aquifer name or key")
			return
		}
		name, ok := h.aquifers.Resolve(query)
		if !ok {
			sse.Error(fmt.Sprintf("No aquifer matches %q", query))
			return
		}
		h.states.Set(view.Partial{SelectedGroup: &name})
		sse.Signals(map[string]any{"query": "", "error": ""})
	}), nil
}

// Reset restores the initial view state.
func (h *Handler) Reset(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.states.Set(view.Partial{Reset: true})
		sse.Signals(stateSignals(h.states.Get()))
	}), nil
}

// FeatureIDInput identifies a polygon by its stable feature ID.
type FeatureIDInput struct {
	ID int `path:"id" doc:"Feature ID"`
}

// Click selects the clicked polygon's aquifer and opens its info panel.
// Clicking an already selected polygon never deselects it.
func (h *Handler) Click(ctx context.Context, input *FeatureIDInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		if _, ok := h.store.Feature(input.ID); !ok {
			sse.Error("Unknown feature")
			return
		}
		h.orch.ClickFeature(input.ID)
		sse.Signals(map[string]any{"lastFeature": input.ID})
	}), nil
}

// Hover highlights a polygon; the style change arrives as a map command.
func (h *Handler) Hover(ctx context.Context, input *FeatureIDInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.orch.HoverFeature(input.ID)
		sse.Signals(map[string]any{"hovering": input.ID})
	}), nil
}

// Leave clears a hover highlight.
func (h *Handler) Leave(ctx context.Context, input *FeatureIDInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.orch.LeaveFeature(input.ID)
		sse.Signals(map[string]any{"hovering": -1})
	}), nil
}

// NoticeIDInput identifies a notice.
type NoticeIDInput struct {
	ID int `path:"id" doc:"Notice ID"`
}

// DismissNotice removes a dismissible notice and its panel element.
func (h *Handler) DismissNotice(ctx context.Context, input *NoticeIDInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		if err := h.notices.Dismiss(input.ID); err != nil {
			sse.Error(err.Error())
			return
		}
		sse.Remove(fmt.Sprintf("#notice-%d", input.ID))
	}), nil
}

// stateSignals flattens a state snapshot into panel signals.
func stateSignals(s view.State) map[string]any {
	overlays := make(map[string]any, len(s.Overlays))
	for name, on := range s.Overlays {
		overlays[name] = on
	}
	return map[string]any{
		"opacity":         s.Opacity,
		"opacityLabel":    fmt.Sprintf("%.0f%%", s.Opacity*100),
		"filterLevel":     s.FilterLevel,
		"selectedAquifer": s.SelectedGroup,
		"overlays":        overlays,
		"stateVersion":    s.Version,
	}
}

func validFilter(v string) bool {
	switch v {
	case view.FilterAll, "1", "2", "3", "4", "5":
		return true
	}
	return false
}

// eventDetail flattens a payload struct for DispatchCustomEvent.
func eventDetail(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// Fragment data passed to the panel templates. The inline fallbacks below
// keep the panel usable when no template directory is configured.

type optionData struct {
	Value string
	Label string
}

type noticeData struct {
	ID          int
	Severity    string
	Message     string
	Dismissible bool
}

type infoRow struct {
	Key   string
	Value string
}

type infoData struct {
	Name       string
	Aquifer    string
	AltKey     string
	Level      int
	LevelLabel string
	LevelColor string
	Rows       []infoRow
}

func (h *Handler) renderAquiferOptions() string {
	var out string
	for _, name := range h.aquifers.Names() {
		opt := optionData{Value: name, Label: name}
		if h.Renderer != nil {
			if s, err := h.Renderer.Render("select-option", opt); err == nil {
				out += s
				continue
			}
		}
		out += fmt.Sprintf(`<option value="%s">%s</option>`,
			template.HTMLEscapeString(opt.Value), template.HTMLEscapeString(opt.Label))
	}
	return out
}

func (h *Handler) renderLegend() string {
	var out string
	for _, e := range style.LegendEntries() {
		if h.Renderer != nil {
			if s, err := h.Renderer.Render("legend-entry", e); err == nil {
				out += s
				continue
			}
		}
		out += fmt.Sprintf(
			`<div class="legend-entry"><span class="swatch" style="background:%s"></span>%s</div>`,
			e.Color, template.HTMLEscapeString(e.Label))
	}
	return out
}

func (h *Handler) renderNoticeList() string {
	notices := h.notices.List()
	if len(notices) == 0 {
		return ""
	}
	var out string
	for _, n := range notices {
		data := noticeData{
			ID:          n.ID,
			Severity:    string(n.Severity),
			Message:     n.Message,
			Dismissible: n.Dismissible,
		}
		if h.Renderer != nil {
			if s, err := h.Renderer.Render("notice-item", data); err == nil {
				out += s
				continue
			}
		}
		out += fmt.Sprintf(`<div id="notice-%d" class="notice notice-%s">%s</div>`,
			data.ID, data.Severity, template.HTMLEscapeString(data.Message))
	}
	return out
}

func (h *Handler) renderFeatureInfo(f aquifer.Feature) string {
	data := infoData{
		Name:       f.Name,
		Aquifer:    f.Group,
		AltKey:     f.AltKey,
		Level:      f.Level,
		LevelLabel: levelLabel(f.Level),
		LevelColor: style.LevelColor(f.Level),
	}
	keys := make([]string, 0, len(f.Properties))
	for k := range f.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data.Rows = append(data.Rows, infoRow{Key: k, Value: fmt.Sprint(f.Properties[k])})
	}

	if h.Renderer != nil {
		if s, err := h.Renderer.Render("feature-info", data); err == nil {
			return s
		}
	}

	out := fmt.Sprintf(`<h3>%s</h3><p><span class="swatch" style="background:%s"></span>%s</p>`,
		template.HTMLEscapeString(title(data)), data.LevelColor, template.HTMLEscapeString(data.LevelLabel))
	out += `<table class="info-table">`
	for _, row := range data.Rows {
		out += fmt.Sprintf(`<tr><td>%s</td><td>%s</td></tr>`,
			template.HTMLEscapeString(row.Key), template.HTMLEscapeString(row.Value))
	}
	return out + `</table>`
}

func title(d infoData) string {
	if d.Name != "" {
		return d.Name
	}
	if d.Aquifer != "" {
		return d.Aquifer
	}
	return "Polygon"
}

func levelLabel(level int) string {
	if level < aquifer.LevelMin || level > aquifer.LevelMax {
		return "Vulnerability unknown"
	}
	return fmt.Sprintf("Vulnerability level %d", level)
}
