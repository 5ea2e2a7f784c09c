// Package service contains business logic for the plat-aquifer viewer.
package service

// AquiferSummary describes one aquifer (feature group) for the API and the
// side panel dropdown.
type AquiferSummary struct {
	Name         string         `json:"name" doc:"Aquifer name" example:"Valle Alto"`
	FeatureCount int            `json:"featureCount" doc:"Number of polygons in the group"`
	Levels       map[string]int `json:"levels" doc:"Feature count per vulnerability level (keys 1-5 and unknown)"`
	Bounds       [4]float64     `json:"bounds" doc:"Bounding box minLon,minLat,maxLon,maxLat"`
	Keys         []string       `json:"keys,omitempty" doc:"Alternate keys resolving to this aquifer"`
}

// OverlayFile describes one auxiliary overlay layer and whether its data
// file is actually present. A missing file is non-fatal: the toggle simply
// has nothing to show.
type OverlayFile struct {
	Name      string `json:"name" doc:"Overlay layer name" example:"boundaries"`
	Label     string `json:"label" doc:"Display label" example:"State boundaries"`
	File      string `json:"file" doc:"GeoJSON file relative to the data directory"`
	Size      string `json:"size,omitempty" doc:"Human-readable file size"`
	Available bool   `json:"available" doc:"Whether the data file exists"`
}

// OverlayDef is the configured definition of an overlay layer.
type OverlayDef struct {
	Name  string
	Label string
	File  string
}

// Severity classifies user-visible notices.
type Severity string

const (
	// SeverityBlocking marks errors that prevent the main collection from
	// showing. Rendered as a dismissible on-screen notification, never a
	// page-halting modal.
	SeverityBlocking Severity = "blocking"
	// SeverityWarning marks degraded-but-usable conditions (partial data).
	SeverityWarning Severity = "warning"
	// SeverityToast marks informational messages that auto-dismiss.
	SeverityToast Severity = "toast"
)

// Notice is a user-visible notification.
type Notice struct {
	ID          int      `json:"id" doc:"Notice identifier"`
	Severity    Severity `json:"severity" doc:"blocking, warning or toast"`
	Message     string   `json:"message" doc:"Display text"`
	Dismissible bool     `json:"dismissible" doc:"Whether the user can dismiss it"`
}
