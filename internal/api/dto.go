package api

import (
	"encoding/json"

	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/runservice"
)

// ConvertRequest is the request body for a conversion run. Naming and
// formatting accept partial option objects; omitted fields keep their
// defaults.
type ConvertRequest struct {
	Paths      []string        `json:"paths,omitempty"`
	Naming     json.RawMessage `json:"naming,omitempty"`
	Formatting json.RawMessage `json:"formatting,omitempty"`
	Preview    bool            `json:"preview,omitempty"`
	OnlyNew    bool            `json:"onlyNew,omitempty"`
	// Zip requests the converted files as a zip archive instead of a
	// JSON result; the run is still written to the vault and recorded.
	Zip bool `json:"zip,omitempty"`
}

// ConvertResponse is the JSON result of a conversion run (aliased from
// the domain layer).
type ConvertResponse = runservice.Result

// CheckRequest selects exports to classify against the run history.
type CheckRequest struct {
	Paths []string `json:"paths,omitempty"`
}

// CheckResponse is the duplicate classification (aliased from the
// domain layer).
type CheckResponse = history.Summary

// RunListResponse wraps the recorded run history.
type RunListResponse struct {
	Runs  []history.RunRecord `json:"runs" validate:"required"`
	Total int                 `json:"total" example:"3" validate:"required"`
}

// PresetRequest is the request body for saving a preset.
type PresetRequest struct {
	Options json.RawMessage `json:"options" validate:"required"`
}

// PresetListResponse wraps presets of one kind.
type PresetListResponse struct {
	Presets []history.Preset `json:"presets" validate:"required"`
}
