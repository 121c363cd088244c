package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/export"
	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/runservice"
)

// ProgressPublisher receives run progress for streaming to SSE clients.
// A nil publisher disables progress streaming.
type ProgressPublisher interface {
	PublishProgress(done, total int, path string)
	PublishRunCompleted(runID int64, files, skipped int)
}

// Handler holds API route handlers.
type Handler struct {
	svc      *runservice.Service
	store    history.Store
	progress ProgressPublisher
}

// NewHandler creates a new Handler.
func NewHandler(svc *runservice.Service, store history.Store, progress ProgressPublisher) *Handler {
	return &Handler{svc: svc, store: store, progress: progress}
}

// Convert handles POST /api/convert.
//
//	@Summary		Convert Keep exports to Markdown
//	@Tags			convert
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConvertRequest	true	"Run options"
//	@Success		200		{object}	ConvertResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/convert [post]
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	naming, formatting, err := resolveOptions(req.Naming, req.Formatting)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runReq := runservice.Request{
		Paths:      req.Paths,
		Naming:     naming,
		Formatting: formatting,
		Preview:    req.Preview,
		OnlyNew:    req.OnlyNew,
	}
	if h.progress != nil {
		runReq.OnProgress = h.progress.PublishProgress
	}

	res, err := h.svc.Convert(r.Context(), runReq)
	if err != nil {
		slog.Error("convert failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if h.progress != nil && !req.Preview {
		h.progress.PublishRunCompleted(res.RunID, len(res.Outcome.Files), len(res.Outcome.Skipped))
	}

	if req.Zip {
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", `attachment; filename="raido-export.zip"`)
		if res.RunID != 0 {
			w.Header().Set("X-Raido-Run", fmt.Sprintf("%d", res.RunID))
		}
		if err := export.ToZip(w, res.Outcome.Files); err != nil {
			slog.Error("zip stream failed", slog.String("error", err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Check handles POST /api/check.
//
//	@Summary		Classify a selection against the run history
//	@Tags			convert
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CheckRequest	true	"Selection"
//	@Success		200		{object}	CheckResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/check [post]
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	batch, _, err := h.svc.LoadBatch(r.Context(), req.Paths)
	if err != nil {
		slog.Error("load batch failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	sum, err := h.svc.CheckDuplicates(batch)
	if err != nil {
		slog.Error("check duplicates failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ListRuns handles GET /api/runs.
//
//	@Summary		List recorded runs, newest first
//	@Tags			runs
//	@Produce		json
//	@Success		200	{object}	RunListResponse
//	@Security		BearerAuth
//	@Router			/runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListRuns()
	if err != nil {
		slog.Error("list runs failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if runs == nil {
		runs = []history.RunRecord{}
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs, Total: len(runs)})
}

// ClearRuns handles DELETE /api/runs.
//
//	@Summary		Clear the entire run history
//	@Tags			runs
//	@Success		204	"History cleared"
//	@Security		BearerAuth
//	@Router			/runs [delete]
func (h *Handler) ClearRuns(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearRuns(); err != nil {
		slog.Error("clear runs failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPresets handles GET /api/presets/{kind}.
//
//	@Summary		List presets of one kind
//	@Tags			presets
//	@Produce		json
//	@Param			kind	path		string	true	"Preset kind"	Enums(naming, formatting)
//	@Success		200		{object}	PresetListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/presets/{kind} [get]
func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	kind, ok := presetKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown preset kind")
		return
	}
	presets, err := h.store.ListPresets(kind)
	if err != nil {
		slog.Error("list presets failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if presets == nil {
		presets = []history.Preset{}
	}
	writeJSON(w, http.StatusOK, PresetListResponse{Presets: presets})
}

// GetPreset handles GET /api/presets/{kind}/{name}.
//
//	@Summary		Get one preset
//	@Tags			presets
//	@Produce		json
//	@Param			kind	path		string	true	"Preset kind"	Enums(naming, formatting)
//	@Param			name	path		string	true	"Preset name"
//	@Success		200		{object}	history.Preset
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/presets/{kind}/{name} [get]
func (h *Handler) GetPreset(w http.ResponseWriter, r *http.Request) {
	kind, ok := presetKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown preset kind")
		return
	}
	name := chi.URLParam(r, "name")
	options, err := h.store.GetPreset(kind, name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
		} else {
			slog.Error("get preset failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":    kind,
		"name":    name,
		"options": json.RawMessage(options),
	})
}

// SavePreset handles PUT /api/presets/{kind}/{name}.
//
//	@Summary		Create or replace a preset
//	@Tags			presets
//	@Accept			json
//	@Param			kind	path		string			true	"Preset kind"	Enums(naming, formatting)
//	@Param			name	path		string			true	"Preset name"
//	@Param			body	body		PresetRequest	true	"Preset options"
//	@Success		204		"Preset saved"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/presets/{kind}/{name} [put]
func (h *Handler) SavePreset(w http.ResponseWriter, r *http.Request) {
	kind, ok := presetKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown preset kind")
		return
	}
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "preset name is required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req PresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validatePresetOptions(kind, req.Options); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.SavePreset(kind, name, string(req.Options)); err != nil {
		slog.Error("save preset failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeletePreset handles DELETE /api/presets/{kind}/{name}.
//
//	@Summary		Delete a preset
//	@Tags			presets
//	@Param			kind	path	string	true	"Preset kind"	Enums(naming, formatting)
//	@Param			name	path	string	true	"Preset name"
//	@Success		204		"Preset deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/presets/{kind}/{name} [delete]
func (h *Handler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	kind, ok := presetKind(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown preset kind")
		return
	}
	name := chi.URLParam(r, "name")
	if err := h.store.DeletePreset(kind, name); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
		} else {
			slog.Error("delete preset failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func presetKind(r *http.Request) (string, bool) {
	kind := chi.URLParam(r, "kind")
	if kind != history.PresetNaming && kind != history.PresetFormatting {
		return "", false
	}
	return kind, true
}

// resolveOptions unmarshals partial option objects over the defaults
// and validates the result.
func resolveOptions(rawNaming, rawFormatting json.RawMessage) (models.NamingOptions, models.FormattingOptions, error) {
	naming := models.DefaultNamingOptions()
	if len(rawNaming) > 0 {
		if err := json.Unmarshal(rawNaming, &naming); err != nil {
			return naming, models.FormattingOptions{}, fmt.Errorf("invalid naming options: %w", err)
		}
	}
	formatting := models.DefaultFormattingOptions()
	if len(rawFormatting) > 0 {
		if err := json.Unmarshal(rawFormatting, &formatting); err != nil {
			return naming, formatting, fmt.Errorf("invalid formatting options: %w", err)
		}
	}
	if err := naming.Validate(); err != nil {
		return naming, formatting, fmt.Errorf("naming options: %w", err)
	}
	if err := formatting.Validate(); err != nil {
		return naming, formatting, fmt.Errorf("formatting options: %w", err)
	}
	return naming, formatting, nil
}

func validatePresetOptions(kind string, raw json.RawMessage) error {
	if len(raw) == 0 {
		return errors.New("options are required")
	}
	switch kind {
	case history.PresetNaming:
		o := models.DefaultNamingOptions()
		if err := json.Unmarshal(raw, &o); err != nil {
			return fmt.Errorf("invalid naming options: %w", err)
		}
		return o.Validate()
	case history.PresetFormatting:
		o := models.DefaultFormattingOptions()
		if err := json.Unmarshal(raw, &o); err != nil {
			return fmt.Errorf("invalid formatting options: %w", err)
		}
		return o.Validate()
	}
	return nil
}
