package reminder

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meridian-health/platform/internal/shared/errors"
	"github.com/meridian-health/platform/internal/shared/types"
)

// Handler provides HTTP handlers for reminder schedule state and the
// operator controls.
type Handler struct {
	store    Store
	settings Settings
	engine   *Engine
}

// NewHandler creates a new reminder handler
func NewHandler(store Store, settings Settings, engine *Engine) *Handler {
	return &Handler{store: store, settings: settings, engine: engine}
}

// Routes registers the reminder routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/entries", h.ListEntries)
	r.Get("/due", h.ListDue)
	r.Post("/tick", h.Tick)
	r.Post("/rebuild", h.Rebuild)

	r.Route("/settings", func(r chi.Router) {
		r.Get("/voice", h.GetVoiceSetting)
		r.Put("/voice", h.SetVoiceSetting)
	})

	return r
}

// ListEntries lists reminder entries, filtered by event or status
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{}

	if e := r.URL.Query().Get("event_id"); e != "" {
		id, err := types.ParseID(e)
		if err != nil {
			writeError(w, errors.BadRequest("invalid event ID"))
			return
		}
		filter.EventID = &id
	}

	if s := r.URL.Query().Get("status"); s != "" {
		status := Status(s)
		filter.Status = &status
	}

	entries, err := h.store.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  entries,
		"total": len(entries),
	})
}

// ListDue lists entries currently due for dispatch
func (h *Handler) ListDue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.DueEntries(r.Context(), time.Now().UTC(), 0)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  entries,
		"total": len(entries),
	})
}

// Tick triggers one dispatch cycle immediately
func (h *Handler) Tick(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.TickNow(r.Context()); err != nil {
		writeError(w, errors.Wrap(err, "dispatch tick failed"))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "ticked"})
}

// Rebuild triggers one schedule rebuild immediately
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RebuildNow(r.Context()); err != nil {
		writeError(w, errors.Wrap(err, "rebuild failed"))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "rebuilt"})
}

// GetVoiceSetting returns the voice alert toggle
func (h *Handler) GetVoiceSetting(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.settings.VoiceEnabled(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"voice_enabled": enabled})
}

// SetVoiceSetting updates the voice alert toggle
func (h *Handler) SetVoiceSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VoiceEnabled *bool `json:"voice_enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VoiceEnabled == nil {
		writeError(w, errors.BadRequest("voice_enabled is required"))
		return
	}

	if err := h.settings.SetVoiceEnabled(r.Context(), *req.VoiceEnabled); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"voice_enabled": *req.VoiceEnabled})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
