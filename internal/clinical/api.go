package clinical

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meridian-health/platform/internal/shared/errors"
	"github.com/meridian-health/platform/internal/shared/events"
	"github.com/meridian-health/platform/internal/shared/types"
	"github.com/rs/zerolog"
)

// Store is the event persistence surface the API writes through. Both the
// postgres repository and the in-memory source satisfy it.
type Store interface {
	Source
	Create(ctx context.Context, e *Event) error
	Update(ctx context.Context, e *Event) error
	Cancel(ctx context.Context, id types.ID) error
	List(ctx context.Context, filter ListEventsFilter) ([]Event, int, error)
}

// Handler provides HTTP handlers for the clinical module
type Handler struct {
	store     Store
	hooks     ScheduleHooks
	immediate ImmediateNotifier
	bus       events.EventBus
	logger    zerolog.Logger
}

// NewHandler creates a new clinical handler
func NewHandler(store Store, hooks ScheduleHooks, immediate ImmediateNotifier, bus events.EventBus, logger zerolog.Logger) *Handler {
	return &Handler{store: store, hooks: hooks, immediate: immediate, bus: bus, logger: logger}
}

// Routes registers the clinical routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Post("/", h.CreateEvent)

		r.Route("/{eventID}", func(r chi.Router) {
			r.Get("/", h.GetEvent)
			r.Put("/", h.UpdateEvent)
			r.Delete("/", h.CancelEvent)
		})
	})

	r.Post("/artifacts", h.CreateArtifact)

	return r
}

// CreateEventRequest is the request to create a clinical event
type CreateEventRequest struct {
	Kind         EventKind `json:"kind"`
	Title        string    `json:"title"`
	PatientID    types.ID  `json:"patient_id"`
	PatientName  string    `json:"patient_name"`
	PatientMRN   string    `json:"patient_mrn,omitempty"`
	HospitalID   types.ID  `json:"hospital_id"`
	HospitalName string    `json:"hospital_name"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Location     string    `json:"location,omitempty"`
	Priority     Priority  `json:"priority,omitempty"`
}

// UpdateEventRequest is the request to update a clinical event
type UpdateEventRequest struct {
	Title       *string      `json:"title,omitempty"`
	ScheduledAt *time.Time   `json:"scheduled_at,omitempty"`
	Location    *string      `json:"location,omitempty"`
	Priority    *Priority    `json:"priority,omitempty"`
	Status      *EventStatus `json:"status,omitempty"`
}

// ListEvents lists clinical events
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter := ListEventsFilter{
		Search: r.URL.Query().Get("search"),
	}

	if k := r.URL.Query().Get("kind"); k != "" {
		kind := EventKind(k)
		if !kind.Valid() {
			writeError(w, errors.BadRequest("invalid event kind"))
			return
		}
		filter.Kind = &kind
	}

	if s := r.URL.Query().Get("status"); s != "" {
		status := EventStatus(s)
		filter.Status = &status
	}

	if p := r.URL.Query().Get("patient_id"); p != "" {
		id, err := types.ParseID(p)
		if err != nil {
			writeError(w, errors.BadRequest("invalid patient ID"))
			return
		}
		filter.PatientID = &id
	}

	events, total, err := h.store.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  events,
		"total": total,
	})
}

// GetEvent gets a clinical event by ID
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid event ID"))
		return
	}

	event, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if event == nil {
		writeError(w, errors.NotFound("clinical event", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// CreateEvent creates a new clinical event and builds its reminder schedule
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	event, err := NewEvent(req.Kind, req.Title, req.PatientID, req.PatientName, req.HospitalID, req.HospitalName, req.ScheduledAt, req.Priority)
	if err != nil {
		writeError(w, err)
		return
	}
	event.Location = req.Location

	if req.PatientMRN != "" {
		mrn, err := types.ParseMRN(req.PatientMRN)
		if err != nil {
			writeError(w, errors.Validation("validation failed", map[string]string{
				"patient_mrn": err.Error(),
			}))
			return
		}
		event.PatientMRN = mrn
	}

	if err := h.store.Create(r.Context(), event); err != nil {
		writeError(w, err)
		return
	}

	h.afterUpsert(r.Context(), event, "clinical.event.created")

	writeJSON(w, http.StatusCreated, event)
}

// UpdateEvent updates a clinical event and rebuilds its reminder schedule
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid event ID"))
		return
	}

	event, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if event == nil {
		writeError(w, errors.NotFound("clinical event", id.String()))
		return
	}

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.ScheduledAt != nil {
		event.ScheduledAt = *req.ScheduledAt
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.Priority != nil {
		event.Priority = *req.Priority
	}
	if req.Status != nil {
		event.Status = *req.Status
	}

	if err := event.Validate(); err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.Update(r.Context(), event); err != nil {
		writeError(w, err)
		return
	}

	if event.Status == EventStatusActive {
		h.afterUpsert(r.Context(), event, "clinical.event.updated")
	} else {
		h.afterCancel(r.Context(), event.ID, "clinical.event."+string(event.Status))
	}

	writeJSON(w, http.StatusOK, event)
}

// CancelEvent cancels a clinical event and drops its reminder schedule
func (h *Handler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid event ID"))
		return
	}

	if err := h.store.Cancel(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.afterCancel(r.Context(), id, "clinical.event.cancelled")

	w.WriteHeader(http.StatusNoContent)
}

// CreateArtifactRequest is the request to register a clinical artifact
type CreateArtifactRequest struct {
	Kind        ArtifactKind     `json:"kind"`
	Title       string           `json:"title"`
	PatientID   types.ID         `json:"patient_id"`
	PatientName string           `json:"patient_name"`
	Priority    ArtifactPriority `json:"priority,omitempty"`
}

// CreateArtifact registers a clinical artifact and triggers its one-time
// immediate notification. The artifact itself is not persisted here.
func (h *Handler) CreateArtifact(w http.ResponseWriter, r *http.Request) {
	var req CreateArtifactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	details := map[string]string{}
	if !req.Kind.Valid() {
		details["kind"] = "kind must be investigation, lab_order, prescription or treatment_plan"
	}
	if req.Title == "" {
		details["title"] = "title is required"
	}
	if req.PatientID.IsZero() {
		details["patient_id"] = "patient_id is required"
	}
	if len(details) > 0 {
		writeError(w, errors.Validation("validation failed", details))
		return
	}

	if req.Priority == "" {
		req.Priority = ArtifactRoutine
	}

	artifact := &Artifact{
		ID:          types.NewID(),
		Kind:        req.Kind,
		Title:       req.Title,
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		Priority:    req.Priority,
		CreatedAt:   time.Now().UTC(),
	}

	if h.immediate != nil {
		if err := h.immediate.NotifyImmediate(r.Context(), artifact); err != nil {
			h.logger.Warn().Err(err).
				Str("artifact_id", artifact.ID.String()).
				Msg("immediate notification failed")
		}
	}

	writeJSON(w, http.StatusCreated, artifact)
}

// afterUpsert rebuilds the reminder schedule and announces the change
func (h *Handler) afterUpsert(ctx context.Context, event *Event, eventType string) {
	if h.hooks != nil {
		if err := h.hooks.EventUpserted(ctx, event); err != nil {
			h.logger.Error().Err(err).
				Str("event_id", event.ID.String()).
				Msg("failed to rebuild reminder schedule")
		}
	}

	if h.bus != nil {
		h.bus.Publish(ctx, events.NewEvent(eventType, "clinical", map[string]any{
			"event_id":     event.ID,
			"kind":         event.Kind,
			"scheduled_at": event.ScheduledAt,
		}))
	}
}

// afterCancel drops the reminder schedule and announces the change
func (h *Handler) afterCancel(ctx context.Context, id types.ID, eventType string) {
	if h.hooks != nil {
		if err := h.hooks.EventCancelled(ctx, id); err != nil {
			h.logger.Error().Err(err).
				Str("event_id", id.String()).
				Msg("failed to drop reminder schedule")
		}
	}

	if h.bus != nil {
		h.bus.Publish(ctx, events.NewEvent(eventType, "clinical", map[string]any{
			"event_id": id,
		}))
	}
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
