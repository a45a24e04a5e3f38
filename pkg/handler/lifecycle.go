package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/common"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/intervention"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/personalization"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/pipeline"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/risk"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/service"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
	"github.com/go-chi/chi/v5"
)

// Previewer runs the evaluation pipeline without side effects.
type Previewer interface {
	Preview(ctx context.Context, userID string, now time.Time) (*pipeline.Result, error)
}

// LifecycleHandler serves the per-user read and feedback API.
type LifecycleHandler struct {
	store     service.LifecycleStore
	directory service.UserDirectory
	resolver  *personalization.Resolver
	previewer Previewer
	sessions  service.SessionRecorder
	now       func() time.Time
}

// NewLifecycleHandler creates a new handler. sessions may be nil when
// behavioral data comes from a source the engine does not write to.
func NewLifecycleHandler(
	store service.LifecycleStore,
	directory service.UserDirectory,
	resolver *personalization.Resolver,
	previewer Previewer,
	sessions service.SessionRecorder,
) *LifecycleHandler {
	return &LifecycleHandler{
		store:     store,
		directory: directory,
		resolver:  resolver,
		previewer: previewer,
		sessions:  sessions,
		now:       time.Now,
	}
}

// RegisterRoutes mounts the API on r.
func (h *LifecycleHandler) RegisterRoutes(r chi.Router) {
	r.Route("/v1/users/{userID}", func(r chi.Router) {
		r.Get("/lifecycle", h.HandleGetLifecycle)
		r.Get("/personalization", h.HandleGetPersonalization)
		r.Get("/preview", h.HandlePreview)
		r.Post("/enroll", h.HandleEnroll)
		r.Post("/interventions/{interventionID}/dismiss", h.HandleDismiss)
		r.Post("/interventions/{interventionID}/interact", h.HandleInteract)
		if h.sessions != nil {
			r.Post("/sessions", h.HandleRecordSession)
		}
	})
}

// LifecycleResponse is the stored lifecycle view of one user.
type LifecycleResponse struct {
	UserID         string                   `json:"userId"`
	State          state.State              `json:"state"`
	StateEnteredAt time.Time                `json:"stateEnteredAt"`
	PreviousState  *state.State             `json:"previousState,omitempty"`
	Risk           *risk.Record             `json:"risk,omitempty"`
	Attempts       intervention.Attempts    `json:"attempts"`
	History        []state.TransitionRecord `json:"history"`
	Evaluated      bool                     `json:"evaluated"`
	UpdatedAt      *time.Time               `json:"updatedAt,omitempty"`
}

// HandleGetLifecycle returns the user's state, latest risk record and attempts.
// GET /v1/users/{userID}/lifecycle
func (h *LifecycleHandler) HandleGetLifecycle(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}
	scope := common.UserScope(r.Context(), "LifecycleHandler.GetLifecycle", userID)
	defer scope.Finish()

	rec, err := h.store.Load(scope.Ctx, userID)
	if err != nil {
		scope.TraceError(err)
		if errors.Is(err, state.ErrInvalidState) {
			writeError(w, http.StatusConflict, "INVALID_STATE", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "LOAD_FAILED", err.Error())
		return
	}

	resp := LifecycleResponse{
		UserID:         userID,
		State:          rec.Lifecycle.Current,
		StateEnteredAt: rec.Lifecycle.EnteredAt,
		Risk:           rec.Risk,
		Attempts:       rec.Attempts,
		History:        rec.History,
		Evaluated:      rec.Version > 0,
	}
	if rec.Lifecycle.Previous.Valid() {
		prev := rec.Lifecycle.Previous
		resp.PreviousState = &prev
	}
	if resp.History == nil {
		resp.History = []state.TransitionRecord{}
	}
	if !rec.UpdatedAt.IsZero() {
		resp.UpdatedAt = &rec.UpdatedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// PersonalizationResponse is the UI policy for the user's current state.
type PersonalizationResponse struct {
	UserID string                 `json:"userId"`
	State  string                 `json:"state"`
	Policy personalization.Policy `json:"policy"`
}

// HandleGetPersonalization returns the policy for the user's state. Any
// failure to determine the state serves the conservative policy.
// GET /v1/users/{userID}/personalization
func (h *LifecycleHandler) HandleGetPersonalization(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}
	scope := common.UserScope(r.Context(), "LifecycleHandler.GetPersonalization", userID)
	defer scope.Finish()

	rec, err := h.store.Load(scope.Ctx, userID)
	if err != nil {
		scope.Log.Warnf("serving conservative policy: %v", err)
		writeJSON(w, http.StatusOK, PersonalizationResponse{
			UserID: userID,
			State:  "unknown",
			Policy: personalization.Conservative,
		})
		return
	}

	writeJSON(w, http.StatusOK, PersonalizationResponse{
		UserID: userID,
		State:  rec.Lifecycle.Current.String(),
		Policy: h.resolver.Resolve(rec.Lifecycle.Current),
	})
}

// HandlePreview runs the pipeline for the user without writing or dispatching.
// GET /v1/users/{userID}/preview
func (h *LifecycleHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}

	result, err := h.previewer.Preview(r.Context(), userID, h.now())
	if err != nil {
		writeError(w, statusFor(err), codeFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleEnroll adds the user to the set evaluated each cycle.
// POST /v1/users/{userID}/enroll
func (h *LifecycleHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}

	if err := h.directory.Enroll(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "ENROLL_FAILED", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDismiss records that the user dismissed an intervention.
// POST /v1/users/{userID}/interventions/{interventionID}/dismiss
func (h *LifecycleHandler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	h.handleFeedback(w, r, func(ctx context.Context, userID, interventionID string) error {
		return h.store.MarkDismissed(ctx, userID, interventionID, h.now())
	})
}

// HandleInteract records that the user engaged with an intervention.
// POST /v1/users/{userID}/interventions/{interventionID}/interact
func (h *LifecycleHandler) HandleInteract(w http.ResponseWriter, r *http.Request) {
	h.handleFeedback(w, r, h.store.MarkInteracted)
}

func (h *LifecycleHandler) handleFeedback(w http.ResponseWriter, r *http.Request, record func(ctx context.Context, userID, interventionID string) error) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}
	interventionID := chi.URLParam(r, "interventionID")
	if interventionID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_INTERVENTION_ID", "interventionID is required")
		return
	}

	if err := record(r.Context(), userID, interventionID); err != nil {
		writeError(w, statusFor(err), codeFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRecordSession records a session start for the behavior store.
// POST /v1/users/{userID}/sessions
func (h *LifecycleHandler) HandleRecordSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}

	if err := h.sessions.RecordSession(r.Context(), userID, h.now()); err != nil {
		writeError(w, http.StatusInternalServerError, "RECORD_FAILED", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownIntervention):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConcurrentModification), errors.Is(err, state.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, signal.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, service.ErrUnknownIntervention):
		return "UNKNOWN_INTERVENTION"
	case errors.Is(err, service.ErrConcurrentModification):
		return "CONCURRENT_MODIFICATION"
	case errors.Is(err, state.ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, signal.ErrDataUnavailable):
		return "DATA_UNAVAILABLE"
	}
	return "INTERNAL"
}
