package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/action"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/logger"
)

// handler implements the sheet-native Action API (spec.md §4.15): enqueue
// an ActionRun durably and return immediately, and let callers poll for its
// outcome. No handler code executes in the request path — that is the
// worker loop's job (internal/app/action.Worker).
type handler struct {
	store    storage.ActionRunStore
	registry *action.Registry
	log      *logger.Logger
}

// NewHandler returns a router exposing the Action API, grounded on the
// teacher's gorilla/mux usage (services/secrets/handlers.go) for
// path-variable routes.
func NewHandler(store storage.ActionRunStore, registry *action.Registry, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{store: store, registry: registry, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/actions/run", h.createActionRun).Methods(http.MethodPost)
	r.HandleFunc("/actions/run/{run_id}", h.getActionRun).Methods(http.MethodGet)
	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// scopeSpec mirrors spec.md §6.1's scope object:
// {"type": "selection", "initiative_keys": ["INIT-000001", ...]}.
type scopeSpec struct {
	Type           string   `json:"type"`
	InitiativeKeys []string `json:"initiative_keys"`
}

// createActionRunRequest mirrors spec.md §4.15's POST body shape.
type createActionRunRequest struct {
	Action       string         `json:"action"`
	Scope        *scopeSpec     `json:"scope"`
	SheetContext map[string]any `json:"sheet_context"`
	Options      map[string]any `json:"options"`
	RequestedBy  map[string]any `json:"requested_by"`
}

// createActionRun enqueues a queued ActionRun and returns immediately — no
// handler executes inline (spec.md §4.15: "returns {run_id, status:
// queued} immediately with no handler execution in the request path").
func (h *handler) createActionRun(w http.ResponseWriter, r *http.Request) {
	var req createActionRunRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidPayload)
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, ErrInvalidPayload)
		return
	}
	if _, err := h.registry.Lookup(req.Action); err != nil {
		writeError(w, http.StatusBadRequest, ErrUnknownAction)
		return
	}

	payload := map[string]any{}
	if req.Scope != nil {
		scopeType := req.Scope.Type
		if scopeType == "" {
			scopeType = "selection"
		}
		payload["scope"] = map[string]any{
			"type":            scopeType,
			"initiative_keys": req.Scope.InitiativeKeys,
		}
	}
	if req.SheetContext != nil {
		payload["sheet_context"] = req.SheetContext
	}
	if req.Options != nil {
		payload["options"] = req.Options
	}

	run, err := h.store.EnqueueActionRun(r.Context(), domain.ActionRun{
		RunID:           uuid.NewString(),
		Action:          req.Action,
		Status:          domain.ActionStatusQueued,
		PayloadJSON:     payload,
		RequestedByJSON: req.RequestedBy,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		h.log.WithField("action", req.Action).WithError(err).Error("failed to enqueue action run")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": run.RunID,
		"status": string(run.Status),
	})
}

// actionRunResponse mirrors spec.md §4.15's GET response shape.
type actionRunResponse struct {
	RunID      string         `json:"run_id"`
	Status     string         `json:"status"`
	StartedAt  *time.Time     `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at"`
	Result     map[string]any `json:"result,omitempty"`
	ErrorText  string         `json:"error_text,omitempty"`
}

// getActionRun reports an ActionRun's current status, 404 on unknown run id
// (spec.md §4.15).
func (h *handler) getActionRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]
	run, err := h.store.GetActionRun(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrActionRunNotFound)
		return
	}

	writeJSON(w, http.StatusOK, actionRunResponse{
		RunID:      run.RunID,
		Status:     string(run.Status),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Result:     run.ResultJSON,
		ErrorText:  run.ErrorText,
	})
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
