package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/action"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage/memory"
)

func noopHandler(_ context.Context, _ action.Context) (map[string]any, error) {
	return map[string]any{}, nil
}

func TestCreateActionRunEnqueuesAndReturnsQueued(t *testing.T) {
	store := memory.New()
	registry := action.NewRegistry()
	registry.Register("pm.score_selected", noopHandler)
	h := NewHandler(store, registry, nil)

	body := `{"action":"pm.score_selected","scope":{"type":"selection","initiative_keys":["INIT-000001"]}}`
	req := httptest.NewRequest(http.MethodPost, "/actions/run", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "queued" {
		t.Fatalf("expected status queued, got %q", resp["status"])
	}
	if resp["run_id"] == "" {
		t.Fatalf("expected a run_id")
	}

	run, err := store.GetActionRun(context.Background(), resp["run_id"])
	if err != nil {
		t.Fatalf("fetch enqueued run: %v", err)
	}
	scope, ok := run.PayloadJSON["scope"].(map[string]any)
	if !ok {
		t.Fatalf("expected scope to be stored as an object, got %T", run.PayloadJSON["scope"])
	}
	if scope["type"] != "selection" {
		t.Fatalf("expected scope type selection, got %v", scope["type"])
	}
	keys, ok := scope["initiative_keys"].([]string)
	if !ok || len(keys) != 1 || keys[0] != "INIT-000001" {
		t.Fatalf("expected initiative_keys [INIT-000001], got %v", scope["initiative_keys"])
	}
}

func TestCreateActionRunRejectsUnknownAction(t *testing.T) {
	store := memory.New()
	registry := action.NewRegistry()
	h := NewHandler(store, registry, nil)

	req := httptest.NewRequest(http.MethodPost, "/actions/run", bytes.NewBufferString(`{"action":"nope.nope"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateActionRunRejectsMissingAction(t *testing.T) {
	store := memory.New()
	registry := action.NewRegistry()
	h := NewHandler(store, registry, nil)

	req := httptest.NewRequest(http.MethodPost, "/actions/run", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetActionRunReturnsStatus(t *testing.T) {
	store := memory.New()
	registry := action.NewRegistry()
	registry.Register("pm.score_selected", noopHandler)
	h := NewHandler(store, registry, nil)

	createReq := httptest.NewRequest(http.MethodPost, "/actions/run", bytes.NewBufferString(`{"action":"pm.score_selected"}`))
	createRec := httptest.NewRecorder()
	h.ServeHTTP(createRec, createReq)

	var created map[string]string
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/actions/run/"+created["run_id"], nil)
	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, getReq)

	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", getRec.Code, getRec.Body.String())
	}
	var status actionRunResponse
	if err := json.Unmarshal(getRec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status response: %v", err)
	}
	if status.Status != "queued" {
		t.Fatalf("expected queued, got %q", status.Status)
	}
}

func TestGetActionRunNotFoundReturns404(t *testing.T) {
	store := memory.New()
	registry := action.NewRegistry()
	h := NewHandler(store, registry, nil)

	req := httptest.NewRequest(http.MethodGet, "/actions/run/does-not-exist", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
