package memory

import (
	"context"
	"testing"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"
)

func TestStoreCreateInitiativeAndMathModel(t *testing.T) {
	store := New()

	in, err := store.CreateInitiative(context.Background(), domain.Initiative{
		InitiativeKey: "INIT-000001",
		Title:         "Improve checkout latency",
		Status:        domain.StatusNew,
	})
	if err != nil {
		t.Fatalf("create initiative: %v", err)
	}
	if in.ID == 0 {
		t.Fatalf("expected an assigned id")
	}

	model, err := store.UpsertMathModel(context.Background(), domain.MathModel{
		InitiativeID: in.ID,
		ModelName:    "latency_v1",
		IsPrimary:    true,
	})
	if err != nil {
		t.Fatalf("upsert math model: %v", err)
	}

	primary, err := store.GetPrimaryMathModel(context.Background(), in.ID)
	if err != nil || primary.ID != model.ID {
		t.Fatalf("expected primary math model to be found, got %#v err=%v", primary, err)
	}

	byKey, err := store.GetInitiativeByKey(context.Background(), "INIT-000001")
	if err != nil || byKey.ID != in.ID {
		t.Fatalf("expected initiative to be found by key, got %#v err=%v", byKey, err)
	}
}

func TestStoreClaimNextActionRun(t *testing.T) {
	store := New()

	_, err := store.EnqueueActionRun(context.Background(), domain.ActionRun{RunID: "run-1", Action: "sync_initiative"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	claimed, ok, err := store.ClaimNextActionRun(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected a claimed run, got ok=%v err=%v", ok, err)
	}
	if claimed.Status != domain.ActionStatusRunning {
		t.Fatalf("expected claimed run to be running, got %s", claimed.Status)
	}

	_, ok, err = store.ClaimNextActionRun(context.Background())
	if err != nil || ok {
		t.Fatalf("expected no further runs to claim, got ok=%v err=%v", ok, err)
	}

	if err := store.FinishActionRun(context.Background(), "run-1", domain.ActionStatusSucceeded, `{"rows_synced":3}`, "", time.Now().UTC()); err != nil {
		t.Fatalf("finish: %v", err)
	}

	finished, err := store.GetActionRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if finished.Status != domain.ActionStatusSucceeded {
		t.Fatalf("expected succeeded, got %s", finished.Status)
	}
	if finished.ResultJSON["rows_synced"] != float64(3) {
		t.Fatalf("expected result json to round-trip, got %#v", finished.ResultJSON)
	}
}

func TestStoreRequeueStuckActionRun(t *testing.T) {
	store := New()
	store.actionRuns["run-2"] = domain.ActionRun{
		RunID:     "run-2",
		Status:    domain.ActionStatusRunning,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
		StartedAt: timePtr(time.Now().UTC().Add(-time.Hour)),
	}

	stuck, err := store.ListStuckActionRuns(context.Background(), time.Now().UTC().Add(-10*time.Minute))
	if err != nil || len(stuck) != 1 {
		t.Fatalf("expected one stuck run, got %#v err=%v", stuck, err)
	}

	if err := store.RequeueActionRun(context.Background(), "run-2"); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	requeued, err := store.GetActionRun(context.Background(), "run-2")
	if err != nil || requeued.Status != domain.ActionStatusQueued || requeued.StartedAt != nil {
		t.Fatalf("expected run requeued with cleared start time, got %#v err=%v", requeued, err)
	}
}

func timePtr(t time.Time) *time.Time { return &t }
