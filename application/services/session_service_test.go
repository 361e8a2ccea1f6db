package services

import (
	"context"
	"testing"

	"video-production-service/domain"
)

func TestApproveCreatesPlannedSession(t *testing.T) {
	store := newFakeWorkflowStore()
	svc := NewSessionService(nopLogger{}, NewCostEstimator(testCostConfig()),
		store, newFakeAssetStore(), testCostConfig())

	state, err := svc.Approve(context.Background(), testPlan())
	if err != nil {
		t.Fatal(err)
	}

	if state.SessionID == "" {
		t.Fatal("session id must be assigned")
	}
	if state.Status != domain.StatusPlanned {
		t.Fatalf("new session should be planned, got %s", state.Status)
	}
	if state.CostEstimate == nil {
		t.Fatal("approval must attach a cost estimate")
	}
	// 4 images at 0.10 plus 20 seconds at 0.40.
	if state.CostEstimate.TotalCost != 8.40 {
		t.Fatalf("estimate = %v, want 8.40", state.CostEstimate.TotalCost)
	}

	persisted, err := store.Load(context.Background(), state.SessionID)
	if err != nil {
		t.Fatal("approved session must be persisted:", err)
	}
	if persisted.SessionID != state.SessionID {
		t.Fatal("persisted state does not match returned state")
	}
}

func TestApproveRejectsInvalidPlan(t *testing.T) {
	store := newFakeWorkflowStore()
	svc := NewSessionService(nopLogger{}, NewCostEstimator(testCostConfig()),
		store, newFakeAssetStore(), testCostConfig())

	plan := testPlan()
	plan.Scenes[1].Duration = 12 // over the segment cap

	_, err := svc.Approve(context.Background(), plan)
	if err == nil || !domain.IsInvalidArgument(err) {
		t.Fatalf("expected invalid_argument, got %v", err)
	}

	ids, err := store.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Fatal("rejected plan must not leave persisted state behind")
	}
}

func TestGetUnknownSession(t *testing.T) {
	svc := NewSessionService(nopLogger{}, NewCostEstimator(testCostConfig()),
		newFakeWorkflowStore(), newFakeAssetStore(), testCostConfig())

	_, err := svc.Get(context.Background(), "nope")
	if err == nil || !domain.IsNotFound(err) {
		t.Fatalf("expected not_found, got %v", err)
	}
}
