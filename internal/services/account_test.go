package services

import (
	"context"
	"testing"

	"moneycoach/internal/core"
)

func TestDeleteData(t *testing.T) {
	store := newStore(t)
	views := &recordingViews{}
	ctx := context.Background()

	goals := NewGoalService(store, nil, nil, nil)
	if _, err := goals.Create(ctx, "u1", core.NewGoal{Name: "Car", Type: core.GoalSavings, TargetAmount: core.Money{Cents: 100000}}, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := goals.Create(ctx, "u2", core.NewGoal{Name: "Bike", Type: core.GoalSavings, TargetAmount: core.Money{Cents: 50000}}, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	s := NewAccountService(store, NewChanges(views, nil, nil), nil)
	n, err := s.DeleteData(ctx, "u1")
	if err != nil || n != 1 {
		t.Fatalf("DeleteData = %d, %v", n, err)
	}
	if len(views.calls) != 1 || len(views.calls[0]) != 1 || views.calls[0][0] != "u1" {
		t.Fatalf("every view of the user must be dropped, got %v", views.calls)
	}

	if left, _ := store.ListGoals(ctx, "u1"); len(left) != 0 {
		t.Fatalf("u1 still has %d goals", len(left))
	}
	if other, _ := store.ListGoals(ctx, "u2"); len(other) != 1 {
		t.Fatalf("u2 lost data")
	}

	if n, err := s.DeleteData(ctx, "u1"); err != nil || n != 0 {
		t.Fatalf("second DeleteData = %d, %v", n, err)
	}
}
