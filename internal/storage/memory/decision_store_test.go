package memory

import (
	"context"
	"errors"
	"testing"

	"polycopy/internal/domain"
	"polycopy/internal/storage"
)

func TestDecisionStore_InsertAndGet(t *testing.T) {
	store := NewDecisionStore()
	ctx := context.Background()

	d := &domain.DecisionRecord{
		ID:            "d1",
		Trader:        "0xwhale",
		ConditionID:   "0xc1",
		ShouldExecute: true,
		Code:          domain.ReasonMatched,
		SizeKind:      "ratio_of_capital",
		SizeValue:     0.025,
		EvaluatedAt:   1000,
	}

	if err := store.Insert(ctx, d); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// mutating the original must not affect the stored copy
	d.SizeValue = 1

	got, err := store.GetByID(ctx, "d1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.SizeValue != 0.025 {
		t.Errorf("SizeValue mismatch: got %f, want %f", got.SizeValue, 0.025)
	}
	if got.Code != domain.ReasonMatched {
		t.Errorf("Code mismatch: got %s", got.Code)
	}
}

func TestDecisionStore_DuplicateKey(t *testing.T) {
	store := NewDecisionStore()
	ctx := context.Background()

	d := &domain.DecisionRecord{ID: "d1", Trader: "0xwhale"}
	if err := store.Insert(ctx, d); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	if err := store.Insert(ctx, d); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestDecisionStore_InvalidInput(t *testing.T) {
	store := NewDecisionStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.DecisionRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty id, got %v", err)
	}
}

func TestDecisionStore_NotFound(t *testing.T) {
	store := NewDecisionStore()

	_, err := store.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDecisionStore_Queries(t *testing.T) {
	store := NewDecisionStore()
	ctx := context.Background()

	records := []*domain.DecisionRecord{
		{ID: "d3", Trader: "0xa", ConditionID: "0xc1", EvaluatedAt: 3000},
		{ID: "d1", Trader: "0xa", ConditionID: "0xc1", EvaluatedAt: 1000},
		{ID: "d2", Trader: "0xa", ConditionID: "0xc2", EvaluatedAt: 2000},
		{ID: "d4", Trader: "0xb", ConditionID: "0xc1", EvaluatedAt: 2000},
	}
	for _, r := range records {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	byTrader, err := store.GetByTrader(ctx, "0xa", 1000, 2000)
	if err != nil {
		t.Fatalf("GetByTrader failed: %v", err)
	}
	if len(byTrader) != 2 || byTrader[0].ID != "d1" || byTrader[1].ID != "d2" {
		t.Errorf("GetByTrader: unexpected result %v", ids(byTrader))
	}

	byCondition, err := store.GetByCondition(ctx, "0xc1")
	if err != nil {
		t.Fatalf("GetByCondition failed: %v", err)
	}
	want := []string{"d1", "d4", "d3"}
	got := ids(byCondition)
	if len(got) != len(want) {
		t.Fatalf("GetByCondition: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetByCondition[%d]: got %s, want %s", i, got[i], want[i])
		}
	}
}

func ids(records []*domain.DecisionRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
