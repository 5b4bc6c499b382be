package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polycopy/internal/domain"
	"polycopy/internal/storage"
)

func TestDecisionStore(t *testing.T) {
	pool := setupTestDB(t)

	store := NewDecisionStore(pool)
	ctx := context.Background()

	matched := &domain.DecisionRecord{
		ID:              "d1",
		Trader:          "0xwhale",
		ConditionID:     "0xc1",
		TransactionHash: "0xtx1",
		Side:            domain.SideBuy,
		Price:           0.5,
		NotionalUSD:     600,
		ShouldExecute:   true,
		Code:            domain.ReasonMatched,
		Reason:          "tier matched",
		SizeKind:        domain.SizeRatio.String(),
		SizeValue:       0.025,
		NetExposureUSD:  600,
		EquityUSD:       1000,
		AllocationPct:   0.6,
		Dominance:       1,
		EvaluatedAt:     2000,
	}

	t.Run("insert and get", func(t *testing.T) {
		require.NoError(t, store.Insert(ctx, matched))

		got, err := store.GetByID(ctx, "d1")
		require.NoError(t, err)
		assert.Equal(t, matched, got)
	})

	t.Run("duplicate", func(t *testing.T) {
		assert.ErrorIs(t, store.Insert(ctx, matched), storage.ErrDuplicateKey)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("queries", func(t *testing.T) {
		require.NoError(t, store.Insert(ctx, &domain.DecisionRecord{
			ID: "d0", Trader: "0xwhale", ConditionID: "0xc1", Side: domain.SideSell,
			Code: domain.ReasonExposureTooSmall, SizeKind: "none", EvaluatedAt: 1000,
		}))
		require.NoError(t, store.Insert(ctx, &domain.DecisionRecord{
			ID: "d2", Trader: "0xother", ConditionID: "0xc2", Side: domain.SideBuy,
			Code: domain.ReasonWindowExpired, SizeKind: "none", EvaluatedAt: 1500,
		}))

		byTrader, err := store.GetByTrader(ctx, "0xwhale", 0, 5000)
		require.NoError(t, err)
		require.Len(t, byTrader, 2)
		assert.Equal(t, "d0", byTrader[0].ID)
		assert.Equal(t, domain.ReasonExposureTooSmall, byTrader[0].Code)
		assert.Equal(t, "d1", byTrader[1].ID)

		byCondition, err := store.GetByCondition(ctx, "0xc2")
		require.NoError(t, err)
		require.Len(t, byCondition, 1)
		assert.Equal(t, "0xother", byCondition[0].Trader)
	})
}
