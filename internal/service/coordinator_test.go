package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thatlq1812/identity-service/internal/domain"
)

func newCoordinator(store *fakeStore) *BulkMergeCoordinator {
	return NewBulkMergeCoordinator(newExecutor(store), zap.NewNop())
}

func TestExecuteBulkMerge_ResolvesTransitiveChains(t *testing.T) {
	store := newFakeStore(
		testUser("a", "ws1", 0, withBalance(10)),
		testUser("b", "ws1", time.Hour, withBalance(20)),
		testUser("c", "ws1", 2*time.Hour, withBalance(30)),
	)
	store.rows = []refRow{{table: "sent_emails", column: "receiver_id", userID: "c"}}

	pairs := []domain.MergePair{
		{KeepUserID: "a", DeleteUserID: "b"},
		{KeepUserID: "b", DeleteUserID: "c"}, // b is gone by now; must land on a
	}
	result, err := newCoordinator(store).ExecuteBulkMerge(
		context.Background(), "ws1", pairs, domain.BalanceAdd, "tester")
	require.NoError(t, err)

	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 0, result.FailureCount)
	require.Len(t, result.Outcomes, 2)
	assert.Equal(t, "a", result.Outcomes[1].ResolvedKeepUserID)

	require.Len(t, store.users, 1)
	survivor := store.users["a"]
	require.NotNil(t, survivor)
	assert.True(t, survivor.Balance.Equal(decimal.NewFromInt(60)), "balances flow through the chain")
	require.Len(t, store.rows, 1)
	assert.Equal(t, "a", store.rows[0].userID)
}

func TestExecuteBulkMerge_PairFailureDoesNotAbortBatch(t *testing.T) {
	users := []*domain.WorkspaceUser{}
	for _, id := range []string{"k1", "d1", "k2", "d2", "k3", "d3", "k4", "d4", "k5", "d5"} {
		users = append(users, testUser(id, "ws1", 0))
	}
	store := newFakeStore(users...)
	store.failDelete["d3"] = domain.ErrConstraintViolation

	pairs := []domain.MergePair{
		{KeepUserID: "k1", DeleteUserID: "d1"},
		{KeepUserID: "k2", DeleteUserID: "d2"},
		{KeepUserID: "k3", DeleteUserID: "d3"},
		{KeepUserID: "k4", DeleteUserID: "d4"},
		{KeepUserID: "k5", DeleteUserID: "d5"},
	}
	result, err := newCoordinator(store).ExecuteBulkMerge(
		context.Background(), "ws1", pairs, domain.BalanceKeep, "tester")
	require.NoError(t, err)

	assert.Equal(t, 4, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	require.Len(t, result.Outcomes, 5)
	assert.False(t, result.Outcomes[2].Success)
	assert.NotEmpty(t, result.Outcomes[2].Reason)

	// the failed pair rolled back alone; all other pairs stayed committed
	_, d3Alive := store.users["d3"]
	assert.True(t, d3Alive)
	for _, id := range []string{"d1", "d2", "d4", "d5"} {
		_, alive := store.users[id]
		assert.False(t, alive, "pair for %s should have committed", id)
	}
	assert.Len(t, store.audits, 4)
}

func TestExecuteBulkMerge_CollapsedPairIsRecordedAsFailure(t *testing.T) {
	store := newFakeStore(
		testUser("a", "ws1", 0),
		testUser("b", "ws1", time.Hour),
	)

	pairs := []domain.MergePair{
		{KeepUserID: "a", DeleteUserID: "b"},
		{KeepUserID: "b", DeleteUserID: "a"}, // resolves to a -> a
	}
	result, err := newCoordinator(store).ExecuteBulkMerge(
		context.Background(), "ws1", pairs, domain.BalanceKeep, "tester")
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	assert.False(t, result.Outcomes[1].Success)
	assert.Contains(t, result.Outcomes[1].Reason, "collapsed")

	_, aAlive := store.users["a"]
	assert.True(t, aAlive, "the surviving record is never deleted")
}

func TestExecuteBulkMerge_Validation(t *testing.T) {
	store := newFakeStore(testUser("a", "ws1", 0), testUser("b", "ws1", time.Hour))
	coord := newCoordinator(store)
	pair := domain.MergePair{KeepUserID: "a", DeleteUserID: "b"}

	t.Run("missing workspace", func(t *testing.T) {
		_, err := coord.ExecuteBulkMerge(context.Background(), "", []domain.MergePair{pair}, domain.BalanceKeep, "tester")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("empty batch", func(t *testing.T) {
		_, err := coord.ExecuteBulkMerge(context.Background(), "ws1", nil, domain.BalanceKeep, "tester")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown balance strategy", func(t *testing.T) {
		_, err := coord.ExecuteBulkMerge(context.Background(), "ws1", []domain.MergePair{pair}, domain.BalanceStrategy("half"), "tester")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("duplicate delete id", func(t *testing.T) {
		dup := []domain.MergePair{
			{KeepUserID: "a", DeleteUserID: "b"},
			{KeepUserID: "c", DeleteUserID: "b"},
		}
		_, err := coord.ExecuteBulkMerge(context.Background(), "ws1", dup, domain.BalanceKeep, "tester")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Zero(t, store.txCalls, "rejected batches never reach storage")
	})
}
