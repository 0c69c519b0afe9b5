package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/thatlq1812/identity-service/internal/domain"
)

// mergeExecutor is the slice of MergeExecutor the coordinator needs.
type mergeExecutor interface {
	ExecuteMerge(ctx context.Context, req domain.MergeRequest) (*domain.MergeResult, error)
}

// BulkMergeCoordinator sequences many pairs through the executor. Pairs run
// strictly sequentially within one invocation so transitive-chain resolution
// stays sound; per-pair failures are recorded and the batch continues.
type BulkMergeCoordinator struct {
	executor mergeExecutor
	logger   *zap.Logger
}

// NewBulkMergeCoordinator creates a new coordinator instance
func NewBulkMergeCoordinator(executor mergeExecutor, logger *zap.Logger) *BulkMergeCoordinator {
	return &BulkMergeCoordinator{executor: executor, logger: logger}
}

// ExecuteBulkMerge validates the batch, resolves transitive merge chains,
// and executes every pair with the implicit all-"keep" field strategy. A
// keep id that was itself scheduled for deletion earlier in the batch is
// rewritten to its true surviving id before executing, so no pair ever
// merges into an already-deleted record.
func (c *BulkMergeCoordinator) ExecuteBulkMerge(ctx context.Context, wsID string, pairs []domain.MergePair, balance domain.BalanceStrategy, actor string) (*domain.BulkMergeResult, error) {
	if wsID == "" {
		return nil, fmt.Errorf("workspace id is required: %w", domain.ErrInvalidInput)
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("at least one merge pair is required: %w", domain.ErrInvalidInput)
	}
	if balance != domain.BalanceKeep && balance != domain.BalanceAdd {
		return nil, fmt.Errorf("unknown balance strategy %q: %w", balance, domain.ErrInvalidInput)
	}

	seen := make(map[string]bool, len(pairs))
	for _, pair := range pairs {
		if seen[pair.DeleteUserID] {
			return nil, fmt.Errorf("user %s is scheduled for deletion twice: %w",
				pair.DeleteUserID, domain.ErrInvalidInput)
		}
		seen[pair.DeleteUserID] = true
	}

	result := &domain.BulkMergeResult{Outcomes: make([]domain.PairOutcome, 0, len(pairs))}
	// survivor maps a deleted id to the id its data now lives under
	survivor := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		keepID := resolveSurvivor(survivor, pair.KeepUserID)
		outcome := domain.PairOutcome{Pair: pair, ResolvedKeepUserID: keepID}

		if keepID == pair.DeleteUserID {
			outcome.Reason = "pair collapsed onto itself after chain resolution"
			result.Outcomes = append(result.Outcomes, outcome)
			result.FailureCount++
			continue
		}

		_, err := c.executor.ExecuteMerge(ctx, domain.MergeRequest{
			WorkspaceID:     wsID,
			KeepUserID:      keepID,
			DeleteUserID:    pair.DeleteUserID,
			FieldStrategy:   domain.FieldStrategy{},
			BalanceStrategy: balance,
			Actor:           actor,
		})
		if err != nil {
			// Per-pair failures never abort the batch; already-committed
			// pairs stay committed.
			c.logger.Warn("bulk merge pair failed",
				zap.String("ws_id", wsID),
				zap.String("keep_user_id", keepID),
				zap.String("delete_user_id", pair.DeleteUserID),
				zap.Error(err))
			outcome.Reason = err.Error()
			result.Outcomes = append(result.Outcomes, outcome)
			result.FailureCount++
			continue
		}

		survivor[pair.DeleteUserID] = keepID
		outcome.Success = true
		result.Outcomes = append(result.Outcomes, outcome)
		result.SuccessCount++
	}

	c.logger.Info("bulk merge finished",
		zap.String("ws_id", wsID),
		zap.Int("success", result.SuccessCount),
		zap.Int("failure", result.FailureCount))
	return result, nil
}

// resolveSurvivor follows the chain of committed merges until it reaches an
// id that still exists. Chains are acyclic because each id is deleted at
// most once per batch.
func resolveSurvivor(survivor map[string]string, id string) string {
	for {
		next, ok := survivor[id]
		if !ok {
			return id
		}
		id = next
	}
}
