package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thatlq1812/identity-service/internal/domain"
	"github.com/thatlq1812/identity-service/internal/repository"
)

// MergeExecutor performs one merge atomically: field reconciliation, balance
// reconciliation, foreign-key repoint, platform-link transfer, deletion, and
// the audit entry, all inside a single transaction. Any failure at any step
// rolls the whole merge back.
type MergeExecutor struct {
	store  repository.MergeStore
	logger *zap.Logger
	now    func() time.Time
}

// NewMergeExecutor creates a new executor instance
func NewMergeExecutor(store repository.MergeStore, logger *zap.Logger) *MergeExecutor {
	return &MergeExecutor{store: store, logger: logger, now: time.Now}
}

// ExecuteMerge runs one merge. Preconditions (validated before any storage
// access): distinct ids, non-empty workspace. Inside the transaction the
// executor re-checks that both records exist, co-reside in the workspace,
// and are not held by another in-flight merge.
func (e *MergeExecutor) ExecuteMerge(ctx context.Context, req domain.MergeRequest) (*domain.MergeResult, error) {
	if err := validatePair(req.WorkspaceID, req.KeepUserID, req.DeleteUserID); err != nil {
		return nil, err
	}
	if err := validateStrategies(req.FieldStrategy, req.BalanceStrategy); err != nil {
		return nil, err
	}

	var result *domain.MergeResult
	err := e.store.WithTx(ctx, func(tx repository.MergeTx) error {
		locked, err := tx.TryLockPair(ctx, req.KeepUserID, req.DeleteUserID)
		if err != nil {
			return err
		}
		if !locked {
			return fmt.Errorf("users %s/%s are held by another in-flight merge: %w",
				req.KeepUserID, req.DeleteUserID, domain.ErrConflict)
		}

		keep, err := e.fetchScoped(ctx, tx, req.WorkspaceID, req.KeepUserID)
		if err != nil {
			return err
		}
		del, err := e.fetchScoped(ctx, tx, req.WorkspaceID, req.DeleteUserID)
		if err != nil {
			return err
		}

		// Two records linked to different platform accounts represent two
		// real logins; merging them would orphan one. Refuse.
		keepLink, err := tx.PlatformUserID(ctx, keep.ID)
		if err != nil {
			return err
		}
		delLink, err := tx.PlatformUserID(ctx, del.ID)
		if err != nil {
			return err
		}
		if keepLink != nil && delLink != nil && *keepLink != *delLink {
			return fmt.Errorf("users %s and %s are linked to different platform accounts: %w",
				keep.ID, del.ID, domain.ErrConflict)
		}

		reconcile(keep, del, req.FieldStrategy, req.BalanceStrategy)
		if err := tx.UpdateUser(ctx, keep); err != nil {
			return err
		}

		outcomes, err := tx.RepointReferences(ctx, del.ID, keep.ID)
		if err != nil {
			return err
		}
		linkMoved, err := tx.TransferPlatformLink(ctx, del.ID, keep.ID)
		if err != nil {
			return err
		}
		if err := tx.DeleteUser(ctx, del.ID); err != nil {
			return err
		}

		mergedAt := e.now().UTC()
		audit := &domain.AuditEntry{
			ID:              uuid.New().String(),
			WorkspaceID:     req.WorkspaceID,
			KeepUserID:      keep.ID,
			DeleteUserID:    del.ID,
			FieldStrategy:   req.FieldStrategy,
			BalanceStrategy: req.BalanceStrategy,
			Actor:           req.Actor,
			MergedAt:        mergedAt,
		}
		if err := tx.InsertAudit(ctx, audit); err != nil {
			return err
		}

		result = &domain.MergeResult{
			KeepUserID:      keep.ID,
			DeleteUserID:    del.ID,
			Relations:       outcomes,
			LinkTransferred: linkMoved,
			MergedAt:        mergedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("merge committed",
		zap.String("ws_id", req.WorkspaceID),
		zap.String("keep_user_id", result.KeepUserID),
		zap.String("delete_user_id", result.DeleteUserID),
		zap.String("actor", req.Actor))
	return result, nil
}

func (e *MergeExecutor) fetchScoped(ctx context.Context, tx repository.MergeTx, wsID, userID string) (*domain.WorkspaceUser, error) {
	u, err := tx.GetUserForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.WorkspaceID != wsID {
		return nil, fmt.Errorf("user %s does not belong to workspace %s: %w", userID, wsID, domain.ErrInvalidInput)
	}
	return u, nil
}

// reconcile applies the field and balance strategies onto the keep record.
// Fields marked "delete" copy the delete side's non-null value; "keep" and
// unlisted fields stay untouched.
func reconcile(keep, del *domain.WorkspaceUser, fields domain.FieldStrategy, balance domain.BalanceStrategy) {
	for field, choice := range fields {
		if choice == domain.ChooseDelete {
			keep.CopyField(del, field)
		}
	}
	if balance == domain.BalanceAdd {
		keep.Balance = keep.Balance.Add(del.Balance)
	}
}

func validateStrategies(fields domain.FieldStrategy, balance domain.BalanceStrategy) error {
	for field, choice := range fields {
		if !domain.IsMergeField(string(field)) {
			return fmt.Errorf("field %q is not mergeable: %w", field, domain.ErrInvalidInput)
		}
		if choice != domain.ChooseKeep && choice != domain.ChooseDelete {
			return fmt.Errorf("unknown field choice %q for %q: %w", choice, field, domain.ErrInvalidInput)
		}
	}
	if balance != domain.BalanceKeep && balance != domain.BalanceAdd {
		return fmt.Errorf("unknown balance strategy %q: %w", balance, domain.ErrInvalidInput)
	}
	return nil
}
