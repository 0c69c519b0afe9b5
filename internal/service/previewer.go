package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/thatlq1812/identity-service/internal/domain"
	"github.com/thatlq1812/identity-service/internal/repository"
)

// MergePreviewer computes read-only, advisory reports of what a merge would
// touch. The executor re-validates every precondition at execution time and
// never trusts a stale preview.
type MergePreviewer struct {
	users  repository.WorkspaceUserRepository
	refs   repository.ReferenceRepository
	logger *zap.Logger

	// bulkConcurrency bounds the parallel per-pair previews inside a bulk
	// preview; pure reads, so independent pairs are safe to fan out
	bulkConcurrency int
}

// NewMergePreviewer creates a new previewer instance
func NewMergePreviewer(users repository.WorkspaceUserRepository, refs repository.ReferenceRepository, concurrency int, logger *zap.Logger) *MergePreviewer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &MergePreviewer{users: users, refs: refs, bulkConcurrency: concurrency, logger: logger}
}

// PreviewMerge reports field conflicts, affected dependent rows, and
// high-risk warnings for one keep/delete pair. Strictly read-only.
func (p *MergePreviewer) PreviewMerge(ctx context.Context, wsID, keepID, deleteID string) (*domain.MergePreview, error) {
	if err := validatePair(wsID, keepID, deleteID); err != nil {
		return nil, err
	}

	keep, err := p.fetchScoped(ctx, wsID, keepID)
	if err != nil {
		return nil, err
	}
	del, err := p.fetchScoped(ctx, wsID, deleteID)
	if err != nil {
		return nil, err
	}

	preview := &domain.MergePreview{
		KeepUser:   *keep,
		DeleteUser: *del,
		Fields:     compareFields(keep, del),
	}

	relations, err := p.refs.CountReferences(ctx, deleteID)
	if err != nil {
		return nil, fmt.Errorf("failed to count affected records: %w", err)
	}
	preview.AffectedRelations = relations
	for _, rel := range relations {
		preview.TotalAffectedRecords += rel.Rows
	}

	warnings, err := p.collectWarnings(ctx, keep, del)
	if err != nil {
		return nil, err
	}
	preview.Warnings = warnings

	return preview, nil
}

// PreviewBulkMerge composes N independent pair previews and aggregates
// totals and warnings without merging per-pair detail. Previews are pure
// reads, so pairs fan out in parallel up to the configured bound.
func (p *MergePreviewer) PreviewBulkMerge(ctx context.Context, wsID string, pairs []domain.MergePair) (*domain.BulkMergePreview, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("at least one merge pair is required: %w", domain.ErrInvalidInput)
	}

	previews := make([]*domain.MergePreview, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.bulkConcurrency)
	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			pv, err := p.PreviewMerge(gctx, wsID, pair.KeepUserID, pair.DeleteUserID)
			if err != nil {
				return fmt.Errorf("pair %s -> %s: %w", pair.DeleteUserID, pair.KeepUserID, err)
			}
			previews[i] = pv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bulk := &domain.BulkMergePreview{
		Pairs:    make([]domain.BulkPairPreview, 0, len(pairs)),
		Warnings: make([]string, 0),
	}
	for i, pv := range previews {
		bulk.Pairs = append(bulk.Pairs, domain.BulkPairPreview{
			KeepUserID:      pairs[i].KeepUserID,
			DeleteUserID:    pairs[i].DeleteUserID,
			AffectedRecords: pv.TotalAffectedRecords,
		})
		bulk.TotalAffectedRecords += pv.TotalAffectedRecords
		bulk.Warnings = append(bulk.Warnings, pv.Warnings...)
	}
	return bulk, nil
}

// fetchScoped loads a record and enforces workspace ownership. A record that
// exists in another workspace is a caller error, not a missing record.
func (p *MergePreviewer) fetchScoped(ctx context.Context, wsID, userID string) (*domain.WorkspaceUser, error) {
	u, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.WorkspaceID != wsID {
		return nil, fmt.Errorf("user %s does not belong to workspace %s: %w", userID, wsID, domain.ErrInvalidInput)
	}
	return u, nil
}

// compareFields builds the field-by-field table restricted to the
// allow-list. Conflict: both sides non-null and differing. AutoResolved:
// exactly one side holds data.
func compareFields(keep, del *domain.WorkspaceUser) []domain.FieldComparison {
	out := make([]domain.FieldComparison, 0, len(domain.MergeFields))
	for _, f := range domain.MergeFields {
		kv, kok := keep.FieldValue(f)
		dv, dok := del.FieldValue(f)

		cmp := domain.FieldComparison{Field: f, KeepValue: kv, DeleteValue: dv}
		switch {
		case kok && dok && kv != dv:
			cmp.Conflict = true
		case kok != dok:
			cmp.AutoResolved = true
		}
		out = append(out, cmp)
	}
	return out
}

// collectWarnings flags the high-risk situations an operator should read
// before confirming: conflicting national ids, two positive balances, and a
// delete side holding an external login link.
func (p *MergePreviewer) collectWarnings(ctx context.Context, keep, del *domain.WorkspaceUser) ([]string, error) {
	warnings := make([]string, 0)

	if keep.NationalID != nil && del.NationalID != nil && *keep.NationalID != *del.NationalID {
		warnings = append(warnings, fmt.Sprintf(
			"users %s and %s hold different national ids; verify they are the same person", keep.ID, del.ID))
	}
	if keep.Balance.IsPositive() && del.Balance.IsPositive() {
		warnings = append(warnings, fmt.Sprintf(
			"both users hold positive balances (%s and %s); pick a balance strategy deliberately",
			keep.Balance.String(), del.Balance.String()))
	}

	keepLink, err := p.refs.PlatformUserID(ctx, keep.ID)
	if err != nil {
		return nil, err
	}
	delLink, err := p.refs.PlatformUserID(ctx, del.ID)
	if err != nil {
		return nil, err
	}
	if delLink != nil {
		if keepLink != nil && *keepLink != *delLink {
			warnings = append(warnings, fmt.Sprintf(
				"users %s and %s are linked to different platform accounts; the merge will be refused", keep.ID, del.ID))
		} else {
			warnings = append(warnings, fmt.Sprintf(
				"user %s has an external login link that will move to %s", del.ID, keep.ID))
		}
	}
	return warnings, nil
}

// validatePair rejects malformed, self, and trivially-invalid pairs before
// any storage access.
func validatePair(wsID, keepID, deleteID string) error {
	if wsID == "" || keepID == "" || deleteID == "" {
		return fmt.Errorf("workspace id and both user ids are required: %w", domain.ErrInvalidInput)
	}
	if keepID == deleteID {
		return fmt.Errorf("cannot merge user %s with itself: %w", keepID, domain.ErrInvalidInput)
	}
	return nil
}
