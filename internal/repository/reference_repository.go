package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thatlq1812/identity-service/internal/domain"
)

// ReferenceRepository exposes the read side of the dependent-relation
// registry: how many rows reference an identity record, and whether the
// record carries an external login link. Used by the previewer only; the
// executor recounts nothing and works through its own transaction.
type ReferenceRepository interface {
	CountReferences(ctx context.Context, userID string) ([]domain.AffectedRelation, error)
	PlatformUserID(ctx context.Context, userID string) (*string, error)
}

// postgresReferenceRepository implements ReferenceRepository using PostgreSQL
type postgresReferenceRepository struct {
	db *pgxpool.Pool
}

// NewPostgresReferenceRepository creates a new repository instance
func NewPostgresReferenceRepository(db *pgxpool.Pool) ReferenceRepository {
	return &postgresReferenceRepository{db: db}
}

// CountReferences counts rows referencing userID for every relation in
// DependentRelations plus the external login linkage table. Relations with
// zero rows are included so callers see the full closure that a merge will
// touch.
func (r *postgresReferenceRepository) CountReferences(ctx context.Context, userID string) ([]domain.AffectedRelation, error) {
	counts := make([]domain.AffectedRelation, 0, len(DependentRelations)+1)

	for _, rel := range DependentRelations {
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`, rel.Table, rel.Column)

		var n int64
		if err := r.db.QueryRow(ctx, query, userID).Scan(&n); err != nil {
			return nil, classify(fmt.Errorf("failed to count %s.%s references: %w", rel.Table, rel.Column, err))
		}
		counts = append(counts, domain.AffectedRelation{Table: rel.Table, Column: rel.Column, Rows: n})
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`, linkedUsersTable, linkedUsersColumn)
	var n int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&n); err != nil {
		return nil, classify(fmt.Errorf("failed to count linked users: %w", err))
	}
	counts = append(counts, domain.AffectedRelation{Table: linkedUsersTable, Column: linkedUsersColumn, Rows: n})

	return counts, nil
}

// PlatformUserID returns the platform account the record is linked to, or
// nil when the record is virtual (no external login).
func (r *postgresReferenceRepository) PlatformUserID(ctx context.Context, userID string) (*string, error) {
	query := fmt.Sprintf(`SELECT platform_user_id FROM %s WHERE %s = $1 LIMIT 1`, linkedUsersTable, linkedUsersColumn)

	var platformID string
	err := r.db.QueryRow(ctx, query, userID).Scan(&platformID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get platform link for %s: %w", userID, err))
	}
	return &platformID, nil
}
