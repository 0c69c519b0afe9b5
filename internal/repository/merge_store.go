package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thatlq1812/identity-service/internal/domain"
)

// MergeTx is the write surface available inside one merge transaction. Every
// mutation a merge performs goes through this interface so the whole merge
// commits or rolls back as a unit.
type MergeTx interface {
	// TryLockPair takes ordered advisory locks on both ids. Locking each id
	// individually serializes any concurrent merge touching either record,
	// as keep or delete side, in any pairing. Returns false when another
	// in-flight merge already holds one of the locks.
	TryLockPair(ctx context.Context, idA, idB string) (bool, error)
	GetUserForUpdate(ctx context.Context, userID string) (*domain.WorkspaceUser, error)
	UpdateUser(ctx context.Context, user *domain.WorkspaceUser) error
	// RepointReferences moves every dependent-relation row from fromID to
	// toID. Rows that would violate a uniqueness constraint are deleted
	// instead of repointed and reported as skipped.
	RepointReferences(ctx context.Context, fromID, toID string) ([]domain.RelationOutcome, error)
	PlatformUserID(ctx context.Context, userID string) (*string, error)
	// TransferPlatformLink repoints the external login link from fromID to
	// toID unless toID is already linked. Reports whether a link moved.
	TransferPlatformLink(ctx context.Context, fromID, toID string) (bool, error)
	DeleteUser(ctx context.Context, userID string) error
	InsertAudit(ctx context.Context, entry *domain.AuditEntry) error
}

// MergeStore runs merge transactions against the datastore
type MergeStore interface {
	WithTx(ctx context.Context, fn func(tx MergeTx) error) error
}

// postgresMergeStore implements MergeStore using PostgreSQL
type postgresMergeStore struct {
	db *pgxpool.Pool
}

// NewPostgresMergeStore creates a new store instance
func NewPostgresMergeStore(db *pgxpool.Pool) MergeStore {
	return &postgresMergeStore{db: db}
}

// WithTx runs fn inside a single transaction. Any error from fn rolls the
// whole transaction back; the returned error is classified onto the domain
// taxonomy.
func (s *postgresMergeStore) WithTx(ctx context.Context, fn func(tx MergeTx) error) error {
	err := pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&postgresMergeTx{tx: tx})
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

type postgresMergeTx struct {
	tx pgx.Tx
}

func (t *postgresMergeTx) TryLockPair(ctx context.Context, idA, idB string) (bool, error) {
	ids := []string{idA, idB}
	sort.Strings(ids) // fixed lock order prevents deadlock between merges

	for _, id := range ids {
		var locked bool
		err := t.tx.QueryRow(ctx,
			`SELECT pg_try_advisory_xact_lock(hashtextextended($1, 0))`, id,
		).Scan(&locked)
		if err != nil {
			return false, fmt.Errorf("failed to acquire merge lock for %s: %w", id, err)
		}
		if !locked {
			return false, nil
		}
	}
	return true, nil
}

func (t *postgresMergeTx) GetUserForUpdate(ctx context.Context, userID string) (*domain.WorkspaceUser, error) {
	query := fmt.Sprintf(`SELECT %s FROM workspace_users WHERE id = $1 FOR UPDATE`, userColumns)

	user, err := scanUser(t.tx.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock user %s: %w", userID, err)
	}
	return user, nil
}

func (t *postgresMergeTx) UpdateUser(ctx context.Context, user *domain.WorkspaceUser) error {
	query := `
        UPDATE workspace_users
        SET full_name = $2, display_name = $3, email = $4, phone = $5,
            avatar_url = $6, birthday = $7, gender = $8, ethnicity = $9,
            guardian = $10, national_id = $11, address = $12, note = $13,
            balance = $14
        WHERE id = $1`

	tag, err := t.tx.Exec(ctx, query,
		user.ID,
		user.FullName,
		user.DisplayName,
		user.Email,
		user.Phone,
		user.AvatarURL,
		user.Birthday,
		user.Gender,
		user.Ethnicity,
		user.Guardian,
		user.NationalID,
		user.Address,
		user.Note,
		user.Balance,
	)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", user.ID, domain.ErrNotFound)
	}
	return nil
}

func (t *postgresMergeTx) RepointReferences(ctx context.Context, fromID, toID string) ([]domain.RelationOutcome, error) {
	outcomes := make([]domain.RelationOutcome, 0, len(DependentRelations))

	for _, rel := range DependentRelations {
		outcome := domain.RelationOutcome{Table: rel.Table, Column: rel.Column}

		if rel.ConflictKey == "" {
			query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE %s = $2`,
				rel.Table, rel.Column, rel.Column)
			tag, err := t.tx.Exec(ctx, query, toID, fromID)
			if err != nil {
				return nil, fmt.Errorf("failed to repoint %s.%s: %w", rel.Table, rel.Column, err)
			}
			outcome.RepointedRows = tag.RowsAffected()
		} else {
			// Move only rows whose (ConflictKey, Column) would not collide
			// with an existing keep-side row, then drop the leftovers.
			query := fmt.Sprintf(`
                UPDATE %[1]s t SET %[2]s = $1
                WHERE t.%[2]s = $2
                  AND NOT EXISTS (
                      SELECT 1 FROM %[1]s k
                      WHERE k.%[2]s = $1 AND k.%[3]s = t.%[3]s
                  )`, rel.Table, rel.Column, rel.ConflictKey)
			tag, err := t.tx.Exec(ctx, query, toID, fromID)
			if err != nil {
				return nil, fmt.Errorf("failed to repoint %s.%s: %w", rel.Table, rel.Column, err)
			}
			outcome.RepointedRows = tag.RowsAffected()

			del := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, rel.Table, rel.Column)
			tag, err = t.tx.Exec(ctx, del, fromID)
			if err != nil {
				return nil, fmt.Errorf("failed to drop colliding %s rows: %w", rel.Table, err)
			}
			outcome.SkippedRows = tag.RowsAffected()
		}

		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (t *postgresMergeTx) PlatformUserID(ctx context.Context, userID string) (*string, error) {
	query := fmt.Sprintf(`SELECT platform_user_id FROM %s WHERE %s = $1 LIMIT 1`, linkedUsersTable, linkedUsersColumn)

	var platformID string
	err := t.tx.QueryRow(ctx, query, userID).Scan(&platformID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get platform link for %s: %w", userID, err)
	}
	return &platformID, nil
}

func (t *postgresMergeTx) TransferPlatformLink(ctx context.Context, fromID, toID string) (bool, error) {
	query := fmt.Sprintf(`
        UPDATE %[1]s SET %[2]s = $1
        WHERE %[2]s = $2
          AND NOT EXISTS (SELECT 1 FROM %[1]s k WHERE k.%[2]s = $1)`,
		linkedUsersTable, linkedUsersColumn)

	tag, err := t.tx.Exec(ctx, query, toID, fromID)
	if err != nil {
		return false, fmt.Errorf("failed to transfer platform link: %w", err)
	}
	transferred := tag.RowsAffected() > 0

	// Any link still pointing at the delete side (keep side already linked)
	// goes away with the record.
	del := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, linkedUsersTable, linkedUsersColumn)
	if _, err := t.tx.Exec(ctx, del, fromID); err != nil {
		return false, fmt.Errorf("failed to clear stale platform link: %w", err)
	}
	return transferred, nil
}

func (t *postgresMergeTx) DeleteUser(ctx context.Context, userID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM workspace_users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return nil
}

func (t *postgresMergeTx) InsertAudit(ctx context.Context, entry *domain.AuditEntry) error {
	strategy, err := json.Marshal(entry.FieldStrategy)
	if err != nil {
		return fmt.Errorf("failed to encode field strategy: %w", err)
	}

	query := `
        INSERT INTO workspace_user_merge_audit
            (id, ws_id, keep_user_id, delete_user_id, field_strategy, balance_strategy, actor, merged_at)
        VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8)`

	_, err = t.tx.Exec(ctx, query,
		entry.ID,
		entry.WorkspaceID,
		entry.KeepUserID,
		entry.DeleteUserID,
		string(strategy),
		string(entry.BalanceStrategy),
		entry.Actor,
		entry.MergedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write merge audit entry: %w", err)
	}
	return nil
}
