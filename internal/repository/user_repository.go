package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thatlq1812/identity-service/internal/domain"
)

// WorkspaceUserRepository defines read operations for identity records
type WorkspaceUserRepository interface {
	GetByID(ctx context.Context, userID string) (*domain.WorkspaceUser, error)
	ListByWorkspace(ctx context.Context, wsID string) ([]domain.WorkspaceUser, error)
}

const userColumns = `id, ws_id, full_name, display_name, email, phone, avatar_url,
       birthday, gender, ethnicity, guardian, national_id, address, note,
       balance, created_at`

// postgresWorkspaceUserRepository implements WorkspaceUserRepository using PostgreSQL
type postgresWorkspaceUserRepository struct {
	db *pgxpool.Pool
}

// NewPostgresWorkspaceUserRepository creates a new repository instance
func NewPostgresWorkspaceUserRepository(db *pgxpool.Pool) WorkspaceUserRepository {
	return &postgresWorkspaceUserRepository{db: db}
}

// GetByID retrieves an identity record by id. The record's workspace is
// returned as-is; workspace scoping is validated by the service layer so
// cross-workspace ids surface as ErrInvalidInput instead of ErrNotFound.
func (r *postgresWorkspaceUserRepository) GetByID(ctx context.Context, userID string) (*domain.WorkspaceUser, error) {
	query := fmt.Sprintf(`SELECT %s FROM workspace_users WHERE id = $1`, userColumns)

	user, err := scanUser(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return nil, classify(fmt.Errorf("failed to get user %s: %w", userID, err))
	}
	return user, nil
}

// ListByWorkspace retrieves every identity record owned by a workspace,
// ordered by creation time so duplicate groups come out deterministic.
func (r *postgresWorkspaceUserRepository) ListByWorkspace(ctx context.Context, wsID string) ([]domain.WorkspaceUser, error) {
	query := fmt.Sprintf(`SELECT %s FROM workspace_users WHERE ws_id = $1 ORDER BY created_at, id`, userColumns)

	rows, err := r.db.Query(ctx, query, wsID)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list workspace users: %w", err))
	}
	defer rows.Close()

	var users []domain.WorkspaceUser
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, classify(fmt.Errorf("failed to scan workspace user: %w", err))
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to list workspace users: %w", err))
	}
	return users, nil
}

// scanUser reads one workspace_users row in userColumns order.
func scanUser(row pgx.Row) (*domain.WorkspaceUser, error) {
	var u domain.WorkspaceUser
	err := row.Scan(
		&u.ID,
		&u.WorkspaceID,
		&u.FullName,
		&u.DisplayName,
		&u.Email,
		&u.Phone,
		&u.AvatarURL,
		&u.Birthday,
		&u.Gender,
		&u.Ethnicity,
		&u.Guardian,
		&u.NationalID,
		&u.Address,
		&u.Note,
		&u.Balance,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
