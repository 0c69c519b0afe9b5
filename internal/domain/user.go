package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WorkspaceUser represents an identity record owned by a workspace.
// Rows are mutated only through normal CRUD or the merge executor.
type WorkspaceUser struct {
	ID          string          `db:"id" json:"id"`
	WorkspaceID string          `db:"ws_id" json:"wsId"`
	FullName    *string         `db:"full_name" json:"full_name,omitempty"`
	DisplayName *string         `db:"display_name" json:"display_name,omitempty"`
	Email       *string         `db:"email" json:"email,omitempty"`
	Phone       *string         `db:"phone" json:"phone,omitempty"`
	AvatarURL   *string         `db:"avatar_url" json:"avatar_url,omitempty"`
	Birthday    *time.Time      `db:"birthday" json:"birthday,omitempty"`
	Gender      *string         `db:"gender" json:"gender,omitempty"`
	Ethnicity   *string         `db:"ethnicity" json:"ethnicity,omitempty"`
	Guardian    *string         `db:"guardian" json:"guardian,omitempty"`
	NationalID  *string         `db:"national_id" json:"national_id,omitempty"`
	Address     *string         `db:"address" json:"address,omitempty"`
	Note        *string         `db:"note" json:"note,omitempty"`
	Balance     decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
