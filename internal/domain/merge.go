package domain

import "time"

// DuplicateField is the identity attribute two records may collide on.
type DuplicateField string

const (
	DuplicateEmail DuplicateField = "email"
	DuplicatePhone DuplicateField = "phone"
)

// ScanScope filters which attributes a duplicate scan considers.
type ScanScope string

const (
	ScanAll   ScanScope = "all"
	ScanEmail ScanScope = "email"
	ScanPhone ScanScope = "phone"
)

// AutoSelectPolicy decides which member of a duplicate group survives.
type AutoSelectPolicy string

const (
	// SelectOldest keeps the earliest-created record
	SelectOldest AutoSelectPolicy = "oldest"
	// SelectNewest keeps the latest-created record
	SelectNewest AutoSelectPolicy = "newest"
	// SelectMostData keeps the record with the most filled allow-list
	// fields; ties fall back to the earliest-created record
	SelectMostData AutoSelectPolicy = "most_data"
)

// BalanceStrategy reconciles the numeric balance across a merge.
type BalanceStrategy string

const (
	// BalanceKeep leaves the keep record's balance unchanged
	BalanceKeep BalanceStrategy = "keep"
	// BalanceAdd sums both balances onto the keep record
	BalanceAdd BalanceStrategy = "add"
)

// FieldChoice selects which side of a merge pair a field value comes from.
type FieldChoice string

const (
	ChooseKeep   FieldChoice = "keep"
	ChooseDelete FieldChoice = "delete"
)

// FieldStrategy maps allow-listed fields to the side whose value survives.
// Unlisted fields default to "keep", i.e. no overwrite.
type FieldStrategy map[MergeField]FieldChoice

// DuplicateGroup is a set of ≥2 identity records sharing a normalized key.
// Groups are ephemeral: recomputed on demand, never persisted.
type DuplicateGroup struct {
	Field DuplicateField `json:"duplicateField"`
	Key   string         `json:"duplicateKey"`
	// Users is ordered by creation time ascending so the planner's
	// stable-order tie breaking is deterministic.
	Users []WorkspaceUser `json:"users"`
	// SuggestedKeepID is the member the "oldest" policy would keep.
	SuggestedKeepID string `json:"suggestedKeepId"`
}

// MergePair assigns keep/delete roles to exactly two identity records.
type MergePair struct {
	KeepUserID   string `json:"keepUserId"`
	DeleteUserID string `json:"deleteUserId"`
}

// MergeRequest carries everything a single merge execution needs.
type MergeRequest struct {
	WorkspaceID     string
	KeepUserID      string
	DeleteUserID    string
	FieldStrategy   FieldStrategy
	BalanceStrategy BalanceStrategy
	Actor           string
}

// FieldComparison is one row of a preview's field-by-field table.
type FieldComparison struct {
	Field       MergeField `json:"field"`
	KeepValue   string     `json:"keepValue,omitempty"`
	DeleteValue string     `json:"deleteValue,omitempty"`
	// Conflict means both sides hold differing non-null values and an
	// operator choice is required
	Conflict bool `json:"conflict"`
	// AutoResolved means exactly one side holds data, so the merged value
	// is unambiguous
	AutoResolved bool `json:"autoResolved"`
}

// AffectedRelation counts dependent rows referencing the delete-side record
// through one table/column pair.
type AffectedRelation struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Rows   int64  `json:"rows"`
}

// MergePreview is a read-only, advisory report for one merge pair. The
// executor re-validates everything at execution time.
type MergePreview struct {
	KeepUser             WorkspaceUser      `json:"keepUser"`
	DeleteUser           WorkspaceUser      `json:"deleteUser"`
	Fields               []FieldComparison  `json:"fields"`
	AffectedRelations    []AffectedRelation `json:"affectedRelations"`
	Warnings             []string           `json:"warnings"`
	TotalAffectedRecords int64              `json:"totalAffectedRecords"`
}

// BulkPairPreview is the per-pair slice of a bulk preview; detail beyond the
// affected-row total stays in the single-pair preview.
type BulkPairPreview struct {
	KeepUserID      string `json:"keepUserId"`
	DeleteUserID    string `json:"deleteUserId"`
	AffectedRecords int64  `json:"affectedRecords"`
}

// BulkMergePreview aggregates N independent pair previews.
type BulkMergePreview struct {
	Pairs                []BulkPairPreview `json:"pairs"`
	Warnings             []string          `json:"warnings"`
	TotalAffectedRecords int64             `json:"totalAffectedRecords"`
}

// RelationOutcome reports what the repoint step did to one dependent
// relation: rows moved to the keep record, and rows dropped because moving
// them would have violated a uniqueness constraint.
type RelationOutcome struct {
	Table         string `json:"table"`
	Column        string `json:"column"`
	RepointedRows int64  `json:"repointedRows"`
	SkippedRows   int64  `json:"skippedRows"`
}

// MergeResult is the authoritative outcome of one committed merge.
type MergeResult struct {
	KeepUserID      string            `json:"keepUserId"`
	DeleteUserID    string            `json:"deleteUserId"`
	Relations       []RelationOutcome `json:"relations"`
	LinkTransferred bool              `json:"linkTransferred"`
	MergedAt        time.Time         `json:"mergedAt"`
}

// PairOutcome records how one pair of a bulk merge ended.
type PairOutcome struct {
	// Pair is the pair as submitted; ResolvedKeepUserID differs from
	// Pair.KeepUserID when transitive resolution rewrote the chain
	Pair               MergePair `json:"pair"`
	ResolvedKeepUserID string    `json:"resolvedKeepUserId"`
	Success            bool      `json:"success"`
	Reason             string    `json:"reason,omitempty"`
}

// BulkMergeResult summarizes a batch. Failures are isolated per pair; a
// failed pair never blocks the rest of the batch.
type BulkMergeResult struct {
	SuccessCount int           `json:"successCount"`
	FailureCount int           `json:"failureCount"`
	Outcomes     []PairOutcome `json:"outcomes"`
}

// AuditEntry is written inside the merge transaction for every successful
// merge.
type AuditEntry struct {
	ID              string          `db:"id"`
	WorkspaceID     string          `db:"ws_id"`
	KeepUserID      string          `db:"keep_user_id"`
	DeleteUserID    string          `db:"delete_user_id"`
	FieldStrategy   FieldStrategy   `db:"field_strategy"`
	BalanceStrategy BalanceStrategy `db:"balance_strategy"`
	Actor           string          `db:"actor"`
	MergedAt        time.Time       `db:"merged_at"`
}
