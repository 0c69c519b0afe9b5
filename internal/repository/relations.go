package repository

// Relation describes one dependent table/column pair holding foreign keys to
// workspace_users. The merge executor repoints every relation listed here;
// the previewer counts rows through the same list so preview and execution
// never disagree about the FK closure.
type Relation struct {
	Table  string
	Column string
	// ConflictKey names the column that, together with Column, forms a
	// uniqueness constraint. Rows whose repoint would collide with an
	// existing keep-side row are deleted instead of repointed.
	ConflictKey string
}

// DependentRelations is the foreign-key closure of workspace_users. This
// registry is the single place a deployment extends when the workspace
// schema grows a new reference to identity records.
var DependentRelations = []Relation{
	{Table: "wallet_transactions", Column: "creator_id"},
	{Table: "finance_invoices", Column: "customer_id"},
	{Table: "finance_invoices", Column: "creator_id"},
	{Table: "workspace_user_status_changes", Column: "user_id"},
	{Table: "user_feedbacks", Column: "user_id"},
	{Table: "user_group_posts", Column: "creator_id"},
	{Table: "healthcare_checkups", Column: "patient_id"},
	{Table: "sent_emails", Column: "receiver_id"},
	{Table: "payroll_run_items", Column: "user_id"},
	{Table: "workspace_user_groups_users", Column: "user_id", ConflictKey: "group_id"},
}

// linkedUsersTable holds external login linkage. It is repointed with
// transfer semantics (keep side wins when already linked) rather than the
// generic repoint, so it stays out of DependentRelations.
const (
	linkedUsersTable  = "workspace_user_linked_users"
	linkedUsersColumn = "virtual_user_id"
)
