package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/thatlq1812/identity-service/internal/domain"
	"github.com/thatlq1812/identity-service/internal/repository"
)

// fakeUserRepo implements repository.WorkspaceUserRepository over a map.
type fakeUserRepo struct {
	users   map[string]*domain.WorkspaceUser
	listErr error
}

func newFakeUserRepo(users ...*domain.WorkspaceUser) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*domain.WorkspaceUser)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(_ context.Context, userID string) (*domain.WorkspaceUser, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return u.Clone(), nil
}

func (r *fakeUserRepo) ListByWorkspace(_ context.Context, wsID string) ([]domain.WorkspaceUser, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.WorkspaceUser
	for _, u := range r.users {
		if u.WorkspaceID == wsID {
			out = append(out, *u.Clone())
		}
	}
	// creation order, like the Postgres repository
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// fakeRefRepo implements repository.ReferenceRepository.
type fakeRefRepo struct {
	counts map[string][]domain.AffectedRelation // userID -> counts
	links  map[string]string                    // userID -> platform user id
}

func newFakeRefRepo() *fakeRefRepo {
	return &fakeRefRepo{
		counts: make(map[string][]domain.AffectedRelation),
		links:  make(map[string]string),
	}
}

func (r *fakeRefRepo) CountReferences(_ context.Context, userID string) ([]domain.AffectedRelation, error) {
	return r.counts[userID], nil
}

func (r *fakeRefRepo) PlatformUserID(_ context.Context, userID string) (*string, error) {
	if link, ok := r.links[userID]; ok {
		return &link, nil
	}
	return nil, nil
}

// refRow is one dependent-table row in the fake store.
type refRow struct {
	table   string
	column  string
	userID  string
	confKey string // value of the uniqueness-constraint partner column, "" when none
}

// fakeStore implements repository.MergeStore with staged writes: mutations
// apply to a deep copy and land on the real state only when the transaction
// callback returns nil, mirroring commit/rollback.
type fakeStore struct {
	users  map[string]*domain.WorkspaceUser
	rows   []refRow
	links  map[string]string // virtual user id -> platform user id
	audits []domain.AuditEntry

	lockedIDs   map[string]bool  // ids held by a concurrent merge
	failRepoint error            // injected failure at the repoint step
	failDelete  map[string]error // injected failure when deleting a given id

	txCalls int
}

func newFakeStore(users ...*domain.WorkspaceUser) *fakeStore {
	s := &fakeStore{
		users:      make(map[string]*domain.WorkspaceUser),
		links:      make(map[string]string),
		lockedIDs:  make(map[string]bool),
		failDelete: make(map[string]error),
	}
	for _, u := range users {
		s.users[u.ID] = u.Clone()
	}
	return s
}

type fakeSnapshot struct {
	users  map[string]domain.WorkspaceUser
	rows   []refRow
	links  map[string]string
	audits []domain.AuditEntry
}

func (s *fakeStore) snapshot() fakeSnapshot {
	snap := fakeSnapshot{
		users: make(map[string]domain.WorkspaceUser, len(s.users)),
		rows:  append([]refRow(nil), s.rows...),
		links: make(map[string]string, len(s.links)),
	}
	for id, u := range s.users {
		snap.users[id] = *u.Clone()
	}
	for k, v := range s.links {
		snap.links[k] = v
	}
	snap.audits = append(snap.audits, s.audits...)
	return snap
}

func (s *fakeStore) WithTx(_ context.Context, fn func(tx repository.MergeTx) error) error {
	s.txCalls++

	staged := &fakeStore{
		users:       make(map[string]*domain.WorkspaceUser, len(s.users)),
		rows:        append([]refRow(nil), s.rows...),
		links:       make(map[string]string, len(s.links)),
		audits:      append([]domain.AuditEntry(nil), s.audits...),
		lockedIDs:   s.lockedIDs,
		failRepoint: s.failRepoint,
		failDelete:  s.failDelete,
	}
	for id, u := range s.users {
		staged.users[id] = u.Clone()
	}
	for k, v := range s.links {
		staged.links[k] = v
	}

	if err := fn(&fakeTx{st: staged}); err != nil {
		return err // staged copy discarded: rollback
	}

	s.users = staged.users
	s.rows = staged.rows
	s.links = staged.links
	s.audits = staged.audits
	return nil
}

type fakeTx struct {
	st *fakeStore
}

func (t *fakeTx) TryLockPair(_ context.Context, idA, idB string) (bool, error) {
	return !t.st.lockedIDs[idA] && !t.st.lockedIDs[idB], nil
}

func (t *fakeTx) GetUserForUpdate(_ context.Context, userID string) (*domain.WorkspaceUser, error) {
	u, ok := t.st.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return u.Clone(), nil
}

func (t *fakeTx) UpdateUser(_ context.Context, user *domain.WorkspaceUser) error {
	if _, ok := t.st.users[user.ID]; !ok {
		return fmt.Errorf("user %s: %w", user.ID, domain.ErrNotFound)
	}
	t.st.users[user.ID] = user.Clone()
	return nil
}

func (t *fakeTx) RepointReferences(_ context.Context, fromID, toID string) ([]domain.RelationOutcome, error) {
	if t.st.failRepoint != nil {
		return nil, t.st.failRepoint
	}

	byRelation := make(map[string]*domain.RelationOutcome)
	order := make([]string, 0)
	outcomeFor := func(table, column string) *domain.RelationOutcome {
		key := table + "." + column
		if o, ok := byRelation[key]; ok {
			return o
		}
		o := &domain.RelationOutcome{Table: table, Column: column}
		byRelation[key] = o
		order = append(order, key)
		return o
	}

	kept := t.st.rows[:0:0]
	for _, row := range t.st.rows {
		if row.userID != fromID {
			kept = append(kept, row)
			continue
		}
		o := outcomeFor(row.table, row.column)
		if row.confKey != "" && hasRow(t.st.rows, row.table, row.column, toID, row.confKey) {
			o.SkippedRows++ // uniqueness collision: drop instead of repoint
			continue
		}
		row.userID = toID
		kept = append(kept, row)
		o.RepointedRows++
	}
	t.st.rows = kept

	outcomes := make([]domain.RelationOutcome, 0, len(order))
	for _, key := range order {
		outcomes = append(outcomes, *byRelation[key])
	}
	return outcomes, nil
}

func hasRow(rows []refRow, table, column, userID, confKey string) bool {
	for _, r := range rows {
		if r.table == table && r.column == column && r.userID == userID && r.confKey == confKey {
			return true
		}
	}
	return false
}

func (t *fakeTx) PlatformUserID(_ context.Context, userID string) (*string, error) {
	if link, ok := t.st.links[userID]; ok {
		return &link, nil
	}
	return nil, nil
}

func (t *fakeTx) TransferPlatformLink(_ context.Context, fromID, toID string) (bool, error) {
	platformID, ok := t.st.links[fromID]
	if !ok {
		return false, nil
	}
	delete(t.st.links, fromID)
	if _, keepLinked := t.st.links[toID]; keepLinked {
		return false, nil
	}
	t.st.links[toID] = platformID
	return true, nil
}

func (t *fakeTx) DeleteUser(_ context.Context, userID string) error {
	if err := t.st.failDelete[userID]; err != nil {
		return err
	}
	if _, ok := t.st.users[userID]; !ok {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	delete(t.st.users, userID)
	return nil
}

func (t *fakeTx) InsertAudit(_ context.Context, entry *domain.AuditEntry) error {
	t.st.audits = append(t.st.audits, *entry)
	return nil
}
