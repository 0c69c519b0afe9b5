package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatlq1812/identity-service/internal/domain"
)

func emailGroup(users ...*domain.WorkspaceUser) domain.DuplicateGroup {
	group := domain.DuplicateGroup{Field: domain.DuplicateEmail, Key: "a@x.com"}
	for _, u := range users {
		group.Users = append(group.Users, *u)
	}
	return group
}

func TestPlanMerges_Oldest(t *testing.T) {
	group := emailGroup(
		testUser("b", "ws1", 2*time.Hour),
		testUser("a", "ws1", 0),
		testUser("c", "ws1", time.Hour),
	)

	pairs, err := PlanMerges(group, domain.SelectOldest)
	require.NoError(t, err)

	require.Len(t, pairs, 2)
	assert.Equal(t, "a", pairs[0].KeepUserID)
	assert.Equal(t, "a", pairs[1].KeepUserID)
	assert.ElementsMatch(t, []string{"b", "c"},
		[]string{pairs[0].DeleteUserID, pairs[1].DeleteUserID})
}

func TestPlanMerges_Newest(t *testing.T) {
	group := emailGroup(
		testUser("a", "ws1", 0),
		testUser("b", "ws1", 2*time.Hour),
		testUser("c", "ws1", time.Hour),
	)

	pairs, err := PlanMerges(group, domain.SelectNewest)
	require.NoError(t, err)

	require.Len(t, pairs, 2)
	assert.Equal(t, "b", pairs[0].KeepUserID)
}

func TestPlanMerges_MostData(t *testing.T) {
	group := emailGroup(
		testUser("sparse", "ws1", 0, withEmail("a@x.com")),
		testUser("rich", "ws1", time.Hour,
			withEmail("a@x.com"), withName("Rich"), withPhone("0901"), withNote("n")),
		testUser("mid", "ws1", 2*time.Hour, withEmail("a@x.com"), withName("Mid")),
	)

	pairs, err := PlanMerges(group, domain.SelectMostData)
	require.NoError(t, err)

	require.Len(t, pairs, 2)
	assert.Equal(t, "rich", pairs[0].KeepUserID)
}

func TestPlanMerges_MostDataTieKeepsEarliestCreated(t *testing.T) {
	// Three users share an email; two tie on filled-field count. The
	// earlier-created of the tied users must win regardless of input order.
	group := emailGroup(
		testUser("late", "ws1", 3*time.Hour, withEmail("a@x.com"), withName("Late")),
		testUser("early", "ws1", time.Hour, withEmail("a@x.com"), withName("Early")),
		testUser("sparse", "ws1", 0, withEmail("a@x.com")),
	)

	pairs, err := PlanMerges(group, domain.SelectMostData)
	require.NoError(t, err)

	require.Len(t, pairs, 2)
	assert.Equal(t, "early", pairs[0].KeepUserID)
	assert.Equal(t, "early", pairs[1].KeepUserID)
}

func TestPlanMerges_Pure(t *testing.T) {
	group := emailGroup(
		testUser("a", "ws1", time.Hour),
		testUser("b", "ws1", 0),
		testUser("c", "ws1", 2*time.Hour),
	)
	originalOrder := []string{group.Users[0].ID, group.Users[1].ID, group.Users[2].ID}

	first, err := PlanMerges(group, domain.SelectOldest)
	require.NoError(t, err)
	second, err := PlanMerges(group, domain.SelectOldest)
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical inputs must yield identical pairs")

	// the input group must not be mutated
	for i, id := range originalOrder {
		assert.Equal(t, id, group.Users[i].ID)
	}
}

func TestPlanMerges_RejectsSmallGroups(t *testing.T) {
	group := emailGroup(testUser("a", "ws1", 0))

	_, err := PlanMerges(group, domain.SelectOldest)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPlanMerges_RejectsUnknownPolicy(t *testing.T) {
	group := emailGroup(testUser("a", "ws1", 0), testUser("b", "ws1", time.Hour))

	_, err := PlanMerges(group, domain.AutoSelectPolicy("best_guess"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
