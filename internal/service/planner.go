package service

import (
	"fmt"
	"sort"

	"github.com/thatlq1812/identity-service/internal/domain"
)

// PlanMerges turns a duplicate group plus an auto-select policy into
// concrete keep/delete pairs. The first member after sorting keeps; every
// other member is scheduled for deletion, producing |users|-1 pairs.
//
// Pure function: identical inputs always yield identical pairs. The input
// group is never mutated.
func PlanMerges(group domain.DuplicateGroup, policy domain.AutoSelectPolicy) ([]domain.MergePair, error) {
	if len(group.Users) < 2 {
		return nil, fmt.Errorf("duplicate group needs at least 2 members, got %d: %w",
			len(group.Users), domain.ErrInvalidInput)
	}

	sorted := make([]domain.WorkspaceUser, len(group.Users))
	copy(sorted, group.Users)

	switch policy {
	case domain.SelectOldest:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		})
	case domain.SelectNewest:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		})
	case domain.SelectMostData:
		// Rank by filled allow-list fields; ties go to the earlier-created
		// record, then to stable input order.
		sort.SliceStable(sorted, func(i, j int) bool {
			ci, cj := sorted[i].FilledFieldCount(), sorted[j].FilledFieldCount()
			if ci != cj {
				return ci > cj
			}
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		})
	default:
		return nil, fmt.Errorf("unknown auto-select policy %q: %w", policy, domain.ErrInvalidInput)
	}

	keep := sorted[0]
	pairs := make([]domain.MergePair, 0, len(sorted)-1)
	for _, u := range sorted[1:] {
		pairs = append(pairs, domain.MergePair{
			KeepUserID:   keep.ID,
			DeleteUserID: u.ID,
		})
	}
	return pairs, nil
}
