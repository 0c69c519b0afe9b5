package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/thatlq1812/identity-service/internal/domain"
	"github.com/thatlq1812/identity-service/internal/repository"
)

// DuplicateScanner finds groups of identity records sharing a normalized
// email or phone within a workspace. Groups are recomputed on every call and
// never persisted, so a record merged away can never reappear in a later
// scan.
type DuplicateScanner struct {
	users  repository.WorkspaceUserRepository
	logger *zap.Logger
}

// NewDuplicateScanner creates a new scanner instance
func NewDuplicateScanner(users repository.WorkspaceUserRepository, logger *zap.Logger) *DuplicateScanner {
	return &DuplicateScanner{users: users, logger: logger}
}

// ScanDuplicates groups wsID's records by (field, normalized key) and keeps
// only keys with at least two members. Output ordering is deterministic:
// group size descending, then key ascending. A datastore failure yields an
// empty group list and a wrapped ErrTransient instead of a partial list.
func (s *DuplicateScanner) ScanDuplicates(ctx context.Context, wsID string, scope domain.ScanScope) ([]domain.DuplicateGroup, error) {
	if wsID == "" {
		return nil, fmt.Errorf("workspace id is required: %w", domain.ErrInvalidInput)
	}
	switch scope {
	case domain.ScanAll, domain.ScanEmail, domain.ScanPhone:
	default:
		return nil, fmt.Errorf("unknown scan scope %q: %w", scope, domain.ErrInvalidInput)
	}

	users, err := s.users.ListByWorkspace(ctx, wsID)
	if err != nil {
		s.logger.Warn("duplicate scan aborted",
			zap.String("ws_id", wsID),
			zap.Error(err))
		return []domain.DuplicateGroup{}, fmt.Errorf("failed to scan workspace %s: %w", wsID, domain.ErrTransient)
	}

	groups := make([]domain.DuplicateGroup, 0)
	if scope == domain.ScanAll || scope == domain.ScanEmail {
		groups = append(groups, groupBy(users, domain.DuplicateEmail)...)
	}
	if scope == domain.ScanAll || scope == domain.ScanPhone {
		groups = append(groups, groupBy(users, domain.DuplicatePhone)...)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i].Users) != len(groups[j].Users) {
			return len(groups[i].Users) > len(groups[j].Users)
		}
		return groups[i].Key < groups[j].Key
	})

	s.logger.Debug("duplicate scan complete",
		zap.String("ws_id", wsID),
		zap.String("scope", string(scope)),
		zap.Int("groups", len(groups)))
	return groups, nil
}

// groupBy buckets users by one normalized attribute. The input arrives
// ordered by creation time, so members inside each group stay in creation
// order and the first member doubles as the "oldest" suggestion.
func groupBy(users []domain.WorkspaceUser, field domain.DuplicateField) []domain.DuplicateGroup {
	buckets := make(map[string][]domain.WorkspaceUser)
	keys := make([]string, 0)

	for _, u := range users {
		key := normalizedKey(&u, field)
		if key == "" {
			continue
		}
		if _, seen := buckets[key]; !seen {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], u)
	}

	groups := make([]domain.DuplicateGroup, 0)
	for _, key := range keys {
		members := buckets[key]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, domain.DuplicateGroup{
			Field:           field,
			Key:             key,
			Users:           members,
			SuggestedKeepID: members[0].ID,
		})
	}
	return groups
}

func normalizedKey(u *domain.WorkspaceUser, field domain.DuplicateField) string {
	switch field {
	case domain.DuplicateEmail:
		if u.Email == nil {
			return ""
		}
		return domain.NormalizeEmail(*u.Email)
	case domain.DuplicatePhone:
		if u.Phone == nil {
			return ""
		}
		return domain.NormalizePhone(*u.Phone)
	}
	return ""
}
