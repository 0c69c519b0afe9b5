package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/thatlq1812/identity-service/internal/domain"
)

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func testUser(id, wsID string, createdOffset time.Duration, mut ...func(*domain.WorkspaceUser)) *domain.WorkspaceUser {
	u := &domain.WorkspaceUser{
		ID:          id,
		WorkspaceID: wsID,
		Balance:     decimal.Zero,
		CreatedAt:   baseTime.Add(createdOffset),
	}
	for _, m := range mut {
		m(u)
	}
	return u
}

func withEmail(email string) func(*domain.WorkspaceUser) {
	return func(u *domain.WorkspaceUser) { u.Email = &email }
}

func withPhone(phone string) func(*domain.WorkspaceUser) {
	return func(u *domain.WorkspaceUser) { u.Phone = &phone }
}

func withName(name string) func(*domain.WorkspaceUser) {
	return func(u *domain.WorkspaceUser) { u.FullName = &name }
}

func withNote(note string) func(*domain.WorkspaceUser) {
	return func(u *domain.WorkspaceUser) { u.Note = &note }
}

func withNationalID(id string) func(*domain.WorkspaceUser) {
	return func(u *domain.WorkspaceUser) { u.NationalID = &id }
}

func withBalance(units int64) func(*domain.WorkspaceUser) {
	return func(u *domain.WorkspaceUser) { u.Balance = decimal.NewFromInt(units) }
}
