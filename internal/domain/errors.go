package domain

import "errors"

// Sentinel errors for the Identity Merge Service
// These errors should be checked using errors.Is() instead of string matching
var (
	// ErrNotFound indicates the requested record was not found (it may have
	// been merged away since it was listed; callers should re-scan and retry)
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput indicates validation failure on input parameters
	// (self-merge, cross-workspace ids, malformed request); never retried
	ErrInvalidInput = errors.New("invalid input parameters")

	// ErrConflict indicates the record is locked by another in-flight merge
	// or is otherwise in a conflicting state; safe to retry after a delay
	ErrConflict = errors.New("conflicting merge in progress")

	// ErrConstraintViolation indicates an unexpected FK/unique constraint
	// failure inside a merge transaction; fatal, never auto-retried
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrTransient indicates the datastore is unavailable; the caller may
	// retry with backoff
	ErrTransient = errors.New("transient storage error")
)
