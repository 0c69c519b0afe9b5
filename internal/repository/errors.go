package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/thatlq1812/identity-service/internal/domain"
)

// classify maps low-level pgx errors onto the domain error taxonomy so the
// service layer can branch with errors.Is. Errors already carrying a domain
// sentinel pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		domain.ErrNotFound,
		domain.ErrInvalidInput,
		domain.ErrConflict,
		domain.ErrConstraintViolation,
		domain.ErrTransient,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%v: %w", err, domain.ErrNotFound)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%v: %w", err, domain.ErrTransient)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		// lock_not_available, serialization_failure, deadlock_detected
		case pgErr.Code == "55P03" || pgErr.Code == "40001" || pgErr.Code == "40P01":
			return fmt.Errorf("%s: %w", pgErr.Message, domain.ErrConflict)
		// integrity_constraint_violation class
		case strings.HasPrefix(pgErr.Code, "23"):
			return fmt.Errorf("%s (table %q, constraint %q): %w",
				pgErr.Message, pgErr.TableName, pgErr.ConstraintName, domain.ErrConstraintViolation)
		// connection_exception, insufficient_resources, operator_intervention
		case strings.HasPrefix(pgErr.Code, "08") ||
			strings.HasPrefix(pgErr.Code, "53") ||
			strings.HasPrefix(pgErr.Code, "57"):
			return fmt.Errorf("%s: %w", pgErr.Message, domain.ErrTransient)
		}
		return err
	}

	if pgconn.SafeToRetry(err) {
		return fmt.Errorf("%v: %w", err, domain.ErrTransient)
	}
	return err
}
