package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	dErrors "memberd/pkg/domain-errors"
)

// pq error classes we translate. Uniqueness and referential failures both
// surface to callers as a conflict.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// MapError translates driver-level failures into domain errors so stores stay
// free of per-call-site switch statements. The message is the caller-facing
// text; the driver error stays wrapped underneath.
func MapError(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, message)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation, codeForeignKeyViolation:
			return dErrors.Wrap(err, dErrors.CodeConflict, message)
		}
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}

// IsUniqueViolation reports whether err is a uniqueness constraint failure on
// the named constraint. Used where one statement can trip several constraints
// and the caller needs to tell them apart (credential issuance).
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == codeUniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
}
