package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// Unique constraints on users, as named by Postgres for the inline UNIQUE columns.
const (
	UsersUsernameKey = "users_username_key"
	UsersEmailKey    = "users_email_key"
)

// DuplicateError is a unique violation on a named constraint. It matches ErrDuplicate.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	if e.Constraint == "" {
		return ErrDuplicate.Error()
	}
	return ErrDuplicate.Error() + " (" + e.Constraint + ")"
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// mapError converts driver errors to the package sentinels so services can
// match them with errors.Is without knowing about GORM or pgx.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &DuplicateError{Constraint: pgErr.ConstraintName}
	}
	return err
}

// IsDuplicate reports whether err is a unique constraint failure.
func IsDuplicate(err error) bool {
	return errors.Is(mapError(err), ErrDuplicate)
}

// DuplicateConstraint returns the constraint a unique violation hit, or "".
func DuplicateConstraint(err error) string {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup.Constraint
	}
	return ""
}
