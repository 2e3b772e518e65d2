package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Sentinel errors returned by this package. Drivers differ in how they report
// constraint failures; translateError normalizes them to these values.
var (
	// ErrNotFound is returned when a requested record does not exist.
	// It aliases gorm.ErrRecordNotFound for convenience and consistency
	// across the service layer and handlers.
	ErrNotFound = gorm.ErrRecordNotFound

	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate")

	// ErrConstraint indicates any other integrity violation (NOT NULL, CHECK,
	// value too long, foreign key).
	ErrConstraint = errors.New("constraint violation")
)

// PostgreSQL SQLSTATE codes mapped by translateError.
const (
	pgUniqueViolation     = "23505"
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgStringTooLong       = "22001"
)

// translateError maps driver errors onto the package sentinels. Unknown errors
// are returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case pgNotNullViolation, pgForeignKeyViolation, pgCheckViolation, pgStringTooLong:
			return fmt.Errorf("%w: %s", ErrConstraint, pgErr.Message)
		}
		return err
	}

	// glebarez/sqlite reports constraint failures as plain text.
	low := strings.ToLower(err.Error())
	switch {
	case strings.Contains(low, "unique constraint failed"),
		strings.Contains(low, "constraint failed: unique"):
		return fmt.Errorf("%w: %s", ErrDuplicate, err.Error())
	case strings.Contains(low, "constraint failed"):
		return fmt.Errorf("%w: %s", ErrConstraint, err.Error())
	}
	return err
}
