package postgres

import (
	"errors"
	"fmt"

	"farmDirect/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgSerializationFail   = "40001"
	pgDeadlockDetected    = "40P01"
)

// translate classifies driver errors. notFound and conflict are the client
// messages used for missing rows and unique violations.
func translate(err error, notFound, conflict string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound(notFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domain.WrapError(domain.ErrConflict, conflict, err)
		case pgForeignKeyViolation:
			return domain.WrapError(domain.ErrConflict, "resource is still referenced by other records", err)
		case pgCheckViolation:
			return domain.WrapError(domain.ErrConflict, "stock constraint violated, please retry", err)
		case pgSerializationFail, pgDeadlockDetected:
			return domain.WrapError(domain.ErrConflict, "concurrent update detected, please retry", err)
		}
	}

	return err
}

func wrap(err error, msg string) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}

	return fmt.Errorf("%s: %w", msg, err)
}
