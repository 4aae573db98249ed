package repo

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись уже существует (конфликт уникальности).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState — операция невозможна в текущем состоянии.
	// Например, удаление частоты, на которую ссылаются schedules.
	ErrInvalidState = errors.New("invalid state")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapPgError переводит ошибки ограничений PostgreSQL в ошибки репозитория,
// остальные оборачивает с контекстом op.
func mapPgError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, ErrInvalidState)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
