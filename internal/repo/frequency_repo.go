package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shaiso/QCSched/internal/domain"
	"github.com/shaiso/QCSched/internal/recurrence"
)

const frequencyColumns = `id, name, slug, recurrence, window_start, window_end,
		       nominal_interval, created_at, updated_at`

// FrequencyRepo — репозиторий для работы с frequencies.
type FrequencyRepo struct {
	db DB
}

// NewFrequencyRepo создаёт новый FrequencyRepo.
func NewFrequencyRepo(db DB) *FrequencyRepo {
	return &FrequencyRepo{db: db}
}

// Create создаёт новую частоту.
func (r *FrequencyRepo) Create(ctx context.Context, f *domain.Frequency) error {
	query := `
		INSERT INTO frequencies (id, name, slug, recurrence, window_start, window_end,
		                         nominal_interval, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		f.ID,
		f.Name,
		f.Slug,
		f.Recurrence.String(),
		f.WindowStart,
		f.WindowEnd,
		f.NominalInterval,
		f.CreatedAt,
		f.UpdatedAt,
	)
	if err != nil {
		return mapPgError(err, "insert frequency")
	}
	return nil
}

// GetByID возвращает частоту по ID.
func (r *FrequencyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Frequency, error) {
	query := `SELECT ` + frequencyColumns + ` FROM frequencies WHERE id = $1`
	return scanFrequency(r.db.QueryRow(ctx, query, id))
}

// GetBySlug возвращает частоту по slug.
func (r *FrequencyRepo) GetBySlug(ctx context.Context, slug string) (*domain.Frequency, error) {
	query := `SELECT ` + frequencyColumns + ` FROM frequencies WHERE slug = $1`
	return scanFrequency(r.db.QueryRow(ctx, query, slug))
}

// List возвращает все частоты, от самых частых к самым редким.
func (r *FrequencyRepo) List(ctx context.Context) ([]domain.Frequency, error) {
	query := `SELECT ` + frequencyColumns + ` FROM frequencies ORDER BY nominal_interval ASC, name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list frequencies: %w", err)
	}
	defer rows.Close()

	var frequencies []domain.Frequency
	for rows.Next() {
		f, err := scanFrequency(rows)
		if err != nil {
			return nil, err
		}
		frequencies = append(frequencies, *f)
	}
	return frequencies, rows.Err()
}

// Update обновляет частоту.
func (r *FrequencyRepo) Update(ctx context.Context, f *domain.Frequency) error {
	query := `
		UPDATE frequencies
		SET name = $2, slug = $3, recurrence = $4, window_start = $5, window_end = $6,
		    nominal_interval = $7, updated_at = $8
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		f.ID,
		f.Name,
		f.Slug,
		f.Recurrence.String(),
		f.WindowStart,
		f.WindowEnd,
		f.NominalInterval,
		f.UpdatedAt,
	)
	if err != nil {
		return mapPgError(err, "update frequency")
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет частоту. ErrInvalidState, если на неё ссылаются schedules.
func (r *FrequencyRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM frequencies WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err, "delete frequency")
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanFrequency(row pgx.Row) (*domain.Frequency, error) {
	var f domain.Frequency
	var rule string

	err := row.Scan(
		&f.ID,
		&f.Name,
		&f.Slug,
		&rule,
		&f.WindowStart,
		&f.WindowEnd,
		&f.NominalInterval,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan frequency: %w", err)
	}

	f.Recurrence, err = recurrence.Parse(rule)
	if err != nil {
		return nil, fmt.Errorf("frequency %s: %w", f.Slug, err)
	}
	return &f, nil
}
