package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shaiso/QCSched/internal/domain"
)

const performanceColumns = `id, schedule_id, completed_at, counts_for_scheduling, valid,
		       comment, idempotency_key, created_at`

// PerformanceRepo — репозиторий для истории выполнений.
type PerformanceRepo struct {
	db DB
}

// NewPerformanceRepo создаёт новый PerformanceRepo.
func NewPerformanceRepo(db DB) *PerformanceRepo {
	return &PerformanceRepo{db: db}
}

// Create сохраняет запись о выполнении.
// ErrAlreadyExists, если запись с таким idempotency_key уже есть.
func (r *PerformanceRepo) Create(ctx context.Context, p *domain.PerformanceRecord) error {
	query := `
		INSERT INTO performance_records (id, schedule_id, completed_at, counts_for_scheduling,
		                                 valid, comment, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.ScheduleID,
		p.CompletedAt,
		p.CountsForScheduling,
		p.Valid,
		nullString(p.Comment),
		nullString(p.IdempotencyKey),
		p.CreatedAt,
	)
	if err != nil {
		return mapPgError(err, "insert performance record")
	}
	return nil
}

// GetByID возвращает запись по ID.
func (r *PerformanceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PerformanceRecord, error) {
	query := `SELECT ` + performanceColumns + ` FROM performance_records WHERE id = $1`
	return scanPerformance(r.db.QueryRow(ctx, query, id))
}

// ListBySchedule возвращает историю выполнений, новые первыми.
func (r *PerformanceRepo) ListBySchedule(ctx context.Context, scheduleID uuid.UUID, limit int) ([]domain.PerformanceRecord, error) {
	query := `
		SELECT ` + performanceColumns + `
		FROM performance_records
		WHERE schedule_id = $1
		ORDER BY completed_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, scheduleID, limit)
	if err != nil {
		return nil, fmt.Errorf("list performance records: %w", err)
	}
	defer rows.Close()

	var records []domain.PerformanceRecord
	for rows.Next() {
		p, err := scanPerformance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *p)
	}
	return records, rows.Err()
}

// LatestQualifying возвращает последнюю засчитываемую запись
// (counts_for_scheduling AND valid). ErrNotFound, если таких нет.
func (r *PerformanceRepo) LatestQualifying(ctx context.Context, scheduleID uuid.UUID) (*domain.PerformanceRecord, error) {
	query := `
		SELECT ` + performanceColumns + `
		FROM performance_records
		WHERE schedule_id = $1 AND counts_for_scheduling AND valid
		ORDER BY completed_at DESC
		LIMIT 1
	`
	return scanPerformance(r.db.QueryRow(ctx, query, scheduleID))
}

// SetValid меняет флаг valid и возвращает обновлённую запись.
func (r *PerformanceRepo) SetValid(ctx context.Context, id uuid.UUID, valid bool) (*domain.PerformanceRecord, error) {
	query := `
		UPDATE performance_records SET valid = $2
		WHERE id = $1
		RETURNING ` + performanceColumns
	return scanPerformance(r.db.QueryRow(ctx, query, id, valid))
}

func scanPerformance(row pgx.Row) (*domain.PerformanceRecord, error) {
	var p domain.PerformanceRecord
	var comment, key *string

	err := row.Scan(
		&p.ID,
		&p.ScheduleID,
		&p.CompletedAt,
		&p.CountsForScheduling,
		&p.Valid,
		&comment,
		&key,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan performance record: %w", err)
	}

	p.Comment = deref(comment)
	p.IdempotencyKey = deref(key)
	return &p, nil
}
