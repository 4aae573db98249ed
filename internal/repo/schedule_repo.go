package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shaiso/QCSched/internal/domain"
)

const scheduleColumns = `id, name, frequency_id, due_date, auto_schedule, active,
		       assigned_to, created_at, updated_at`

// ScheduleRepo — репозиторий для работы с schedules.
type ScheduleRepo struct {
	db DB
}

// NewScheduleRepo создаёт новый ScheduleRepo.
func NewScheduleRepo(db DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

// Create создаёт новый schedule.
func (r *ScheduleRepo) Create(ctx context.Context, s *domain.Schedule) error {
	query := `
		INSERT INTO schedules (id, name, frequency_id, due_date, auto_schedule, active,
		                       assigned_to, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.Name,
		nullUUID(s.FrequencyID),
		s.DueDate,
		s.AutoSchedule,
		s.Active,
		nullString(s.AssignedTo),
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return mapPgError(err, "insert schedule")
	}
	return nil
}

// GetByID возвращает schedule по ID.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	return scanSchedule(r.db.QueryRow(ctx, query, id))
}

// List возвращает список schedules с фильтрацией.
func (r *ScheduleRepo) List(ctx context.Context, filter ScheduleFilter) ([]domain.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE ($1::uuid IS NULL OR frequency_id = $1)
		  AND ($2::boolean IS NULL OR active = $2)
		ORDER BY due_date ASC NULLS LAST, name ASC
		LIMIT $3 OFFSET $4
	`
	return r.query(ctx, "list schedules", query,
		nullUUID(filter.FrequencyID),
		filter.Active,
		filter.Limit,
		filter.Offset,
	)
}

// ListActive возвращает все активные schedules (для sweep).
func (r *ScheduleRepo) ListActive(ctx context.Context) ([]domain.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE active = true
		ORDER BY due_date ASC NULLS LAST
	`
	return r.query(ctx, "list active schedules", query)
}

// Update обновляет редактируемые поля schedule. due_date здесь не меняется.
func (r *ScheduleRepo) Update(ctx context.Context, s *domain.Schedule) error {
	query := `
		UPDATE schedules
		SET name = $2, frequency_id = $3, auto_schedule = $4, active = $5,
		    assigned_to = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		s.ID,
		s.Name,
		nullUUID(s.FrequencyID),
		s.AutoSchedule,
		s.Active,
		nullString(s.AssignedTo),
		s.UpdatedAt,
	)
	if err != nil {
		return mapPgError(err, "update schedule")
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет schedule вместе с историей выполнений.
func (r *ScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LockedUpdate выполняет read-modify-write due date под блокировкой строки.
//
// fn получает schedule, прочитанный через SELECT ... FOR UPDATE, и может
// изменить s.DueDate. Если fn вернула save == true, due_date сохраняется
// в той же транзакции. Параллельные вызовы для одного schedule выполняются
// последовательно, для разных — независимо.
func (r *ScheduleRepo) LockedUpdate(ctx context.Context, id uuid.UUID, fn func(s *domain.Schedule) (save bool, err error)) (*domain.Schedule, error) {
	var result *domain.Schedule

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1 FOR UPDATE`
		s, err := scanSchedule(tx.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}

		save, err := fn(s)
		if err != nil {
			return err
		}

		if save {
			s.UpdatedAt = time.Now().UTC()
			if _, err := tx.Exec(ctx,
				`UPDATE schedules SET due_date = $2, updated_at = $3 WHERE id = $1`,
				s.ID, s.DueDate, s.UpdatedAt,
			); err != nil {
				return fmt.Errorf("update due date: %w", err)
			}
		}

		result = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkOverdueNotified запоминает, что об OVERDUE для due уже сообщили.
// Возвращает false, если для этого due date уведомление уже было.
func (r *ScheduleRepo) MarkOverdueNotified(ctx context.Context, id uuid.UUID, due time.Time) (bool, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE schedules SET overdue_notified_due = $2
		WHERE id = $1 AND overdue_notified_due IS DISTINCT FROM $2
	`, id, due)
	if err != nil {
		return false, fmt.Errorf("mark overdue notified: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ResetOverdueNotified снимает отметку MarkOverdueNotified, если она
// стоит для due. Используется, когда событие не удалось опубликовать.
func (r *ScheduleRepo) ResetOverdueNotified(ctx context.Context, id uuid.UUID, due time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE schedules SET overdue_notified_due = NULL
		WHERE id = $1 AND overdue_notified_due = $2
	`, id, due)
	if err != nil {
		return fmt.Errorf("reset overdue notified: %w", err)
	}
	return nil
}

// --- Helpers ---

// ScheduleFilter — параметры фильтрации schedules.
type ScheduleFilter struct {
	FrequencyID *uuid.UUID
	Active      *bool
	Limit       int
	Offset      int
}

func (r *ScheduleRepo) query(ctx context.Context, op, query string, args ...any) ([]domain.Schedule, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var schedules []domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

func scanSchedule(row pgx.Row) (*domain.Schedule, error) {
	var s domain.Schedule
	var assignedTo *string

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.FrequencyID,
		&s.DueDate,
		&s.AutoSchedule,
		&s.Active,
		&assignedTo,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}

	s.AssignedTo = deref(assignedTo)
	return &s, nil
}
