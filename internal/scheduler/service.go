package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/QCSched/internal/domain"
	"github.com/shaiso/QCSched/internal/mq"
	"github.com/shaiso/QCSched/internal/repo"
	"github.com/shaiso/QCSched/internal/scheduling"
	"github.com/shaiso/QCSched/internal/telemetry"
)

// Service — прикладной слой расчёта due date.
type Service struct {
	schedules    ScheduleStore
	frequencies  FrequencyStore
	performances PerformanceStore
	calc         *scheduling.Calculator
	publisher    EventPublisher
	logger       *slog.Logger
	maxAttempts  int
}

// Config — конфигурация Service.
type Config struct {
	Schedules    ScheduleStore
	Frequencies  FrequencyStore
	Performances PerformanceStore
	Calculator   *scheduling.Calculator
	Publisher    EventPublisher // опционально
	Logger       *slog.Logger
	MaxAttempts  int // попыток пересчёта при смене частоты (default: 3)
}

// New создаёт новый Service.
func New(cfg Config) *Service {
	if cfg.Calculator == nil {
		cfg.Calculator = scheduling.New(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	return &Service{
		schedules:    cfg.Schedules,
		frequencies:  cfg.Frequencies,
		performances: cfg.Performances,
		calc:         cfg.Calculator,
		publisher:    cfg.Publisher,
		logger:       cfg.Logger,
		maxAttempts:  cfg.MaxAttempts,
	}
}

// Calculator возвращает калькулятор сервиса.
func (s *Service) Calculator() *scheduling.Calculator {
	return s.calc
}

// PerformanceInput — новое выполнение QC-задачи.
type PerformanceInput struct {
	ScheduleID          uuid.UUID
	CompletedAt         time.Time
	CountsForScheduling bool
	Comment             string
	IdempotencyKey      string
}

// PerformanceResult — результат RecordPerformance.
type PerformanceResult struct {
	Record   *domain.PerformanceRecord
	Schedule *domain.Schedule
	Changed  bool
}

// RecordPerformance сохраняет выполнение и пересчитывает due date.
//
// Повторная запись с тем же IdempotencyKey возвращает repo.ErrAlreadyExists.
func (s *Service) RecordPerformance(ctx context.Context, in PerformanceInput) (*PerformanceResult, error) {
	start := time.Now()
	defer func() {
		telemetry.RecordPerformanceDuration.Observe(time.Since(start).Seconds())
	}()

	if in.CompletedAt.IsZero() {
		return nil, invalid("completed_at", "is required")
	}

	if _, err := s.schedules.GetByID(ctx, in.ScheduleID); err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}

	record := &domain.PerformanceRecord{
		ID:                  uuid.New(),
		ScheduleID:          in.ScheduleID,
		CompletedAt:         in.CompletedAt,
		CountsForScheduling: in.CountsForScheduling,
		Valid:               true,
		Comment:             in.Comment,
		IdempotencyKey:      in.IdempotencyKey,
		CreatedAt:           time.Now().UTC(),
	}
	if err := s.performances.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create performance record: %w", err)
	}

	s.logger.Info("performance recorded",
		"schedule_id", in.ScheduleID,
		"record_id", record.ID,
		"completed_at", in.CompletedAt,
		"counts_for_scheduling", in.CountsForScheduling,
	)

	// Запись, не ставшая последней засчитываемой, базу расчёта не меняет:
	// ручной due date остаётся до следующего засчитываемого выполнения.
	sched, changed, err := s.recompute(ctx, in.ScheduleID, latestIs(record.ID))
	if err != nil {
		return nil, err
	}

	return &PerformanceResult{Record: record, Schedule: sched, Changed: changed}, nil
}

// trigger решает под блокировкой, нужен ли пересчёт при данной последней записи.
type trigger func(last *domain.PerformanceRecord) bool

func latestIs(id uuid.UUID) trigger {
	return func(last *domain.PerformanceRecord) bool {
		return last != nil && last.ID == id
	}
}

// Recompute пересчитывает due date по последней засчитываемой записи.
//
// Частота читается до блокировки строки schedule. Если под блокировкой
// выяснилось, что частота у schedule уже другая, пересчёт повторяется.
// Последняя запись читается под блокировкой, чтобы параллельные
// выполнения не откатили due date назад.
func (s *Service) Recompute(ctx context.Context, scheduleID uuid.UUID) (*domain.Schedule, bool, error) {
	return s.recompute(ctx, scheduleID, nil)
}

// recompute — Recompute, выполняемый только если when (при наличии) разрешил пересчёт.
func (s *Service) recompute(ctx context.Context, scheduleID uuid.UUID, when trigger) (*domain.Schedule, bool, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		sched, changed, err := s.recomputeOnce(ctx, scheduleID, when)
		if errors.Is(err, errFrequencyChanged) {
			s.logger.Debug("frequency changed during recompute, retrying",
				"schedule_id", scheduleID,
				"attempt", attempt,
			)
			continue
		}
		return sched, changed, err
	}
	return nil, false, fmt.Errorf("recompute schedule %s: %w", scheduleID, ErrScheduleChanged)
}

func (s *Service) recomputeOnce(ctx context.Context, scheduleID uuid.UUID, when trigger) (*domain.Schedule, bool, error) {
	pre, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, false, fmt.Errorf("get schedule: %w", err)
	}

	freq, err := s.frequencyOf(ctx, pre)
	if err != nil {
		return nil, false, err
	}

	var (
		changed bool
		oldDue  *time.Time
		mode    string
	)
	sched, err := s.schedules.LockedUpdate(ctx, scheduleID, func(locked *domain.Schedule) (bool, error) {
		if !sameUUID(locked.FrequencyID, pre.FrequencyID) {
			return false, errFrequencyChanged
		}

		last, err := s.performances.LatestQualifying(ctx, scheduleID)
		if errors.Is(err, repo.ErrNotFound) {
			last, err = nil, nil
		}
		if err != nil {
			return false, fmt.Errorf("latest performance: %w", err)
		}
		if when != nil && !when(last) {
			return false, nil
		}

		oldDue = copyTime(locked.DueDate)
		mode = recomputeMode(locked, freq, last)

		changed, err = s.calc.RecordPerformance(locked, freq, last, s.calc.Clock().Now())
		return changed, err
	})
	if err != nil {
		if errors.Is(err, errFrequencyChanged) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("recompute schedule %s: %w", scheduleID, err)
	}

	if changed {
		telemetry.DueDateRecomputations.WithLabelValues(mode).Inc()
		s.logger.Info("due date changed",
			"schedule_id", scheduleID,
			"mode", mode,
			"old_due", oldDue,
			"new_due", sched.DueDate,
		)
		s.publishDueChanged(ctx, sched.ID, oldDue, sched.DueDate, mode)
	}

	return sched, changed, nil
}

// SetDueDate задаёт due date вручную. Значение сохраняется как есть
// и будет пересчитано только при следующем засчитываемом выполнении
// или явном Recompute.
func (s *Service) SetDueDate(ctx context.Context, scheduleID uuid.UUID, due *time.Time) (*domain.Schedule, error) {
	var oldDue *time.Time

	sched, err := s.schedules.LockedUpdate(ctx, scheduleID, func(locked *domain.Schedule) (bool, error) {
		oldDue = copyTime(locked.DueDate)
		locked.SetDueDate(due)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("set due date: %w", err)
	}

	telemetry.DueDateRecomputations.WithLabelValues(telemetry.ModeManual).Inc()
	s.logger.Info("due date set manually",
		"schedule_id", scheduleID,
		"old_due", oldDue,
		"new_due", sched.DueDate,
	)
	s.publishDueChanged(ctx, sched.ID, oldDue, sched.DueDate, telemetry.ModeManual)

	return sched, nil
}

// SetPerformanceValid аннулирует (или восстанавливает) запись и пересчитывает due date.
func (s *Service) SetPerformanceValid(ctx context.Context, recordID uuid.UUID, valid bool) (*PerformanceResult, error) {
	record, err := s.performances.SetValid(ctx, recordID, valid)
	if err != nil {
		return nil, fmt.Errorf("set performance valid: %w", err)
	}

	s.logger.Info("performance validity changed",
		"record_id", recordID,
		"schedule_id", record.ScheduleID,
		"valid", valid,
	)

	sched, changed, err := s.recompute(ctx, record.ScheduleID, validityTrigger(record, valid))
	if err != nil {
		return nil, err
	}
	return &PerformanceResult{Record: record, Schedule: sched, Changed: changed}, nil
}

// validityTrigger пропускает пересчёт, если последняя засчитываемая
// запись от переключения не изменилась.
func validityTrigger(record *domain.PerformanceRecord, valid bool) trigger {
	if !record.CountsForScheduling {
		return func(*domain.PerformanceRecord) bool { return false }
	}
	if valid {
		return latestIs(record.ID)
	}
	// Аннулированная запись была последней, если она позже новой последней
	return func(last *domain.PerformanceRecord) bool {
		return last == nil || record.CompletedAt.After(last.CompletedAt)
	}
}

// ListPerformances возвращает историю выполнений schedule, новые первыми.
func (s *Service) ListPerformances(ctx context.Context, scheduleID uuid.UUID, limit int) ([]domain.PerformanceRecord, error) {
	if _, err := s.schedules.GetByID(ctx, scheduleID); err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	if limit <= 0 {
		limit = 50
	}
	return s.performances.ListBySchedule(ctx, scheduleID, limit)
}

func (s *Service) frequencyOf(ctx context.Context, sched *domain.Schedule) (*domain.Frequency, error) {
	if sched.FrequencyID == nil {
		return nil, nil
	}
	f, err := s.frequencies.GetByID(ctx, *sched.FrequencyID)
	if err != nil {
		return nil, fmt.Errorf("get frequency %s: %w", *sched.FrequencyID, err)
	}
	return f, nil
}

func (s *Service) publishDueChanged(ctx context.Context, id uuid.UUID, oldDue, newDue *time.Time, mode string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishDueChanged(ctx, mq.DueChangedPayload{
		ScheduleID: id,
		OldDue:     oldDue,
		NewDue:     copyTime(newDue),
		Mode:       mode,
	})
	if err != nil {
		// Не фатально: due date уже сохранён
		s.logger.Warn("failed to publish schedule.due_changed",
			"schedule_id", id,
			"error", err,
		)
	}
}

// recomputeMode возвращает метку режима для метрики до изменения schedule.
func recomputeMode(s *domain.Schedule, f *domain.Frequency, last *domain.PerformanceRecord) string {
	switch {
	case last == nil:
		return telemetry.ModeNoHistory
	case f != nil && f.IsClassical():
		return telemetry.ModeClassical
	case s.DueDate == nil:
		return telemetry.ModeInitial
	default:
		return telemetry.ModeWindow
	}
}

func sameUUID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
