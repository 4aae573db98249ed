package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/QCSched/internal/domain"
	"github.com/shaiso/QCSched/internal/mq"
	"github.com/shaiso/QCSched/internal/telemetry"
)

// cronParser — парсер cron-выражений для SWEEP_CRON.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSweepCron разбирает cron-выражение расписания sweep
// ("*/5 * * * *", "@hourly").
func ParseSweepCron(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched, nil
}

// SweepResult — итог одного sweep.
type SweepResult struct {
	Total    int
	ByStatus map[domain.DueStatus]int
	Notified int
}

// Sweep пересчитывает статусы активных schedules, обновляет gauge
// и публикует schedule.overdue. Для одного due date событие уходит один раз.
//
// Ошибки одного schedule не блокируют обработку остальных.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	res := SweepResult{ByStatus: make(map[domain.DueStatus]int, len(domain.AllDueStatuses))}

	schedules, err := s.schedules.ListActive(ctx)
	if err != nil {
		telemetry.Sweeps.WithLabelValues("error").Inc()
		return res, fmt.Errorf("list active schedules: %w", err)
	}

	freqs, err := s.frequencyIndex(ctx)
	if err != nil {
		telemetry.Sweeps.WithLabelValues("error").Inc()
		return res, err
	}

	now := s.calc.Clock().Now()
	for i := range schedules {
		sched := &schedules[i]
		status := s.calc.DueStatus(sched.DueDate, freqs.of(sched), now)
		res.Total++
		res.ByStatus[status]++

		if status != domain.DueStatusOverdue || s.publisher == nil {
			continue
		}

		notified, err := s.notifyOverdue(ctx, sched)
		if err != nil {
			s.logger.Error("failed to notify overdue",
				"schedule_id", sched.ID,
				"error", err,
			)
			continue
		}
		if notified {
			res.Notified++
		}
	}

	for _, st := range domain.AllDueStatuses {
		telemetry.SchedulesByStatus.WithLabelValues(st.String()).Set(float64(res.ByStatus[st]))
	}
	telemetry.Sweeps.WithLabelValues("ok").Inc()

	s.logger.Info("sweep completed",
		"total", res.Total,
		"overdue", res.ByStatus[domain.DueStatusOverdue],
		"notified", res.Notified,
	)
	return res, nil
}

func (s *Service) notifyOverdue(ctx context.Context, sched *domain.Schedule) (bool, error) {
	due := *sched.DueDate

	first, err := s.schedules.MarkOverdueNotified(ctx, sched.ID, due)
	if err != nil {
		return false, err
	}
	if !first {
		return false, nil
	}

	err = s.publisher.PublishOverdue(ctx, mq.OverduePayload{
		ScheduleID:     sched.ID,
		Name:           sched.Name,
		AssignedTo:     sched.AssignedTo,
		DueDate:        due,
		IdempotencyKey: mq.OverdueKey(sched.ID, due),
	})
	if err != nil {
		// Следующий sweep попробует снова
		if rerr := s.schedules.ResetOverdueNotified(ctx, sched.ID, due); rerr != nil {
			s.logger.Warn("failed to reset overdue mark", "schedule_id", sched.ID, "error", rerr)
		}
		return false, fmt.Errorf("publish overdue: %w", err)
	}

	s.logger.Info("schedule overdue",
		"schedule_id", sched.ID,
		"due_date", due,
	)
	return true, nil
}

// RunSweeps выполняет Sweep по расписанию до отмены ctx.
// isLeader вызывается перед каждым запуском; nil — всегда лидер.
func (s *Service) RunSweeps(ctx context.Context, schedule cron.Schedule, isLeader func(context.Context) bool) error {
	for {
		now := time.Now()
		next := schedule.Next(now)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if isLeader != nil && !isLeader(ctx) {
			s.logger.Debug("not a leader, skipping sweep")
			continue
		}

		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("sweep failed", "error", err)
		}
	}
}
