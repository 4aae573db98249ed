package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/QCSched/internal/domain"
	"github.com/shaiso/QCSched/internal/repo"
)

// ScheduleView — schedule вместе с производными полями.
type ScheduleView struct {
	Schedule    *domain.Schedule
	Frequency   *domain.Frequency
	Status      domain.DueStatus
	WindowStart *time.Time
	WindowEnd   *time.Time
}

// ScheduleInput — данные для создания schedule.
type ScheduleInput struct {
	Name         string
	FrequencyID  *uuid.UUID
	DueDate      *time.Time
	AutoSchedule bool
	Active       bool
	AssignedTo   string
}

// ScheduleUpdate — частичное обновление schedule. nil — поле не меняется.
type ScheduleUpdate struct {
	Name           *string
	FrequencyID    *uuid.UUID
	ClearFrequency bool
	AutoSchedule   *bool
	Active         *bool
	AssignedTo     *string
}

// ScheduleQuery — фильтр списка schedules.
type ScheduleQuery struct {
	repo.ScheduleFilter

	// Status — фильтр по производному статусу (пусто — все).
	Status domain.DueStatus
}

// CreateSchedule создаёт schedule.
//
// Если due date не задан, а автопланирование включено и частота есть,
// due date становится равным текущему моменту.
func (s *Service) CreateSchedule(ctx context.Context, in ScheduleInput) (*ScheduleView, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}

	var freq *domain.Frequency
	if in.FrequencyID != nil {
		f, err := s.lookupFrequency(ctx, *in.FrequencyID)
		if err != nil {
			return nil, err
		}
		freq = f
	}

	now := time.Now().UTC()
	sched := &domain.Schedule{
		ID:           uuid.New(),
		Name:         name,
		FrequencyID:  in.FrequencyID,
		AutoSchedule: in.AutoSchedule,
		Active:       in.Active,
		AssignedTo:   strings.TrimSpace(in.AssignedTo),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	sched.SetDueDate(in.DueDate)

	if _, err := s.calc.RecordPerformance(sched, freq, nil, s.calc.Clock().Now()); err != nil {
		return nil, fmt.Errorf("initial due date: %w", err)
	}

	if err := s.schedules.Create(ctx, sched); err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}

	s.logger.Info("schedule created",
		"schedule_id", sched.ID,
		"name", sched.Name,
		"due_date", sched.DueDate,
	)

	return s.view(sched, freq), nil
}

// GetSchedule возвращает schedule со статусом и окном.
func (s *Service) GetSchedule(ctx context.Context, id uuid.UUID) (*ScheduleView, error) {
	sched, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	freq, err := s.frequencyOf(ctx, sched)
	if err != nil {
		return nil, err
	}
	return s.view(sched, freq), nil
}

// ListSchedules возвращает schedules со статусами.
func (s *Service) ListSchedules(ctx context.Context, q ScheduleQuery) ([]ScheduleView, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	schedules, err := s.schedules.List(ctx, q.ScheduleFilter)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	freqs, err := s.frequencyIndex(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]ScheduleView, 0, len(schedules))
	for i := range schedules {
		sched := &schedules[i]
		v := s.view(sched, freqs.of(sched))
		if q.Status != "" && v.Status != q.Status {
			continue
		}
		views = append(views, *v)
	}
	return views, nil
}

// UpdateSchedule обновляет schedule. Смена частоты или включение
// автопланирования сразу пересчитывает due date.
func (s *Service) UpdateSchedule(ctx context.Context, id uuid.UUID, upd ScheduleUpdate) (*ScheduleView, error) {
	sched, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}

	recompute := false

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, invalid("name", "must not be empty")
		}
		sched.Name = name
	}
	if upd.ClearFrequency {
		recompute = recompute || sched.FrequencyID != nil
		sched.FrequencyID = nil
	} else if upd.FrequencyID != nil {
		if _, err := s.lookupFrequency(ctx, *upd.FrequencyID); err != nil {
			return nil, err
		}
		recompute = recompute || !sameUUID(sched.FrequencyID, upd.FrequencyID)
		fid := *upd.FrequencyID
		sched.FrequencyID = &fid
	}
	if upd.AutoSchedule != nil {
		recompute = recompute || (*upd.AutoSchedule && !sched.AutoSchedule)
		sched.AutoSchedule = *upd.AutoSchedule
	}
	if upd.Active != nil {
		sched.Active = *upd.Active
	}
	if upd.AssignedTo != nil {
		sched.AssignedTo = strings.TrimSpace(*upd.AssignedTo)
	}

	sched.UpdatedAt = time.Now().UTC()
	if err := s.schedules.Update(ctx, sched); err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}

	if recompute {
		if _, _, err := s.Recompute(ctx, id); err != nil {
			return nil, err
		}
	}

	return s.GetSchedule(ctx, id)
}

// DeleteSchedule удаляет schedule вместе с историей выполнений.
func (s *Service) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	if err := s.schedules.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	s.logger.Info("schedule deleted", "schedule_id", id)
	return nil
}

func (s *Service) view(sched *domain.Schedule, freq *domain.Frequency) *ScheduleView {
	start, end := s.calc.Window(sched.DueDate, freq)
	return &ScheduleView{
		Schedule:    sched,
		Frequency:   freq,
		Status:      s.calc.DueStatus(sched.DueDate, freq, s.calc.Clock().Now()),
		WindowStart: start,
		WindowEnd:   end,
	}
}

// lookupFrequency проверяет ссылку на частоту из входных данных.
func (s *Service) lookupFrequency(ctx context.Context, id uuid.UUID) (*domain.Frequency, error) {
	f, err := s.frequencies.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, invalid("frequency_id", "frequency not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get frequency: %w", err)
	}
	return f, nil
}

type frequencyIndex map[uuid.UUID]*domain.Frequency

func (idx frequencyIndex) of(s *domain.Schedule) *domain.Frequency {
	if s.FrequencyID == nil {
		return nil
	}
	return idx[*s.FrequencyID]
}

func (s *Service) frequencyIndex(ctx context.Context) (frequencyIndex, error) {
	list, err := s.frequencies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list frequencies: %w", err)
	}
	idx := make(frequencyIndex, len(list))
	for i := range list {
		idx[list[i].ID] = &list[i]
	}
	return idx, nil
}
