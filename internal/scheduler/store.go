package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/QCSched/internal/domain"
	"github.com/shaiso/QCSched/internal/mq"
	"github.com/shaiso/QCSched/internal/repo"
)

// ScheduleStore — хранилище schedules. Реализуется repo.ScheduleRepo.
type ScheduleStore interface {
	Create(ctx context.Context, s *domain.Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)
	List(ctx context.Context, filter repo.ScheduleFilter) ([]domain.Schedule, error)
	ListActive(ctx context.Context) ([]domain.Schedule, error)
	Update(ctx context.Context, s *domain.Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
	LockedUpdate(ctx context.Context, id uuid.UUID, fn func(s *domain.Schedule) (bool, error)) (*domain.Schedule, error)
	MarkOverdueNotified(ctx context.Context, id uuid.UUID, due time.Time) (bool, error)
	ResetOverdueNotified(ctx context.Context, id uuid.UUID, due time.Time) error
}

// FrequencyStore — хранилище частот. Реализуется repo.FrequencyRepo.
type FrequencyStore interface {
	Create(ctx context.Context, f *domain.Frequency) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Frequency, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Frequency, error)
	List(ctx context.Context) ([]domain.Frequency, error)
	Update(ctx context.Context, f *domain.Frequency) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PerformanceStore — хранилище истории выполнений. Реализуется repo.PerformanceRepo.
type PerformanceStore interface {
	Create(ctx context.Context, p *domain.PerformanceRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PerformanceRecord, error)
	ListBySchedule(ctx context.Context, scheduleID uuid.UUID, limit int) ([]domain.PerformanceRecord, error)
	LatestQualifying(ctx context.Context, scheduleID uuid.UUID) (*domain.PerformanceRecord, error)
	SetValid(ctx context.Context, id uuid.UUID, valid bool) (*domain.PerformanceRecord, error)
}

// EventPublisher — получатель событий schedules. Реализуется mq.Publisher.
type EventPublisher interface {
	PublishDueChanged(ctx context.Context, payload mq.DueChangedPayload) error
	PublishOverdue(ctx context.Context, payload mq.OverduePayload) error
}

var (
	_ ScheduleStore    = (*repo.ScheduleRepo)(nil)
	_ FrequencyStore   = (*repo.FrequencyRepo)(nil)
	_ PerformanceStore = (*repo.PerformanceRepo)(nil)
	_ EventPublisher   = (*mq.Publisher)(nil)
)
