package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/QCSched/internal/domain"
	"github.com/shaiso/QCSched/internal/scheduler"
)

// ScheduleService — операции над schedules. Реализуется scheduler.Service.
type ScheduleService interface {
	CreateSchedule(ctx context.Context, in scheduler.ScheduleInput) (*scheduler.ScheduleView, error)
	GetSchedule(ctx context.Context, id uuid.UUID) (*scheduler.ScheduleView, error)
	ListSchedules(ctx context.Context, q scheduler.ScheduleQuery) ([]scheduler.ScheduleView, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, upd scheduler.ScheduleUpdate) (*scheduler.ScheduleView, error)
	DeleteSchedule(ctx context.Context, id uuid.UUID) error
	SetDueDate(ctx context.Context, id uuid.UUID, due *time.Time) (*domain.Schedule, error)
	Recompute(ctx context.Context, id uuid.UUID) (*domain.Schedule, bool, error)
	RecordPerformance(ctx context.Context, in scheduler.PerformanceInput) (*scheduler.PerformanceResult, error)
	SetPerformanceValid(ctx context.Context, id uuid.UUID, valid bool) (*scheduler.PerformanceResult, error)
	ListPerformances(ctx context.Context, scheduleID uuid.UUID, limit int) ([]domain.PerformanceRecord, error)
}

// FrequencyService — авторинг частот. Реализуется scheduler.FrequencyService.
type FrequencyService interface {
	Create(ctx context.Context, in scheduler.FrequencyInput) (*domain.Frequency, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Frequency, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Frequency, error)
	List(ctx context.Context) ([]domain.Frequency, error)
	Update(ctx context.Context, id uuid.UUID, in scheduler.FrequencyInput) (*domain.Frequency, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

var (
	_ ScheduleService  = (*scheduler.Service)(nil)
	_ FrequencyService = (*scheduler.FrequencyService)(nil)
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	schedules   ScheduleService
	frequencies FrequencyService
	logger      *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Schedules   ScheduleService
	Frequencies FrequencyService
	Logger      *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		schedules:   cfg.Schedules,
		frequencies: cfg.Frequencies,
		logger:      logger,
	}
}
