package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/QCSched/internal/domain"
	"github.com/shaiso/QCSched/internal/scheduler"
)

// Frequency DTOs

// FrequencyRequest — запрос на создание или замену частоты.
type FrequencyRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Recurrence  string `json:"recurrence"`
	WindowStart *int   `json:"window_start"`
	WindowEnd   int    `json:"window_end"`
}

func (r FrequencyRequest) input() scheduler.FrequencyInput {
	return scheduler.FrequencyInput{
		Name:        r.Name,
		Slug:        r.Slug,
		Recurrence:  r.Recurrence,
		WindowStart: r.WindowStart,
		WindowEnd:   r.WindowEnd,
	}
}

// FrequencyResponse — ответ с частотой.
type FrequencyResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	Recurrence      string    `json:"recurrence"`
	WindowStart     *int      `json:"window_start"`
	WindowEnd       int       `json:"window_end"`
	Classical       bool      `json:"classical"`
	NominalInterval float64   `json:"nominal_interval"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FrequencyFromDomain конвертирует domain.Frequency в FrequencyResponse.
func FrequencyFromDomain(f *domain.Frequency) FrequencyResponse {
	return FrequencyResponse{
		ID:              f.ID,
		Name:            f.Name,
		Slug:            f.Slug,
		Recurrence:      f.Recurrence.String(),
		WindowStart:     f.WindowStart,
		WindowEnd:       f.WindowEnd,
		Classical:       f.IsClassical(),
		NominalInterval: f.NominalInterval,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
// Частота задаётся через frequency_id или frequency (slug).
type CreateScheduleRequest struct {
	Name         string     `json:"name"`
	FrequencyID  *uuid.UUID `json:"frequency_id,omitempty"`
	Frequency    string     `json:"frequency,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	AutoSchedule *bool      `json:"auto_schedule,omitempty"` // default: true
	Active       *bool      `json:"active,omitempty"`        // default: true
	AssignedTo   string     `json:"assigned_to,omitempty"`
}

// UpdateScheduleRequest — запрос на обновление schedule.
// frequency_id = "" отвязывает частоту.
type UpdateScheduleRequest struct {
	Name         *string `json:"name,omitempty"`
	FrequencyID  *string `json:"frequency_id,omitempty"`
	Frequency    *string `json:"frequency,omitempty"`
	AutoSchedule *bool   `json:"auto_schedule,omitempty"`
	Active       *bool   `json:"active,omitempty"`
	AssignedTo   *string `json:"assigned_to,omitempty"`
}

// SetDueDateRequest — ручная установка due date. null очищает его.
type SetDueDateRequest struct {
	DueDate *time.Time `json:"due_date"`
}

// ScheduleResponse — ответ с schedule.
type ScheduleResponse struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	FrequencyID  *uuid.UUID `json:"frequency_id,omitempty"`
	Frequency    string     `json:"frequency,omitempty"`
	DueDate      *time.Time `json:"due_date"`
	DueStatus    string     `json:"due_status"`
	WindowStart  *time.Time `json:"window_start,omitempty"`
	WindowEnd    *time.Time `json:"window_end,omitempty"`
	AutoSchedule bool       `json:"auto_schedule"`
	Active       bool       `json:"active"`
	AssignedTo   string     `json:"assigned_to,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ScheduleFromView конвертирует scheduler.ScheduleView в ScheduleResponse.
func ScheduleFromView(v *scheduler.ScheduleView) ScheduleResponse {
	s := v.Schedule
	resp := ScheduleResponse{
		ID:           s.ID,
		Name:         s.Name,
		FrequencyID:  s.FrequencyID,
		DueDate:      s.DueDate,
		DueStatus:    v.Status.String(),
		WindowStart:  v.WindowStart,
		WindowEnd:    v.WindowEnd,
		AutoSchedule: s.AutoSchedule,
		Active:       s.Active,
		AssignedTo:   s.AssignedTo,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if v.Frequency != nil {
		resp.Frequency = v.Frequency.Slug
	}
	return resp
}

// WindowResponse — QC-окно текущего due date.
type WindowResponse struct {
	ScheduleID uuid.UUID  `json:"schedule_id"`
	DueDate    *time.Time `json:"due_date"`
	DueStatus  string     `json:"due_status"`
	Start      *time.Time `json:"start"`
	End        *time.Time `json:"end"`
}

// WindowFromView конвертирует scheduler.ScheduleView в WindowResponse.
func WindowFromView(v *scheduler.ScheduleView) WindowResponse {
	return WindowResponse{
		ScheduleID: v.Schedule.ID,
		DueDate:    v.Schedule.DueDate,
		DueStatus:  v.Status.String(),
		Start:      v.WindowStart,
		End:        v.WindowEnd,
	}
}

// Performance DTOs

// RecordPerformanceRequest — запрос на запись выполнения.
type RecordPerformanceRequest struct {
	CompletedAt         *time.Time `json:"completed_at,omitempty"` // default: now
	CountsForScheduling *bool      `json:"counts_for_scheduling,omitempty"`
	Comment             string     `json:"comment,omitempty"`
	IdempotencyKey      string     `json:"idempotency_key,omitempty"`
}

// SetValidRequest — запрос на аннулирование или восстановление записи.
type SetValidRequest struct {
	Valid bool `json:"valid"`
}

// PerformanceResponse — ответ с записью о выполнении.
type PerformanceResponse struct {
	ID                  uuid.UUID `json:"id"`
	ScheduleID          uuid.UUID `json:"schedule_id"`
	CompletedAt         time.Time `json:"completed_at"`
	CountsForScheduling bool      `json:"counts_for_scheduling"`
	Valid               bool      `json:"valid"`
	Comment             string    `json:"comment,omitempty"`
	IdempotencyKey      string    `json:"idempotency_key,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// PerformanceFromDomain конвертирует domain.PerformanceRecord в PerformanceResponse.
func PerformanceFromDomain(p *domain.PerformanceRecord) PerformanceResponse {
	return PerformanceResponse{
		ID:                  p.ID,
		ScheduleID:          p.ScheduleID,
		CompletedAt:         p.CompletedAt,
		CountsForScheduling: p.CountsForScheduling,
		Valid:               p.Valid,
		Comment:             p.Comment,
		IdempotencyKey:      p.IdempotencyKey,
		CreatedAt:           p.CreatedAt,
	}
}

// PerformanceResultResponse — запись и schedule после пересчёта.
type PerformanceResultResponse struct {
	Performance PerformanceResponse `json:"performance"`
	Schedule    ScheduleResponse    `json:"schedule"`
	Changed     bool                `json:"changed"`
}
