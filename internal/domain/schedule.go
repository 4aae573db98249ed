package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule — периодическая QC-задача (например, проверка линейного ускорителя).
//
// Schedule хранит текущий due date. Он пересчитывается после каждого
// засчитываемого выполнения:
//   - AutoSchedule == false — due date меняется только вручную;
//   - FrequencyID == nil — задача ad-hoc, due date не вычисляется.
type Schedule struct {
	// ID — уникальный идентификатор schedule.
	ID uuid.UUID `json:"id"`

	// Name — имя задачи.
	Name string `json:"name"`

	// FrequencyID — ссылка на частоту. nil для ad-hoc задач.
	FrequencyID *uuid.UUID `json:"frequency_id,omitempty"`

	// DueDate — когда задачу нужно выполнить в следующий раз.
	DueDate *time.Time `json:"due_date,omitempty"`

	// AutoSchedule — пересчитывать ли due date после выполнения.
	AutoSchedule bool `json:"auto_schedule"`

	// Active — участвует ли задача в sweep.
	Active bool `json:"active"`

	// AssignedTo — группа или человек, отвечающий за выполнение.
	AssignedTo string `json:"assigned_to,omitempty"`

	// CreatedAt — время создания schedule.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// HasFrequency возвращает true, если у задачи есть частота.
func (s *Schedule) HasFrequency() bool {
	return s.FrequencyID != nil
}

// SetDueDate записывает due date (nil очищает его).
func (s *Schedule) SetDueDate(due *time.Time) {
	if due == nil {
		s.DueDate = nil
		return
	}
	d := *due
	s.DueDate = &d
}
