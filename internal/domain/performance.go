package domain

import (
	"time"

	"github.com/google/uuid"
)

// PerformanceRecord — факт выполнения QC-задачи.
//
// Для расчёта due date используется только последняя запись,
// у которой CountsForScheduling && Valid.
type PerformanceRecord struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// ScheduleID — ссылка на задачу.
	ScheduleID uuid.UUID `json:"schedule_id"`

	// CompletedAt — когда задача фактически выполнена.
	CompletedAt time.Time `json:"completed_at"`

	// CountsForScheduling — влияет ли запись на due date.
	// Например, внеплановая проверка после ремонта не сдвигает расписание.
	CountsForScheduling bool `json:"counts_for_scheduling"`

	// Valid — запись не аннулирована.
	Valid bool `json:"valid"`

	// Comment — комментарий исполнителя.
	Comment string `json:"comment,omitempty"`

	// IdempotencyKey — ключ для защиты от повторной доставки события.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`
}

// Qualifies возвращает true, если запись участвует в расчёте due date.
func (p *PerformanceRecord) Qualifies() bool {
	return p.CountsForScheduling && p.Valid
}

// LatestQualifying возвращает самую позднюю по CompletedAt засчитываемую запись.
// nil, если таких нет.
func LatestQualifying(records []PerformanceRecord) *PerformanceRecord {
	var latest *PerformanceRecord
	for i := range records {
		r := &records[i]
		if !r.Qualifies() {
			continue
		}
		if latest == nil || r.CompletedAt.After(latest.CompletedAt) {
			latest = r
		}
	}
	return latest
}
