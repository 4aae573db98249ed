package scheduling

import (
	"time"

	"github.com/shaiso/QCSched/internal/domain"
)

// RecordPerformance пересчитывает due date задачи после изменения истории выполнений.
//
// last — последняя засчитываемая запись (CountsForScheduling && Valid) или nil.
// Возвращает true, если s.DueDate изменился.
//
//   - AutoSchedule выключен или нет частоты — ничего не делает;
//   - засчитываемых записей нет — пустой due date становится now,
//     заданный остаётся как есть;
//   - due date пуст и частота оконная — CalcInitialDueDate;
//   - иначе — CalcDueDate от текущего due date.
func (c *Calculator) RecordPerformance(s *domain.Schedule, f *domain.Frequency, last *domain.PerformanceRecord, now time.Time) (bool, error) {
	if !s.AutoSchedule || f == nil {
		return false, nil
	}

	if last == nil {
		if s.DueDate != nil {
			return false, nil
		}
		n := c.clock.In(now)
		s.SetDueDate(&n)
		return true, nil
	}

	var (
		next *time.Time
		err  error
	)
	if s.DueDate == nil && f.IsWindowBased() {
		next, err = c.CalcInitialDueDate(last.CompletedAt, f)
	} else {
		next, err = c.CalcDueDate(last.CompletedAt, s.DueDate, f)
	}
	if err != nil {
		return false, err
	}

	if sameInstant(s.DueDate, next) {
		return false, nil
	}
	s.SetDueDate(next)
	return true, nil
}

// DueStatus возвращает статус задачи на момент now.
//
// Порог OVERDUE — день due date плюс WindowEnd дней (1 день для задач без частоты).
func (c *Calculator) DueStatus(due *time.Time, f *domain.Frequency, now time.Time) domain.DueStatus {
	if due == nil {
		return domain.DueStatusNoDueDate
	}

	today := c.clock.Date(now)
	dueDay := c.clock.Date(*due)
	if today.Before(dueDay) {
		return domain.DueStatusNotDue
	}

	grace := 1
	if f != nil {
		grace = f.WindowEnd
	}
	if today.Before(dueDay.AddDays(grace)) {
		return domain.DueStatusDue
	}
	return domain.DueStatusOverdue
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
