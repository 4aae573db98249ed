package scheduling

import (
	"time"

	"github.com/shaiso/QCSched/internal/domain"
)

// Window возвращает границы QC-окна для due date.
//
// start = начало дня (due - WindowStart дней), nil в классическом режиме.
// end   = конец дня (due + WindowEnd дней).
// Если due или f равны nil, окна нет.
func (c *Calculator) Window(due *time.Time, f *domain.Frequency) (start, end *time.Time) {
	if due == nil || f == nil {
		return nil, nil
	}

	if f.WindowStart != nil {
		s := c.clock.DayStart(c.clock.AddDays(*due, -*f.WindowStart))
		start = &s
	}

	e := c.clock.DayEnd(c.clock.AddDays(*due, f.WindowEnd))
	end = &e

	return start, end
}

// ShouldUpdateSchedule возвращает true, если выполнение в date
// попадает в окно due date или позже. Граница окна включается.
func (c *Calculator) ShouldUpdateSchedule(date time.Time, due *time.Time, f *domain.Frequency) bool {
	start, _ := c.Window(due, f)
	return start == nil || !date.Before(*start)
}
