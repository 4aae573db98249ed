package scheduling

import (
	"fmt"
	"time"

	"github.com/shaiso/QCSched/internal/domain"
)

// CalcDueDate вычисляет due date после выполнения в completed.
//
//   - f == nil — задача ad-hoc, возвращает nil;
//   - классический режим или due == nil — следующий occurrence после completed
//     с фазой от completed;
//   - оконный режим — due не меняется, пока completed раньше окна; иначе
//     берётся следующий occurrence с фазой от due, и если completed уже
//     попадает в его окно, расписание сдвигается ещё на один occurrence.
func (c *Calculator) CalcDueDate(completed time.Time, due *time.Time, f *domain.Frequency) (*time.Time, error) {
	if f == nil {
		return nil, nil
	}

	completed = c.clock.In(completed)

	if f.IsClassical() || due == nil {
		next, err := c.nextAfter(f, completed, completed)
		if err != nil {
			return nil, err
		}
		return &next, nil
	}

	current := c.clock.In(*due)
	if !c.ShouldUpdateSchedule(completed, &current, f) {
		return &current, nil
	}

	candidate, err := c.nextAfter(f, completed, current)
	if err != nil {
		return nil, err
	}

	if c.ShouldUpdateSchedule(completed, &candidate, f) {
		candidate, err = c.nextAfter(f, candidate, candidate)
		if err != nil {
			return nil, err
		}
	}

	return &candidate, nil
}

// CalcInitialDueDate вычисляет первый due date для задачи без due date.
// Если completed уже попадает в окно ближайшего occurrence, выполнение
// засчитывается за него и возвращается следующий.
func (c *Calculator) CalcInitialDueDate(completed time.Time, f *domain.Frequency) (*time.Time, error) {
	if f == nil {
		return nil, nil
	}

	completed = c.clock.In(completed)

	next, err := c.nextAfter(f, completed, completed)
	if err != nil {
		return nil, err
	}

	if c.ShouldUpdateSchedule(completed, &next, f) {
		next, err = c.nextAfter(f, next, next)
		if err != nil {
			return nil, err
		}
	}

	return &next, nil
}

func (c *Calculator) nextAfter(f *domain.Frequency, date, anchor time.Time) (time.Time, error) {
	next, err := f.Recurrence.NextAfter(c.clock.In(date), c.clock.In(anchor))
	if err != nil {
		return time.Time{}, fmt.Errorf("frequency %q: %w", f.Slug, err)
	}
	return c.clock.In(next), nil
}
