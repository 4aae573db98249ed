package scheduling

import (
	"errors"

	"github.com/shaiso/QCSched/internal/calendar"
)

// ErrDegenerateRecurrence — правило даёт меньше двух occurrences
// на горизонте оценки, номинальный интервал не определён.
var ErrDegenerateRecurrence = errors.New("degenerate recurrence")

// Calculator — калькулятор due date, привязанный к часам.
type Calculator struct {
	clock *calendar.Clock
}

// New создаёт Calculator. nil означает часы в UTC.
func New(clock *calendar.Clock) *Calculator {
	if clock == nil {
		clock = calendar.New(nil)
	}
	return &Calculator{clock: clock}
}

// Clock возвращает часы калькулятора.
func (c *Calculator) Clock() *calendar.Clock {
	return c.clock
}
