package scheduling

import (
	"fmt"
	"time"

	"github.com/shaiso/QCSched/internal/recurrence"
)

const (
	// referenceYear — год, на котором оценивается номинальный интервал.
	// Високосный, начинается в воскресенье.
	referenceYear = 2012

	// maxReferenceYears — предел расширения окна оценки (совпадает с Lookahead правила).
	maxReferenceYears = 10
)

// NominalIntervalDays возвращает среднее число календарных дней между
// соседними occurrences правила.
//
// Оценка ведётся на 2012 году (локальное время, якорь — 1 января).
// Если за год occurrences меньше двух, окно расширяется по году до
// maxReferenceYears. Если и этого мало — ErrDegenerateRecurrence.
func (c *Calculator) NominalIntervalDays(rule recurrence.Rule) (float64, error) {
	return c.nominalIntervalDays(rule, maxReferenceYears)
}

func (c *Calculator) nominalIntervalDays(rule recurrence.Rule, maxYears int) (float64, error) {
	loc := c.clock.Location()
	from := time.Date(referenceYear, time.January, 1, 0, 0, 0, 0, loc)

	for years := 1; years <= maxYears; years++ {
		to := time.Date(referenceYear+years-1, time.December, 31, 23, 59, 59, 0, loc)

		occurrences, err := rule.Between(from, to, from)
		if err != nil {
			return 0, err
		}
		if len(occurrences) < 2 {
			continue
		}

		first := c.clock.Date(occurrences[0])
		last := c.clock.Date(occurrences[len(occurrences)-1])
		return float64(first.DaysUntil(last)) / float64(len(occurrences)-1), nil
	}

	return 0, fmt.Errorf("%w: %q has fewer than two occurrences in %d years",
		ErrDegenerateRecurrence, rule.String(), maxYears)
}
