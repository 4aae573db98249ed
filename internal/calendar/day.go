package calendar

import (
	"fmt"
	"time"
)

// Day — календарный день без времени и зоны.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

func (d Day) utc() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before возвращает true, если d раньше other.
func (d Day) Before(other Day) bool {
	return d.utc().Before(other.utc())
}

// Equal возвращает true для одного и того же дня.
func (d Day) Equal(other Day) bool {
	return d.utc().Equal(other.utc())
}

// AddDays сдвигает день на n календарных дней.
func (d Day) AddDays(n int) Day {
	y, m, dd := d.utc().AddDate(0, 0, n).Date()
	return Day{Year: y, Month: m, Day: dd}
}

// DaysUntil возвращает число календарных дней от d до other (может быть отрицательным).
func (d Day) DaysUntil(other Day) int {
	return int(other.utc().Sub(d.utc()) / (24 * time.Hour))
}

// String возвращает день в формате 2006-01-02.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
