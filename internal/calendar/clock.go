package calendar

import (
	"fmt"
	"time"
)

// DefaultTimezone — зона по умолчанию, если QC_TIMEZONE не задан.
const DefaultTimezone = "America/Toronto"

// Clock — часы, привязанные к одной временной зоне.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New создаёт Clock для зоны loc. nil означает UTC.
func New(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, now: time.Now}
}

// Load создаёт Clock по имени зоны из базы tzdata.
func Load(name string) (*Clock, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return New(loc), nil
}

// WithNow возвращает копию часов с подменённым источником времени.
func (c *Clock) WithNow(now func() time.Time) *Clock {
	cp := *c
	cp.now = now
	return &cp
}

// Location возвращает зону часов.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Now возвращает текущее время в зоне часов.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// In переводит t в зону часов.
func (c *Clock) In(t time.Time) time.Time {
	return t.In(c.loc)
}

// DayStart возвращает 00:00:00 локального дня, в который попадает t.
func (c *Clock) DayStart(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

// DayEnd возвращает 23:59:59.999 локального дня, в который попадает t.
func (c *Clock) DayEnd(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), c.loc)
}

// AddDays сдвигает t на n календарных дней, сохраняя локальное время суток.
// Через переход на летнее/зимнее время сутки могут длиться 23 или 25 часов.
func (c *Clock) AddDays(t time.Time, n int) time.Time {
	l := t.In(c.loc)
	y, m, d := l.Date()
	return time.Date(y, m, d+n, l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), c.loc)
}

// Date возвращает локальный календарный день для t.
func (c *Clock) Date(t time.Time) Day {
	y, m, d := t.In(c.loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

// Today возвращает текущий локальный день.
func (c *Clock) Today() Day {
	return c.Date(c.Now())
}
