package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/shaiso/QCSched/internal/calendar"
	"github.com/shaiso/QCSched/internal/domain"
	"github.com/shaiso/QCSched/internal/recurrence"
)

func newCalc(t *testing.T) (*Calculator, *time.Location) {
	t.Helper()
	clock, err := calendar.Load("America/Toronto")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	return New(clock), clock.Location()
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func freq(rule string, windowStart *int, windowEnd int) *domain.Frequency {
	return &domain.Frequency{
		Slug:        rule,
		Recurrence:  recurrence.MustParse(rule),
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}
}

const (
	daily   = "FREQ=DAILY"
	mwf     = "FREQ=WEEKLY;BYDAY=MO,WE,FR"
	monthly = "FREQ=MONTHLY;BYMONTHDAY=1"
)

func TestCalcDueDate_Scenarios(t *testing.T) {
	calc, loc := newCalc(t)

	at := func(y int, m time.Month, d, h int) time.Time {
		return time.Date(y, m, d, h, 0, 0, 0, loc)
	}

	tests := []struct {
		name      string
		freq      *domain.Frequency
		due       time.Time
		completed time.Time
		want      time.Time
	}{
		{
			name:      "daily performed before due time",
			freq:      freq(daily, intPtr(0), 0),
			due:       at(2018, 10, 1, 7),
			completed: at(2018, 10, 1, 6),
			want:      at(2018, 10, 2, 7),
		},
		{
			name:      "mwf performed early on monday",
			freq:      freq(mwf, intPtr(0), 1),
			due:       at(2018, 10, 1, 7),
			completed: at(2018, 10, 1, 6),
			want:      at(2018, 10, 3, 7),
		},
		{
			name:      "mwf performed on saturday",
			freq:      freq(mwf, intPtr(0), 1),
			due:       at(2018, 10, 1, 7),
			completed: at(2018, 10, 6, 7),
			want:      at(2018, 10, 8, 7),
		},
		{
			name:      "monthly long overdue outside next window",
			freq:      freq(monthly, intPtr(7), 7),
			due:       at(2018, 4, 1, 0),
			completed: at(2018, 11, 20, 10),
			want:      at(2018, 12, 1, 0),
		},
		{
			name:      "monthly long overdue inside next window",
			freq:      freq(monthly, intPtr(7), 7),
			due:       at(2018, 4, 1, 0),
			completed: at(2018, 11, 27, 10),
			want:      at(2019, 1, 1, 0),
		},
		{
			name:      "classical daily",
			freq:      freq(daily, nil, 0),
			due:       at(2018, 10, 1, 7),
			completed: at(2018, 10, 1, 6),
			want:      at(2018, 10, 2, 6),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.CalcDueDate(tt.completed, timePtr(tt.due), tt.freq)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got == nil {
				t.Fatal("expected due date, got nil")
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCalcDueDate_TimezoneRegression(t *testing.T) {
	calc, loc := newCalc(t)
	f := freq(monthly, nil, 0)

	// 2018-11-01 02:00 UTC — это 31 октября 22:00 в Торонто.
	completed := time.Date(2018, 11, 1, 2, 0, 0, 0, time.UTC)
	// Due — локальная полночь 1 октября, хранится в UTC.
	due := time.Date(2018, 10, 1, 4, 0, 0, 0, time.UTC)

	got, err := calc.CalcDueDate(completed, &due, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gotDay := calc.Clock().Date(*got)
	if gotDay.String() != "2018-11-01" {
		t.Errorf("expected due on local 2018-11-01, got %s (%s)", gotDay, got)
	}
	if got.Location() != loc {
		t.Errorf("expected result in clock location, got %s", got.Location())
	}
}

func TestCalcDueDate_NilFrequency(t *testing.T) {
	calc, loc := newCalc(t)
	due := time.Date(2018, 10, 1, 7, 0, 0, 0, loc)

	got, err := calc.CalcDueDate(due, &due, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %s", got)
	}
}

func TestCalcDueDate_ClassicalIgnoresDue(t *testing.T) {
	calc, loc := newCalc(t)
	f := freq("FREQ=WEEKLY;INTERVAL=2;BYDAY=TU", nil, 0)
	completed := time.Date(2018, 10, 3, 9, 0, 0, 0, loc)

	var results []time.Time
	for _, due := range []*time.Time{
		nil,
		timePtr(time.Date(2018, 9, 25, 9, 0, 0, 0, loc)),
		timePtr(time.Date(2018, 10, 2, 9, 0, 0, 0, loc)),
		timePtr(time.Date(2019, 5, 7, 9, 0, 0, 0, loc)),
	} {
		got, err := calc.CalcDueDate(completed, due, f)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		results = append(results, *got)
	}

	for i := 1; i < len(results); i++ {
		if !results[i].Equal(results[0]) {
			t.Errorf("classical result depends on due date: %s vs %s", results[0], results[i])
		}
	}
}

func TestCalcDueDate_EarlyPerformanceKeepsDue(t *testing.T) {
	calc, loc := newCalc(t)
	f := freq(monthly, intPtr(7), 7)
	due := time.Date(2018, 12, 1, 0, 0, 0, 0, loc)

	// Окно открывается 24 ноября 00:00.
	for _, completed := range []time.Time{
		time.Date(2018, 11, 1, 12, 0, 0, 0, loc),
		time.Date(2018, 11, 23, 23, 59, 59, 0, loc),
	} {
		got, err := calc.CalcDueDate(completed, &due, f)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Equal(due) {
			t.Errorf("completed %s: expected due unchanged %s, got %s", completed, due, got)
		}
	}

	// Ровно на границе окна — расписание сдвигается.
	got, err := calc.CalcDueDate(time.Date(2018, 11, 24, 0, 0, 0, 0, loc), &due, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2019, 1, 1, 0, 0, 0, 0, loc); !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestCalcInitialDueDate(t *testing.T) {
	calc, loc := newCalc(t)

	tests := []struct {
		name      string
		freq      *domain.Frequency
		completed time.Time
		want      time.Time
	}{
		{
			name:      "outside next window",
			freq:      freq(monthly, intPtr(7), 7),
			completed: time.Date(2018, 11, 20, 10, 0, 0, 0, loc),
			want:      time.Date(2018, 12, 1, 10, 0, 0, 0, loc),
		},
		{
			name:      "inside next window",
			freq:      freq(monthly, intPtr(7), 7),
			completed: time.Date(2018, 11, 27, 10, 0, 0, 0, loc),
			want:      time.Date(2019, 1, 1, 10, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.CalcInitialDueDate(tt.completed, tt.freq)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	got, err := calc.CalcInitialDueDate(time.Now(), nil)
	if err != nil || got != nil {
		t.Errorf("expected nil, nil for nil frequency, got %v, %v", got, err)
	}
}

func TestWindow(t *testing.T) {
	calc, loc := newCalc(t)
	due := time.Date(2018, 12, 1, 0, 0, 0, 0, loc)

	start, end := calc.Window(&due, freq(monthly, intPtr(7), 7))
	if start == nil || end == nil {
		t.Fatal("expected both bounds")
	}
	if want := time.Date(2018, 11, 24, 0, 0, 0, 0, loc); !start.Equal(want) {
		t.Errorf("start: expected %s, got %s", want, start)
	}
	if want := time.Date(2018, 12, 8, 23, 59, 59, 999000000, loc); !end.Equal(want) {
		t.Errorf("end: expected %s, got %s", want, end)
	}

	start, end = calc.Window(&due, freq(monthly, nil, 3))
	if start != nil {
		t.Errorf("classical window should have no start, got %s", start)
	}
	if end == nil || calc.Clock().Date(*end).String() != "2018-12-04" {
		t.Errorf("unexpected end %v", end)
	}

	if s, e := calc.Window(nil, freq(monthly, intPtr(7), 7)); s != nil || e != nil {
		t.Error("Window(nil, f) should be (nil, nil)")
	}
	if s, e := calc.Window(&due, nil); s != nil || e != nil {
		t.Error("Window(d, nil) should be (nil, nil)")
	}
}

func TestWindow_UTCInstantUsesLocalDay(t *testing.T) {
	calc, loc := newCalc(t)

	// 2018-10-02 01:00 UTC — локально ещё 1 октября.
	due := time.Date(2018, 10, 2, 1, 0, 0, 0, time.UTC)
	start, _ := calc.Window(&due, freq(daily, intPtr(0), 0))
	if want := time.Date(2018, 10, 1, 0, 0, 0, 0, loc); !start.Equal(want) {
		t.Errorf("expected %s, got %s", want, start)
	}
}

func TestShouldUpdateSchedule(t *testing.T) {
	calc, loc := newCalc(t)
	due := time.Date(2018, 10, 3, 7, 0, 0, 0, loc)
	f := freq(mwf, intPtr(1), 1)

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{name: "before window", date: time.Date(2018, 10, 1, 23, 59, 59, 0, loc), want: false},
		{name: "window start inclusive", date: time.Date(2018, 10, 2, 0, 0, 0, 0, loc), want: true},
		{name: "after due", date: time.Date(2018, 10, 9, 0, 0, 0, 0, loc), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calc.ShouldUpdateSchedule(tt.date, &due, f); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if !calc.ShouldUpdateSchedule(due, &due, freq(mwf, nil, 0)) {
		t.Error("classical frequency always updates")
	}
	if !calc.ShouldUpdateSchedule(due, nil, f) {
		t.Error("missing due date always updates")
	}
}

func TestNominalIntervalDays(t *testing.T) {
	calc, _ := newCalc(t)

	tests := []struct {
		rule string
		want float64
	}{
		{rule: daily, want: 1},
		{rule: "FREQ=WEEKLY;BYDAY=MO", want: 7},
		{rule: "FREQ=WEEKLY;INTERVAL=2;BYDAY=TU", want: 14},
		{rule: monthly, want: 335.0 / 11.0},
		{rule: "FREQ=MONTHLY;INTERVAL=12", want: 366},
	}

	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			got, err := calc.NominalIntervalDays(recurrence.MustParse(tt.rule))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNominalIntervalDays_Degenerate(t *testing.T) {
	calc, _ := newCalc(t)

	_, err := calc.nominalIntervalDays(recurrence.MustParse("FREQ=MONTHLY;INTERVAL=24"), 1)
	if !errors.Is(err, ErrDegenerateRecurrence) {
		t.Errorf("expected ErrDegenerateRecurrence, got %v", err)
	}

	_, err = calc.NominalIntervalDays(recurrence.Rule{})
	if !errors.Is(err, recurrence.ErrInvalidRecurrence) {
		t.Errorf("expected ErrInvalidRecurrence for zero rule, got %v", err)
	}
}

func TestRecordPerformance(t *testing.T) {
	calc, loc := newCalc(t)
	now := time.Date(2018, 10, 10, 12, 0, 0, 0, loc)
	due := time.Date(2018, 10, 1, 7, 0, 0, 0, loc)
	window := freq(mwf, intPtr(0), 1)

	perf := func(at time.Time) *domain.PerformanceRecord {
		return &domain.PerformanceRecord{CompletedAt: at, CountsForScheduling: true, Valid: true}
	}

	t.Run("auto schedule off", func(t *testing.T) {
		s := &domain.Schedule{AutoSchedule: false, DueDate: timePtr(due)}
		changed, err := calc.RecordPerformance(s, window, perf(now), now)
		if err != nil || changed {
			t.Fatalf("expected no-op, got changed=%v err=%v", changed, err)
		}
		if !s.DueDate.Equal(due) {
			t.Errorf("due date changed to %s", s.DueDate)
		}
	})

	t.Run("no frequency keeps manual due", func(t *testing.T) {
		s := &domain.Schedule{AutoSchedule: true, DueDate: timePtr(due)}
		changed, err := calc.RecordPerformance(s, nil, perf(now), now)
		if err != nil || changed {
			t.Fatalf("expected no-op, got changed=%v err=%v", changed, err)
		}
		if !s.DueDate.Equal(due) {
			t.Errorf("due date changed to %s", s.DueDate)
		}
	})

	t.Run("no history and no due sets now", func(t *testing.T) {
		s := &domain.Schedule{AutoSchedule: true}
		changed, err := calc.RecordPerformance(s, window, nil, now)
		if err != nil || !changed {
			t.Fatalf("expected change, got changed=%v err=%v", changed, err)
		}
		if !s.DueDate.Equal(now) {
			t.Errorf("expected %s, got %s", now, s.DueDate)
		}
	})

	t.Run("no history keeps existing due", func(t *testing.T) {
		s := &domain.Schedule{AutoSchedule: true, DueDate: timePtr(due)}
		changed, err := calc.RecordPerformance(s, window, nil, now)
		if err != nil || changed {
			t.Fatalf("expected no-op, got changed=%v err=%v", changed, err)
		}
	})

	t.Run("advances due", func(t *testing.T) {
		s := &domain.Schedule{AutoSchedule: true, DueDate: timePtr(due)}
		changed, err := calc.RecordPerformance(s, window, perf(time.Date(2018, 10, 1, 6, 0, 0, 0, loc)), now)
		if err != nil || !changed {
			t.Fatalf("expected change, got changed=%v err=%v", changed, err)
		}
		if want := time.Date(2018, 10, 3, 7, 0, 0, 0, loc); !s.DueDate.Equal(want) {
			t.Errorf("expected %s, got %s", want, s.DueDate)
		}
	})

	t.Run("early performance is not a change", func(t *testing.T) {
		s := &domain.Schedule{AutoSchedule: true, DueDate: timePtr(due)}
		changed, err := calc.RecordPerformance(s, window, perf(time.Date(2018, 9, 29, 9, 0, 0, 0, loc)), now)
		if err != nil || changed {
			t.Fatalf("expected no change, got changed=%v err=%v", changed, err)
		}
	})

	t.Run("initial due for window frequency", func(t *testing.T) {
		s := &domain.Schedule{AutoSchedule: true}
		f := freq(monthly, intPtr(7), 7)
		changed, err := calc.RecordPerformance(s, f, perf(time.Date(2018, 11, 27, 10, 0, 0, 0, loc)), now)
		if err != nil || !changed {
			t.Fatalf("expected change, got changed=%v err=%v", changed, err)
		}
		if want := time.Date(2019, 1, 1, 10, 0, 0, 0, loc); !s.DueDate.Equal(want) {
			t.Errorf("expected %s, got %s", want, s.DueDate)
		}
	})
}

func TestDueStatus(t *testing.T) {
	calc, loc := newCalc(t)
	due := time.Date(2018, 10, 3, 7, 0, 0, 0, loc)
	f := freq(mwf, intPtr(0), 2)

	tests := []struct {
		name string
		due  *time.Time
		freq *domain.Frequency
		now  time.Time
		want domain.DueStatus
	}{
		{name: "no due date", due: nil, freq: f, now: due, want: domain.DueStatusNoDueDate},
		{name: "day before", due: &due, freq: f, now: time.Date(2018, 10, 2, 23, 0, 0, 0, loc), want: domain.DueStatusNotDue},
		{name: "due day before due time", due: &due, freq: f, now: time.Date(2018, 10, 3, 1, 0, 0, 0, loc), want: domain.DueStatusDue},
		{name: "last day of window", due: &due, freq: f, now: time.Date(2018, 10, 4, 23, 0, 0, 0, loc), want: domain.DueStatusDue},
		{name: "window closed", due: &due, freq: f, now: time.Date(2018, 10, 5, 0, 0, 0, 0, loc), want: domain.DueStatusOverdue},
		{name: "no frequency grace day", due: &due, freq: nil, now: time.Date(2018, 10, 3, 20, 0, 0, 0, loc), want: domain.DueStatusDue},
		{name: "no frequency next day", due: &due, freq: nil, now: time.Date(2018, 10, 4, 0, 0, 0, 0, loc), want: domain.DueStatusOverdue},
		{name: "zero window end", due: &due, freq: freq(daily, intPtr(0), 0), now: due, want: domain.DueStatusOverdue},
		{
			name: "utc instant local day",
			due:  &due,
			freq: f,
			// 2018-10-03 02:00 UTC — локально 2 октября.
			now:  time.Date(2018, 10, 3, 2, 0, 0, 0, time.UTC),
			want: domain.DueStatusNotDue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.DueStatus(tt.due, tt.freq, tt.now)
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
			if again := calc.DueStatus(tt.due, tt.freq, tt.now); again != got {
				t.Errorf("DueStatus is not stable: %s then %s", got, again)
			}
		})
	}
}
