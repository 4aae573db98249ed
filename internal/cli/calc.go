package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/QCSched/internal/calendar"
	"github.com/shaiso/QCSched/internal/domain"
	"github.com/shaiso/QCSched/internal/recurrence"
	"github.com/shaiso/QCSched/internal/scheduling"
)

// CalcResult — результат офлайн-расчёта due date.
type CalcResult struct {
	Recurrence      string  `json:"recurrence"`
	Mode            string  `json:"mode"`
	Timezone        string  `json:"timezone"`
	Completed       string  `json:"completed"`
	PreviousDue     string  `json:"previous_due,omitempty"`
	DueDate         string  `json:"due_date,omitempty"`
	WindowStart     string  `json:"window_start,omitempty"`
	WindowEnd       string  `json:"window_end,omitempty"`
	Status          string  `json:"status"`
	NominalInterval float64 `json:"nominal_interval"`
}

// NewCalcCmd создаёт команду офлайн-расчёта due date.
// Сервер не нужен: используется тот же калькулятор, что и в scheduler.
func NewCalcCmd(outputFn func() *Output) *cobra.Command {
	var ff frequencyFlags
	var completed, due, now, timezone string

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate the next due date for a rule without a server",
		Example: `  qcsched calc --rrule 'FREQ=WEEKLY;BYDAY=MO,WE,FR' --window-end 1 \
    --due 2018-10-01T07:00 --completed 2018-10-01T06:00`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			res, err := runCalc(ff, completed, due, now, timezone)
			if err != nil {
				return err
			}

			out.Detail([]Field{
				{"Recurrence", res.Recurrence},
				{"Mode", res.Mode},
				{"Completed", res.Completed},
				{"Previous due", res.PreviousDue},
				{"Due", res.DueDate},
				{"Window", formatRange(res.WindowStart, res.WindowEnd)},
				{"Status", res.Status},
				{"Nominal days", fmt.Sprintf("%.2f", res.NominalInterval)},
			}, res)
			return nil
		},
	}

	ff.register(cmd)
	cmd.Flags().StringVar(&completed, "completed", "", "Completion time (RFC3339 or local YYYY-MM-DDTHH:MM)")
	cmd.Flags().StringVar(&due, "due", "", "Current due date (empty: no due date yet)")
	cmd.Flags().StringVar(&now, "now", "", "Evaluate status at this time (default: now)")
	cmd.Flags().StringVar(&timezone, "timezone", calendar.DefaultTimezone, "QC timezone")
	cmd.MarkFlagRequired("rrule")
	cmd.MarkFlagRequired("completed")

	return cmd
}

func runCalc(ff frequencyFlags, completedStr, dueStr, nowStr, timezone string) (*CalcResult, error) {
	clock, err := calendar.Load(timezone)
	if err != nil {
		return nil, err
	}
	calc := scheduling.New(clock)

	rule, err := recurrence.Parse(ff.recurrence)
	if err != nil {
		return nil, err
	}
	nominal, err := calc.NominalIntervalDays(rule)
	if err != nil {
		return nil, err
	}

	req := ff.request()
	f := &domain.Frequency{
		Name:            ff.name,
		Recurrence:      rule,
		WindowStart:     req.WindowStart,
		WindowEnd:       req.WindowEnd,
		NominalInterval: nominal,
	}
	if f.WindowEnd < 0 || (f.WindowStart != nil && *f.WindowStart < 0) {
		return nil, fmt.Errorf("window bounds must be >= 0")
	}

	tz := clock.Location().String()
	completed, err := parseTime(completedStr, tz)
	if err != nil {
		return nil, err
	}

	s := &domain.Schedule{AutoSchedule: true}
	if dueStr != "" {
		d, err := parseTime(dueStr, tz)
		if err != nil {
			return nil, err
		}
		s.DueDate = &d
	}
	previous := s.DueDate

	at := clock.Now()
	if nowStr != "" {
		if at, err = parseTime(nowStr, tz); err != nil {
			return nil, err
		}
	}

	last := &domain.PerformanceRecord{CompletedAt: completed, CountsForScheduling: true, Valid: true}
	if _, err := calc.RecordPerformance(s, f, last, at); err != nil {
		return nil, err
	}

	start, end := calc.Window(s.DueDate, f)

	res := &CalcResult{
		Recurrence:      rule.String(),
		Mode:            "window",
		Timezone:        tz,
		Completed:       formatTime(clock, &completed),
		PreviousDue:     formatTime(clock, previous),
		DueDate:         formatTime(clock, s.DueDate),
		WindowStart:     formatTime(clock, start),
		WindowEnd:       formatTime(clock, end),
		Status:          calc.DueStatus(s.DueDate, f, at).String(),
		NominalInterval: nominal,
	}
	if f.IsClassical() {
		res.Mode = "classical"
	}
	return res, nil
}

func formatTime(clock *calendar.Clock, t *time.Time) string {
	if t == nil {
		return ""
	}
	return clock.In(*t).Format(time.RFC3339)
}
