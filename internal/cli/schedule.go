package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewScheduleCmd создаёт группу команд для управления schedules.
func NewScheduleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage QC schedules",
	}

	cmd.AddCommand(
		newScheduleListCmd(clientFn, outputFn),
		newScheduleCreateCmd(clientFn, outputFn),
		newScheduleShowCmd(clientFn, outputFn),
		newScheduleUpdateCmd(clientFn, outputFn),
		newScheduleDeleteCmd(clientFn, outputFn),
		newScheduleSetDueCmd(clientFn, outputFn),
		newScheduleRecomputeCmd(clientFn, outputFn),
		newScheduleWindowCmd(clientFn, outputFn),
		newSchedulePerformCmd(clientFn, outputFn),
		newSchedulePerformancesCmd(clientFn, outputFn),
		newScheduleInvalidateCmd(clientFn, outputFn),
	)

	return cmd
}

var scheduleHeaders = []string{"ID", "NAME", "FREQUENCY", "DUE", "STATUS", "AUTO", "ACTIVE"}

func scheduleRow(s ScheduleResponse) []string {
	return []string{
		s.ID, s.Name, s.Frequency, s.DueDate, s.DueStatus,
		strconv.FormatBool(s.AutoSchedule), strconv.FormatBool(s.Active),
	}
}

func newScheduleListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListSchedulesOpts
	var active bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schedules with due status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if cmd.Flags().Changed("active") {
				opts.Active = &active
			}

			schedules, err := client.ListSchedules(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(schedules))
			for i, s := range schedules {
				rows[i] = scheduleRow(s)
			}

			out.Print(scheduleHeaders, rows, schedules)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Frequency, "frequency", "", "Filter by frequency ID or slug")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (NO_DUE_DATE, NOT_DUE, DUE, OVERDUE)")
	cmd.Flags().BoolVar(&active, "active", true, "Filter by active flag")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Max results")

	return cmd
}

func newScheduleCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name, frequency, due, assignedTo, timezone string
	var manual, inactive bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := CreateScheduleRequest{
				Name:       name,
				Frequency:  frequency,
				AssignedTo: assignedTo,
			}
			if due != "" {
				t, err := parseTime(due, timezone)
				if err != nil {
					return err
				}
				req.DueDate = &t
			}
			if manual {
				f := false
				req.AutoSchedule = &f
			}
			if inactive {
				f := false
				req.Active = &f
			}

			schedule, err := client.CreateSchedule(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schedule created: %s", schedule.ID))
			out.Print(scheduleHeaders, [][]string{scheduleRow(*schedule)}, schedule)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Schedule name (required)")
	cmd.Flags().StringVar(&frequency, "frequency", "", "Frequency ID or slug")
	cmd.Flags().StringVar(&due, "due", "", "Initial due date (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&assignedTo, "assigned-to", "", "Assignee")
	cmd.Flags().StringVar(&timezone, "timezone", "", "Timezone for date-only values (default: local)")
	cmd.Flags().BoolVar(&manual, "manual", false, "Disable automatic due date calculation")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the schedule inactive")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newScheduleShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show schedule details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			s, err := client.GetSchedule(args[0])
			if err != nil {
				return err
			}

			out.Detail([]Field{
				{"ID", s.ID},
				{"Name", s.Name},
				{"Frequency", s.Frequency},
				{"Due", s.DueDate},
				{"Status", s.DueStatus},
				{"Window", formatRange(s.WindowStart, s.WindowEnd)},
				{"Auto schedule", strconv.FormatBool(s.AutoSchedule)},
				{"Active", strconv.FormatBool(s.Active)},
				{"Assigned to", s.AssignedTo},
			}, s)
			return nil
		},
	}
}

func newScheduleUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name, frequency, assignedTo string
	var auto, active, clearFrequency bool

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := UpdateScheduleRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("frequency") {
				req.Frequency = &frequency
			}
			if clearFrequency {
				empty := ""
				req.FrequencyID = &empty
			}
			if cmd.Flags().Changed("auto") {
				req.AutoSchedule = &auto
			}
			if cmd.Flags().Changed("active") {
				req.Active = &active
			}
			if cmd.Flags().Changed("assigned-to") {
				req.AssignedTo = &assignedTo
			}

			s, err := client.UpdateSchedule(args[0], req)
			if err != nil {
				return err
			}

			out.Success("Schedule updated")
			out.Print(scheduleHeaders, [][]string{scheduleRow(*s)}, s)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New schedule name")
	cmd.Flags().StringVar(&frequency, "frequency", "", "New frequency ID or slug")
	cmd.Flags().BoolVar(&clearFrequency, "no-frequency", false, "Detach the frequency (ad-hoc schedule)")
	cmd.Flags().BoolVar(&auto, "auto", true, "Automatic due date calculation")
	cmd.Flags().BoolVar(&active, "active", true, "Active flag")
	cmd.Flags().StringVar(&assignedTo, "assigned-to", "", "Assignee")
	cmd.MarkFlagsMutuallyExclusive("frequency", "no-frequency")

	return cmd
}

func newScheduleDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteSchedule(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schedule deleted: %s", args[0]))
			return nil
		},
	}
}

func newScheduleSetDueCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var timezone string
	var clearDue bool

	cmd := &cobra.Command{
		Use:   "set-due ID [DATE]",
		Short: "Set the due date manually",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var due *time.Time
			switch {
			case clearDue:
			case len(args) == 2:
				t, err := parseTime(args[1], timezone)
				if err != nil {
					return err
				}
				due = &t
			default:
				return fmt.Errorf("DATE is required unless --clear is set")
			}

			s, err := client.SetDueDate(args[0], due)
			if err != nil {
				return err
			}

			out.Success("Due date set")
			out.Print(scheduleHeaders, [][]string{scheduleRow(*s)}, s)
			return nil
		},
	}

	cmd.Flags().StringVar(&timezone, "timezone", "", "Timezone for date-only values (default: local)")
	cmd.Flags().BoolVar(&clearDue, "clear", false, "Clear the due date")

	return cmd
}

func newScheduleRecomputeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute ID",
		Short: "Recompute the due date from performance history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			s, err := client.Recompute(args[0])
			if err != nil {
				return err
			}

			out.Print(scheduleHeaders, [][]string{scheduleRow(*s)}, s)
			return nil
		},
	}
}

func newScheduleWindowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "window ID",
		Short: "Show the QC window of the current due date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			w, err := client.GetWindow(args[0])
			if err != nil {
				return err
			}

			out.Detail([]Field{
				{"Schedule", w.ScheduleID},
				{"Due", w.DueDate},
				{"Status", w.DueStatus},
				{"Window", formatRange(w.Start, w.End)},
			}, w)
			return nil
		},
	}
}

// formatRange: "start .. end", пусто для классической частоты.
func formatRange(start, end string) string {
	if start == "" && end == "" {
		return ""
	}
	return start + " .. " + end
}

// parseTime принимает RFC3339 или локальное время без зоны (в timezone, по умолчанию Local).
func parseTime(s, timezone string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	loc := time.Local
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
		}
		loc = l
	}

	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected RFC3339, YYYY-MM-DD or YYYY-MM-DDTHH:MM", s)
}

// localLayouts — форматы без зоны, интерпретируются в timezone.
var localLayouts = []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}
