package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var performanceHeaders = []string{"ID", "COMPLETED_AT", "COUNTS", "VALID", "COMMENT"}

func performanceRow(p PerformanceResponse) []string {
	return []string{
		p.ID, p.CompletedAt,
		strconv.FormatBool(p.CountsForScheduling), strconv.FormatBool(p.Valid),
		p.Comment,
	}
}

func newSchedulePerformCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var at, comment, key, timezone string
	var noCount bool

	cmd := &cobra.Command{
		Use:   "perform ID",
		Short: "Record a performance and recompute the due date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := RecordPerformanceRequest{
				Comment:        comment,
				IdempotencyKey: key,
			}
			if at != "" {
				t, err := parseTime(at, timezone)
				if err != nil {
					return err
				}
				req.CompletedAt = &t
			}
			if noCount {
				f := false
				req.CountsForScheduling = &f
			}

			res, err := client.RecordPerformance(args[0], req)
			if err != nil {
				return err
			}

			if res.Changed {
				out.Success(fmt.Sprintf("Performance recorded, next due: %s", res.Schedule.DueDate))
			} else {
				out.Success("Performance recorded, due date unchanged")
			}
			out.Print(scheduleHeaders, [][]string{scheduleRow(res.Schedule)}, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Completion time (RFC3339 or YYYY-MM-DD, default: now)")
	cmd.Flags().StringVar(&comment, "comment", "", "Comment")
	cmd.Flags().StringVar(&key, "idempotency-key", "", "Idempotency key")
	cmd.Flags().StringVar(&timezone, "timezone", "", "Timezone for date-only values (default: local)")
	cmd.Flags().BoolVar(&noCount, "no-count", false, "Do not count this performance for scheduling")

	return cmd
}

func newSchedulePerformancesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "performances ID",
		Short: "List performance history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			records, err := client.ListPerformances(args[0], limit)
			if err != nil {
				return err
			}

			rows := make([][]string, len(records))
			for i, p := range records {
				rows[i] = performanceRow(p)
			}

			out.Print(performanceHeaders, rows, records)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Max results")

	return cmd
}

func newScheduleInvalidateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var restore bool

	cmd := &cobra.Command{
		Use:   "invalidate PERFORMANCE_ID",
		Short: "Invalidate (or restore) a performance record and recompute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			res, err := client.SetPerformanceValid(args[0], restore)
			if err != nil {
				return err
			}

			if restore {
				out.Success(fmt.Sprintf("Performance restored: %s", args[0]))
			} else {
				out.Success(fmt.Sprintf("Performance invalidated: %s", args[0]))
			}
			out.Print(scheduleHeaders, [][]string{scheduleRow(res.Schedule)}, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&restore, "restore", false, "Mark the record valid again")

	return cmd
}
