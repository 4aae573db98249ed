package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewFrequencyCmd создаёт группу команд для управления частотами.
func NewFrequencyCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "frequency",
		Aliases: []string{"freq"},
		Short:   "Manage QC frequencies",
	}

	cmd.AddCommand(
		newFrequencyListCmd(clientFn, outputFn),
		newFrequencyCreateCmd(clientFn, outputFn),
		newFrequencyShowCmd(clientFn, outputFn),
		newFrequencyUpdateCmd(clientFn, outputFn),
		newFrequencyDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

var frequencyHeaders = []string{"ID", "SLUG", "NAME", "RECURRENCE", "WINDOW", "NOMINAL_DAYS"}

func frequencyRow(f FrequencyResponse) []string {
	return []string{
		f.ID, f.Slug, f.Name, f.Recurrence,
		formatWindow(f.WindowStart, f.WindowEnd),
		strconv.FormatFloat(f.NominalInterval, 'f', 2, 64),
	}
}

// formatWindow: "-0/+1" для оконной частоты, "classical/+1" для классической.
func formatWindow(start *int, end int) string {
	if start == nil {
		return fmt.Sprintf("classical/+%d", end)
	}
	return fmt.Sprintf("-%d/+%d", *start, end)
}

func newFrequencyListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List frequencies ordered by nominal interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			frequencies, err := client.ListFrequencies()
			if err != nil {
				return err
			}

			rows := make([][]string, len(frequencies))
			for i, f := range frequencies {
				rows[i] = frequencyRow(f)
			}

			out.Print(frequencyHeaders, rows, frequencies)
			return nil
		},
	}
}

// frequencyFlags — общие флаги create/update.
type frequencyFlags struct {
	name        string
	slug        string
	recurrence  string
	windowStart int
	classical   bool
	windowEnd   int
}

func (ff *frequencyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ff.name, "name", "", "Display name (defaults to slug)")
	cmd.Flags().StringVar(&ff.slug, "slug", "", "Unique slug")
	cmd.Flags().StringVar(&ff.recurrence, "rrule", "", "Recurrence rule (e.g. 'FREQ=WEEKLY;BYDAY=MO,WE,FR')")
	cmd.Flags().IntVar(&ff.windowStart, "window-start", 0, "Days before due date the QC window opens")
	cmd.Flags().BoolVar(&ff.classical, "classical", false, "Classical scheduling (no window start)")
	cmd.Flags().IntVar(&ff.windowEnd, "window-end", 0, "Days after due date the QC window closes")
}

func (ff *frequencyFlags) request() FrequencyRequest {
	req := FrequencyRequest{
		Name:       ff.name,
		Slug:       ff.slug,
		Recurrence: ff.recurrence,
		WindowEnd:  ff.windowEnd,
	}
	if !ff.classical {
		ws := ff.windowStart
		req.WindowStart = &ws
	}
	return req
}

func newFrequencyCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var ff frequencyFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a frequency",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			f, err := client.CreateFrequency(ff.request())
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Frequency created: %s", f.Slug))
			out.Print(frequencyHeaders, [][]string{frequencyRow(*f)}, f)
			return nil
		},
	}

	ff.register(cmd)
	cmd.MarkFlagRequired("slug")
	cmd.MarkFlagRequired("rrule")

	return cmd
}

func newFrequencyShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID|SLUG",
		Short: "Show frequency details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			f, err := client.GetFrequency(args[0])
			if err != nil {
				return err
			}

			out.Detail([]Field{
				{"ID", f.ID},
				{"Slug", f.Slug},
				{"Name", f.Name},
				{"Recurrence", f.Recurrence},
				{"Window", formatWindow(f.WindowStart, f.WindowEnd)},
				{"Classical", strconv.FormatBool(f.Classical)},
				{"Nominal days", strconv.FormatFloat(f.NominalInterval, 'f', 2, 64)},
			}, f)
			return nil
		},
	}
}

func newFrequencyUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var ff frequencyFlags

	cmd := &cobra.Command{
		Use:   "update ID|SLUG",
		Short: "Replace a frequency definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			f, err := client.UpdateFrequency(args[0], ff.request())
			if err != nil {
				return err
			}

			out.Success("Frequency updated")
			out.Print(frequencyHeaders, [][]string{frequencyRow(*f)}, f)
			return nil
		},
	}

	ff.register(cmd)
	cmd.MarkFlagRequired("rrule")

	return cmd
}

func newFrequencyDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID|SLUG",
		Short: "Delete a frequency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteFrequency(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Frequency deleted: %s", args[0]))
			return nil
		},
	}
}
