// QCSched CLI — инструмент командной строки для управления
// частотами, schedules и выполнениями QC-задач через HTTP API.
//
// Использование:
//
//	qcsched [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	frequency  Управление частотами
//	schedule   Управление schedules и выполнениями
//	calc       Офлайн-расчёт due date
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/QCSched/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "qcsched",
		Short:         "QCSched CLI — QC task due date scheduling",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("QCSCHED_API_URL"); v != "" {
		defaultURL = v
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewFrequencyCmd(clientFn, outputFn),
		cli.NewScheduleCmd(clientFn, outputFn),
		cli.NewCalcCmd(outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
