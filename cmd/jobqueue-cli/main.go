// Jobqueue CLI — инструмент командной строки для управления
// job masters, task masters, версиями и jobs через HTTP API.
//
// Использование:
//
//	jobqueue [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	master       Управление job masters и их workflow
//	task-master  Управление task masters
//	version      История версий masters
//	job          Управление jobs
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/jobqueue/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "jobqueue",
		Short:         "Jobqueue CLI — persistent HTTP job queue tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewMasterCmd(clientFn, outputFn),
		cli.NewTaskMasterCmd(clientFn, outputFn),
		cli.NewVersionCmd(clientFn, outputFn),
		cli.NewJobCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
