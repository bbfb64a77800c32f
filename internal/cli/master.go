package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewMasterCmd создаёт группу команд для управления job masters.
func NewMasterCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "master",
		Short: "Manage job masters",
	}

	cmd.AddCommand(
		newMasterListCmd(clientFn, outputFn),
		newMasterCreateCmd(clientFn, outputFn),
		newMasterShowCmd(clientFn, outputFn),
		newMasterUpdateCmd(clientFn, outputFn),
		newMasterDeleteCmd(clientFn, outputFn),
		newMasterWorkflowCmd(clientFn, outputFn),
		newMasterSetWorkflowCmd(clientFn, outputFn),
		newMasterValidateCmd(clientFn, outputFn),
	)

	return cmd
}

func masterRow(m JobMasterResponse) []string {
	return []string{
		m.ID, m.Name, m.Method, m.URL,
		strconv.Itoa(m.CurrentVersion), strconv.FormatBool(m.IsActive),
		strings.Join(m.Tags, ","),
	}
}

var masterHeaders = []string{"ID", "NAME", "METHOD", "URL", "VERSION", "ACTIVE", "TAGS"}

func newMasterListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var tag string
	var active string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List job masters",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			opts := ListMastersOpts{Tag: tag, Limit: limit}
			if cmd.Flags().Changed("active") {
				b, err := strconv.ParseBool(active)
				if err != nil {
					return fmt.Errorf("invalid value for --active: %s", active)
				}
				opts.Active = &b
			}

			masters, err := client.ListJobMasters(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(masters))
			for i, m := range masters {
				rows[i] = masterRow(m)
			}

			out.Print(masterHeaders, rows, masters)
			return nil
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "Filter by tag")
	cmd.Flags().StringVar(&active, "active", "", "Filter by active status (true/false)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newMasterCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req CreateMasterRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new job master",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			master, err := client.CreateJobMaster(req)
			if err != nil {
				return err
			}

			out.Successf("Job master created: %s", master.ID)
			out.Print(masterHeaders, [][]string{masterRow(*master)}, master)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Master name (required)")
	cmd.Flags().StringVar(&req.Method, "method", "GET", "HTTP method")
	cmd.Flags().StringVar(&req.URL, "url", "", "Target URL (required)")
	cmd.Flags().IntVar(&req.TimeoutSec, "timeout", 0, "Request timeout in seconds")
	cmd.Flags().IntVar(&req.MaxAttempts, "max-attempts", 0, "Maximum retry attempts")
	cmd.Flags().StringVar(&req.BackoffStrategy, "backoff", "", "Backoff strategy (fixed, linear, exponential)")
	cmd.Flags().StringSliceVar(&req.Tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringVar(&req.CreatedBy, "created-by", "", "Author name")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("url")

	return cmd
}

func newMasterShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show job master details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			master, err := client.GetJobMaster(args[0])
			if err != nil {
				return err
			}

			out.Print(masterHeaders, [][]string{masterRow(*master)}, master)
			return nil
		},
	}
}

func newMasterUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name, method, urlFlag, backoff, active, updatedBy string
	var maxAttempts int

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a job master",
		Long: `Update a job master. Changes to method, URL, headers, params, body
or tags create a new version of the master.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := UpdateMasterRequest{UpdatedBy: updatedBy}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("method") {
				req.Method = &method
			}
			if cmd.Flags().Changed("url") {
				req.URL = &urlFlag
			}
			if cmd.Flags().Changed("max-attempts") {
				req.MaxAttempts = &maxAttempts
			}
			if cmd.Flags().Changed("backoff") {
				req.BackoffStrategy = &backoff
			}
			if cmd.Flags().Changed("active") {
				b, err := strconv.ParseBool(active)
				if err != nil {
					return fmt.Errorf("invalid value for --active: %s", active)
				}
				req.IsActive = &b
			}

			master, err := client.UpdateJobMaster(args[0], req)
			if err != nil {
				return err
			}

			out.Successf("Job master updated, current version %d", master.CurrentVersion)
			out.Print(masterHeaders, [][]string{masterRow(*master)}, master)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New master name")
	cmd.Flags().StringVar(&method, "method", "", "New HTTP method")
	cmd.Flags().StringVar(&urlFlag, "url", "", "New target URL")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "New maximum retry attempts")
	cmd.Flags().StringVar(&backoff, "backoff", "", "New backoff strategy")
	cmd.Flags().StringVar(&active, "active", "", "Set active status (true/false)")
	cmd.Flags().StringVar(&updatedBy, "updated-by", "", "Author name")

	return cmd
}

func newMasterDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a job master",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteJobMaster(args[0]); err != nil {
				return err
			}

			out.Successf("Job master deleted: %s", args[0])
			return nil
		},
	}
}

func newMasterWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "workflow MASTER_ID",
		Short: "Show the workflow steps of a job master",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			steps, err := client.GetWorkflow(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ORDER", "TASK_MASTER_ID", "TASK", "REQUIRED", "RETRY"}
			rows := make([][]string, len(steps))
			for i, s := range steps {
				taskName := ""
				if s.TaskMaster != nil {
					taskName = s.TaskMaster.Name
				}
				rows[i] = []string{
					strconv.Itoa(s.Order), s.TaskMasterID, taskName,
					strconv.FormatBool(s.IsRequired), strconv.FormatBool(s.RetryOnFailure),
				}
			}

			out.Print(headers, rows, steps)
			return nil
		},
	}
}

func newMasterSetWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var stepsFile string

	cmd := &cobra.Command{
		Use:   "set-workflow MASTER_ID",
		Short: "Replace the workflow steps of a job master from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(stepsFile)
			if err != nil {
				return fmt.Errorf("failed to read steps file: %w", err)
			}

			// Валидируем что это валидный JSON
			if !json.Valid(data) {
				return fmt.Errorf("steps file is not valid JSON")
			}

			steps, err := client.ReplaceWorkflow(args[0], json.RawMessage(data))
			if err != nil {
				return err
			}

			out.Successf("Workflow replaced: %d steps", len(steps))
			return nil
		},
	}

	cmd.Flags().StringVar(&stepsFile, "steps-file", "", "Path to steps JSON file (required)")
	cmd.MarkFlagRequired("steps-file")

	return cmd
}

func newMasterValidateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate MASTER_ID",
		Short: "Validate the workflow of a job master",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			report, err := client.ValidateWorkflow(args[0])
			if err != nil {
				return err
			}

			// Отчёт имеет вложенную структуру, выводим всегда как JSON.
			out.JSON(report)
			return nil
		},
	}
}
