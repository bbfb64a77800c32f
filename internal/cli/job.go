package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewJobCmd создаёт группу команд для управления jobs.
func NewJobCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage jobs",
	}

	cmd.AddCommand(
		newJobListCmd(clientFn, outputFn),
		newJobSubmitCmd(clientFn, outputFn),
		newJobShowCmd(clientFn, outputFn),
		newJobCancelCmd(clientFn, outputFn),
		newJobRetryCmd(clientFn, outputFn),
		newJobResultCmd(clientFn, outputFn),
		newJobAttemptsCmd(clientFn, outputFn),
		newJobTasksCmd(clientFn, outputFn),
	)

	return cmd
}

var jobHeaders = []string{"ID", "NAME", "STATUS", "ATTEMPT", "METHOD", "URL", "CREATED"}

func jobRow(j JobResponse) []string {
	attempt := fmt.Sprintf("%d/%d", j.Attempt, j.MaxAttempts)
	return []string{j.ID, j.Name, j.Status, attempt, j.Method, j.URL, j.CreatedAt}
}

func newJobListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var masterID string
	var tag string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			jobs, err := client.ListJobs(ListJobsOpts{
				Status:   status,
				MasterID: masterID,
				Tag:      tag,
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(jobs))
			for i, j := range jobs {
				rows[i] = jobRow(j)
			}

			out.Print(jobHeaders, rows, jobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (QUEUED, RUNNING, SUCCEEDED, FAILED, CANCELLED)")
	cmd.Flags().StringVar(&masterID, "master-id", "", "Filter by job master ID")
	cmd.Flags().StringVar(&tag, "tag", "", "Filter by tag")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newJobSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var params []string
	var bodyFile string
	var priority int
	var scheduledAt string

	cmd := &cobra.Command{
		Use:   "submit MASTER_ID",
		Short: "Submit a job from a job master",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := SubmitJobRequest{Name: name}

			if cmd.Flags().Changed("priority") {
				req.Priority = &priority
			}
			if scheduledAt != "" {
				req.ScheduledAt = &scheduledAt
			}

			if len(params) > 0 {
				req.Params = make(map[string]any)
				for _, kv := range params {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid param format %q, expected KEY=VALUE", kv)
					}
					req.Params[parts[0]] = parts[1]
				}
			}

			if bodyFile != "" {
				data, err := os.ReadFile(bodyFile)
				if err != nil {
					return fmt.Errorf("failed to read body file: %w", err)
				}
				var body any
				if err := json.Unmarshal(data, &body); err != nil {
					return fmt.Errorf("body file is not valid JSON: %w", err)
				}
				req.Body = body
			}

			job, err := client.SubmitJob(args[0], req)
			if err != nil {
				return err
			}

			out.Successf("Job submitted: %s", job.ID)
			out.Print(jobHeaders, [][]string{jobRow(*job)}, job)
			return nil
		},
		Args: cobra.ExactArgs(1),
	}

	cmd.Flags().StringVar(&name, "name", "", "Job name override")
	cmd.Flags().StringSliceVar(&params, "param", nil, "Query param override as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "Path to JSON file with body override")
	cmd.Flags().IntVar(&priority, "priority", 0, "Priority override")
	cmd.Flags().StringVar(&scheduledAt, "scheduled-at", "", "Delay execution until RFC3339 timestamp")

	return cmd
}

func newJobShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			job, err := client.GetJob(args[0])
			if err != nil {
				return err
			}

			out.Print(jobHeaders, [][]string{jobRow(*job)}, job)
			return nil
		},
	}
}

func newJobCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a queued or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			job, err := client.CancelJob(args[0])
			if err != nil {
				return err
			}

			out.Successf("Job cancelled: %s", job.ID)
			return nil
		},
	}
}

func newJobRetryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var fromTask int

	cmd := &cobra.Command{
		Use:   "retry ID",
		Short: "Re-run a finished job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var job *JobResponse
			var err error
			if cmd.Flags().Changed("from-task") {
				job, err = client.RetryJobFromTask(args[0], fromTask)
			} else {
				job, err = client.RetryJob(args[0])
			}
			if err != nil {
				return err
			}

			out.Successf("Job requeued: %s", job.ID)
			out.Print(jobHeaders, [][]string{jobRow(*job)}, job)
			return nil
		},
	}

	cmd.Flags().IntVar(&fromTask, "from-task", 0, "Re-run starting from the task with this order")

	return cmd
}

func newJobResultCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "result JOB_ID",
		Short: "Show the final result of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			result, err := client.GetJobResult(args[0])
			if err != nil {
				return err
			}

			status := ""
			if result.ResponseStatus != nil {
				status = strconv.Itoa(*result.ResponseStatus)
			}

			out.Print(
				[]string{"JOB_ID", "STATUS", "ERROR", "DURATION_MS", "CREATED"},
				[][]string{{result.JobID, status, result.Error, strconv.Itoa(result.DurationMs), result.CreatedAt}},
				result,
			)
			return nil
		},
	}
}

func newJobAttemptsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "attempts JOB_ID",
		Short: "List per-attempt results of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			attempts, err := client.ListJobAttempts(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ATTEMPT", "STATUS", "ERROR", "DURATION_MS", "CREATED"}
			rows := make([][]string, len(attempts))
			for i, a := range attempts {
				status := ""
				if a.ResponseStatus != nil {
					status = strconv.Itoa(*a.ResponseStatus)
				}
				rows[i] = []string{strconv.Itoa(a.Attempt), status, a.Error, strconv.Itoa(a.DurationMs), a.CreatedAt}
			}

			out.Print(headers, rows, attempts)
			return nil
		},
	}
}

func newJobTasksCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks JOB_ID",
		Short: "List tasks in a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			tasks, err := client.ListJobTasks(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ORDER", "MASTER_ID", "STATUS", "ATTEMPT", "ERROR"}
			rows := make([][]string, len(tasks))
			for i, t := range tasks {
				rows[i] = []string{
					strconv.Itoa(t.Order), t.MasterID, t.Status,
					strconv.Itoa(t.Attempt), t.Error,
				}
			}

			out.Print(headers, rows, tasks)
			return nil
		},
	}
}
