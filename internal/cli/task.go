package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewTaskMasterCmd создаёт группу команд для управления task masters.
func NewTaskMasterCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task-master",
		Short: "Manage task masters",
	}

	cmd.AddCommand(
		newTaskMasterListCmd(clientFn, outputFn),
		newTaskMasterCreateCmd(clientFn, outputFn),
		newTaskMasterShowCmd(clientFn, outputFn),
		newTaskMasterUpdateCmd(clientFn, outputFn),
		newTaskMasterDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func taskMasterRow(m TaskMasterResponse) []string {
	return []string{
		m.ID, m.Name, m.Method, m.URL,
		strconv.Itoa(m.CurrentVersion), strconv.FormatBool(m.IsActive),
	}
}

var taskMasterHeaders = []string{"ID", "NAME", "METHOD", "URL", "VERSION", "ACTIVE"}

func newTaskMasterListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var tag string
	var active string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List task masters",
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

			masters, err := client.ListTaskMasters(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(masters))
			for i, m := range masters {
				rows[i] = taskMasterRow(m)
			}

			out.Print(taskMasterHeaders, rows, masters)
			return nil
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "Filter by tag")
	cmd.Flags().StringVar(&active, "active", "", "Filter by active status (true/false)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newTaskMasterCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req CreateTaskMasterRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new task master",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			master, err := client.CreateTaskMaster(req)
			if err != nil {
				return err
			}

			out.Successf("Task master created: %s", master.ID)
			out.Print(taskMasterHeaders, [][]string{taskMasterRow(*master)}, master)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Master name (required)")
	cmd.Flags().StringVar(&req.Method, "method", "GET", "HTTP method")
	cmd.Flags().StringVar(&req.URL, "url", "", "Target URL (required)")
	cmd.Flags().IntVar(&req.TimeoutSec, "timeout", 0, "Request timeout in seconds")
	cmd.Flags().StringVar(&req.CreatedBy, "created-by", "", "Author name")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("url")

	return cmd
}

func newTaskMasterShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show task master details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			master, err := client.GetTaskMaster(args[0])
			if err != nil {
				return err
			}

			out.Print(taskMasterHeaders, [][]string{taskMasterRow(*master)}, master)
			return nil
		},
	}
}

func newTaskMasterUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name, method, urlFlag, active, updatedBy string
	var timeout int

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a task master",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := UpdateTaskMasterRequest{UpdatedBy: updatedBy}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("method") {
				req.Method = &method
			}
			if cmd.Flags().Changed("url") {
				req.URL = &urlFlag
			}
			if cmd.Flags().Changed("timeout") {
				req.TimeoutSec = &timeout
			}
			if cmd.Flags().Changed("active") {
				b, err := strconv.ParseBool(active)
				if err != nil {
					return fmt.Errorf("invalid value for --active: %s", active)
				}
				req.IsActive = &b
			}

			master, err := client.UpdateTaskMaster(args[0], req)
			if err != nil {
				return err
			}

			out.Successf("Task master updated, current version %d", master.CurrentVersion)
			out.Print(taskMasterHeaders, [][]string{taskMasterRow(*master)}, master)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New master name")
	cmd.Flags().StringVar(&method, "method", "", "New HTTP method")
	cmd.Flags().StringVar(&urlFlag, "url", "", "New target URL")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "New request timeout in seconds")
	cmd.Flags().StringVar(&active, "active", "", "Set active status (true/false)")
	cmd.Flags().StringVar(&updatedBy, "updated-by", "", "Author name")

	return cmd
}

func newTaskMasterDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a task master",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteTaskMaster(args[0]); err != nil {
				return err
			}

			out.Successf("Task master deleted: %s", args[0])
			return nil
		},
	}
}
