package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewVersionCmd создаёт группу команд для работы с историей версий masters.
func NewVersionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Inspect master version history",
	}

	cmd.AddCommand(
		newVersionListCmd(clientFn, outputFn),
		newVersionShowCmd(clientFn, outputFn),
		newVersionBranchCmd(clientFn, outputFn),
	)

	return cmd
}

var versionHeaders = []string{"VERSION", "NAME", "METHOD", "URL", "CHANGED", "CHANGED_FIELDS", "REASON", "CREATED"}

func versionRow(v MasterVersionResponse) []string {
	return []string{
		strconv.Itoa(v.Version), v.Name, v.Method, v.URL,
		strconv.FormatBool(v.HasChanges), strings.Join(v.ChangedFields, ","),
		v.ChangeReason, v.CreatedAt,
	}
}

func newVersionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var taskMaster bool

	cmd := &cobra.Command{
		Use:   "list MASTER_ID",
		Short: "List versions of a master",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var versions []MasterVersionResponse
			var err error
			if taskMaster {
				versions, err = client.ListTaskMasterVersions(args[0])
			} else {
				versions, err = client.ListJobMasterVersions(args[0])
			}
			if err != nil {
				return err
			}

			rows := make([][]string, len(versions))
			for i, v := range versions {
				rows[i] = versionRow(v)
			}

			out.Print(versionHeaders, rows, versions)
			return nil
		},
	}

	cmd.Flags().BoolVar(&taskMaster, "task", false, "Master is a task master")

	return cmd
}

func newVersionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var taskMaster bool

	cmd := &cobra.Command{
		Use:   "show MASTER_ID VERSION",
		Short: "Show a version snapshot of a master",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			version, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid version number: %s", args[1])
			}

			var v *MasterVersionResponse
			if taskMaster {
				v, err = client.GetTaskMasterVersion(args[0], version)
			} else {
				v, err = client.GetJobMasterVersion(args[0], version)
			}
			if err != nil {
				return err
			}

			out.Print(versionHeaders, [][]string{versionRow(*v)}, v)
			return nil
		},
	}

	cmd.Flags().BoolVar(&taskMaster, "task", false, "Master is a task master")

	return cmd
}

func newVersionBranchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var createdBy string

	cmd := &cobra.Command{
		Use:   "branch MASTER_ID VERSION",
		Short: "Create a new job master from a version snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			version, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid version number: %s", args[1])
			}

			master, err := client.BranchJobMaster(args[0], version, BranchVersionRequest{
				Name:      name,
				CreatedBy: createdBy,
			})
			if err != nil {
				return err
			}

			out.Successf("Job master created from version %d: %s", version, master.ID)
			out.Print(masterHeaders, [][]string{masterRow(*master)}, master)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name for the new master (required)")
	cmd.Flags().StringVar(&createdBy, "created-by", "", "Author name")
	cmd.MarkFlagRequired("name")

	return cmd
}
