package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect and manage ingestion jobs",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, optionally filtered by owner or ontology",
		RunE: func(c *cobra.Command, args []string) error {
			owner, _ := c.Flags().GetString("owner")
			path := "/jobs"
			if owner != "" || ontology != "" {
				path += "?owner=" + owner + "&ontology=" + ontology
			}
			var out map[string]any
			if err := newAPIClient().do(c.Context(), "GET", path, nil, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	listCmd.Flags().String("owner", "", "filter by job owner")

	statusCmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show a single job's status",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobAction("GET", "/jobs/%s", false),
	}
	approveCmd := &cobra.Command{
		Use:   "approve [job-id]",
		Short: "Approve a job awaiting approval",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobAction("POST", "/jobs/%s/approve", false),
	}
	cancelCmd := &cobra.Command{
		Use:   "cancel [job-id]",
		Short: "Request cancellation of a running job",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobAction("POST", "/jobs/%s/cancel", false),
	}
	deleteCmd := &cobra.Command{
		Use:   "delete [job-id]",
		Short: "Delete a finished job's record",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobAction("DELETE", "/jobs/%s", true),
	}

	cmd.AddCommand(listCmd, statusCmd, approveCmd, cancelCmd, deleteCmd)
	return cmd
}

func runJobAction(method, pathTemplate string, noBody bool) func(*cobra.Command, []string) error {
	return func(c *cobra.Command, args []string) error {
		path := fmt.Sprintf(pathTemplate, args[0])
		if noBody {
			return newAPIClient().do(c.Context(), method, path, nil, nil)
		}
		var out map[string]any
		if err := newAPIClient().do(c.Context(), method, path, nil, &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	}
}
