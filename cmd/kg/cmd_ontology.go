package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newOntologyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ontology",
		Short: "Manage ontologies",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every ontology",
		RunE: func(c *cobra.Command, args []string) error {
			var out map[string]any
			if err := newAPIClient().do(c.Context(), "GET", "/ontology", nil, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info [name]",
		Short: "Show one ontology's summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var out map[string]any
			if err := newAPIClient().do(c.Context(), "GET", "/ontology/"+args[0], nil, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}

	filesCmd := &cobra.Command{
		Use:   "files [name]",
		Short: "List the documents ingested into an ontology",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var out map[string]any
			if err := newAPIClient().do(c.Context(), "GET", "/ontology/"+args[0]+"/files", nil, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}

	renameCmd := &cobra.Command{
		Use:   "rename [name] [new-name]",
		Short: "Rename an ontology",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			body := map[string]any{"new_name": args[1]}
			return newAPIClient().do(c.Context(), "PATCH", "/ontology/"+args[0], body, nil)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete an ontology and everything in it (destructive)",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			confirm, _ := c.Flags().GetBool("yes")
			if !confirm {
				return fmt.Errorf("refusing to delete ontology %q without --yes", args[0])
			}
			return newAPIClient().do(c.Context(), "DELETE", "/ontology/"+args[0], nil, nil)
		},
	}
	deleteCmd.Flags().Bool("yes", false, "confirm the destructive delete")

	cmd.AddCommand(listCmd, infoCmd, filesCmd, renameCmd, deleteCmd)
	return cmd
}
