package main

import (
	"github.com/spf13/cobra"
)

func newVocabCmd() *cobra.Command {
	var (
		targetSize int
		threshold  float64
		dryRun     bool
		from, into string
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Inspect and manage the dynamic vocabulary",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show active type count and crowding zone",
		RunE:  runVocabGet("/vocabulary/status"),
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every vocabulary type",
		RunE:  runVocabGet("/vocabulary/list"),
	}

	consolidateCmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Merge near-duplicate vocabulary types via LLM adjudication",
		RunE: func(c *cobra.Command, args []string) error {
			var out map[string]any
			body := map[string]any{"target_size": targetSize, "threshold": threshold, "dry_run": dryRun}
			if err := newAPIClient().do(c.Context(), "POST", "/vocabulary/consolidate", body, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	consolidateCmd.Flags().IntVar(&targetSize, "target-size", 0, "desired active vocabulary size")
	consolidateCmd.Flags().Float64Var(&threshold, "threshold", 0, "similarity threshold for candidate pairs")
	consolidateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report merges without applying them")

	mergeCmd := &cobra.Command{
		Use:   "merge",
		Short: "Manually merge one vocabulary type into another",
		RunE: func(c *cobra.Command, args []string) error {
			var out map[string]any
			body := map[string]any{"from": from, "into": into, "reason": reason}
			if err := newAPIClient().do(c.Context(), "POST", "/vocabulary/merge", body, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	mergeCmd.Flags().StringVar(&from, "from", "", "vocabulary type being merged away")
	mergeCmd.Flags().StringVar(&into, "into", "", "vocabulary type being merged into")
	mergeCmd.Flags().StringVar(&reason, "reason", "", "operator-supplied merge rationale")

	cmd.AddCommand(statusCmd, listCmd, consolidateCmd, mergeCmd)
	return cmd
}

func runVocabGet(path string) func(*cobra.Command, []string) error {
	return func(c *cobra.Command, args []string) error {
		var out map[string]any
		if err := newAPIClient().do(c.Context(), "GET", path, nil, &out); err != nil {
			return err
		}
		printJSON(out)
		return nil
	}
}
