package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPolarityCmd() *cobra.Command {
	var (
		candidateIDs        []string
		maxHops             int
		includeGrounding    bool
		includePathAnalysis bool
		relationshipTypes   []string
		minMagnitude        float64
		maxResults          int
	)

	cmd := &cobra.Command{
		Use:   "polarity",
		Short: "Polarity-axis projection and discovery",
	}

	projectCmd := &cobra.Command{
		Use:     "project [positive-pole-id] [negative-pole-id]",
		Aliases: []string{"analyze"},
		Short:   "Project candidate concepts onto a polarity axis",
		Args:    cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			var out map[string]any
			body := map[string]any{
				"positive_pole_id": args[0], "negative_pole_id": args[1],
				"candidate_ids": candidateIDs, "max_hops": maxHops,
				"include_grounding": includeGrounding, "include_path_analysis": includePathAnalysis,
			}
			if err := newAPIClient().do(c.Context(), "POST", "/query/polarity-axis", body, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	projectCmd.Flags().StringSliceVar(&candidateIDs, "candidate-ids", nil, "concepts to project (default: concepts within --max-hops of either pole)")
	projectCmd.Flags().IntVar(&maxHops, "max-hops", 6, "maximum hops for candidate discovery")
	projectCmd.Flags().BoolVar(&includeGrounding, "include-grounding", false, "attach grounding scores to each projection")
	projectCmd.Flags().BoolVar(&includePathAnalysis, "include-path-analysis", false, "attach a scored shortest path between the two poles")

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "Find candidate polarity axes from relationship structure",
		RunE: func(c *cobra.Command, args []string) error {
			if len(relationshipTypes) == 0 {
				return fmt.Errorf("--relationship-types is required")
			}
			var out map[string]any
			body := map[string]any{
				"relationship_types": relationshipTypes,
				"min_magnitude":      minMagnitude,
				"max_results":        maxResults,
			}
			if err := newAPIClient().do(c.Context(), "POST", "/query/discover-polarity-axes", body, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	discoverCmd.Flags().StringSliceVar(&relationshipTypes, "relationship-types", nil, "relationship types that may anchor an axis")
	discoverCmd.Flags().Float64Var(&minMagnitude, "min-magnitude", 0, "minimum axis magnitude to report")
	discoverCmd.Flags().IntVar(&maxResults, "max-results", 10, "maximum candidate axes to return")

	cmd.AddCommand(projectCmd, discoverCmd)
	return cmd
}
