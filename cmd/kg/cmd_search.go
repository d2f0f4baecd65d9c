package main

import (
	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var (
		limit         int
		minSimilarity float64
		includeGround bool
		relatedTypes  []string
		direction     string
		maxHops       int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Semantic search and concept lookups",
	}

	queryCmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Semantic search over concepts",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var out []map[string]any
			body := map[string]any{
				"query": args[0], "limit": limit, "min_similarity": minSimilarity,
				"ontology": ontology, "include_grounding": includeGround,
			}
			if err := newAPIClient().do(c.Context(), "POST", "/query/search", body, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	queryCmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	queryCmd.Flags().Float64Var(&minSimilarity, "min-similarity", 0, "minimum cosine similarity")
	queryCmd.Flags().BoolVar(&includeGround, "include-grounding", false, "include grounding scores")

	detailsCmd := &cobra.Command{
		Use:   "details [concept-id]",
		Short: "Show a concept's stored record (evidence and relationships are not included)",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return postConceptAction(c, map[string]any{"action": "details", "concept_id": args[0]})
		},
	}

	relatedCmd := &cobra.Command{
		Use:   "related [concept-id]",
		Short: "List a concept's neighbors",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return postConceptAction(c, map[string]any{
				"action": "related", "concept_id": args[0],
				"edge_types": relatedTypes, "direction": direction,
			})
		},
	}
	relatedCmd.Flags().StringSliceVar(&relatedTypes, "relationship-types", nil, "restrict to these relationship types")
	relatedCmd.Flags().StringVar(&direction, "direction", "both", "out|in|both")

	connectCmd := &cobra.Command{
		Use:   "connect [from-id] [to-id]",
		Short: "Find the shortest path between two concepts",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return postConceptAction(c, map[string]any{
				"action": "connect", "concept_id": args[0],
				"to_concept_id": args[1], "max_hops": maxHops,
			})
		},
	}
	connectCmd.Flags().IntVar(&maxHops, "max-hops", 6, "maximum path length")

	cmd.AddCommand(queryCmd, detailsCmd, relatedCmd, connectCmd)
	return cmd
}

func postConceptAction(c *cobra.Command, body map[string]any) error {
	var out map[string]any
	if err := newAPIClient().do(c.Context(), "POST", "/query/concept", body, &out); err != nil {
		return err
	}
	printJSON(out)
	return nil
}
