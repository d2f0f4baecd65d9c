package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	var (
		forceReingest bool
		autoApprove   bool
		targetWords   int
		overlapWords  int
		parallel      bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Submit ingestion jobs",
	}
	cmd.PersistentFlags().BoolVar(&forceReingest, "force-reingest", false, "re-ingest even if the document was already seen")
	cmd.PersistentFlags().BoolVar(&autoApprove, "auto-approve", false, "request auto-approval regardless of estimated cost")
	cmd.PersistentFlags().IntVar(&targetWords, "target-words", 0, "override the default chunk target size")
	cmd.PersistentFlags().IntVar(&overlapWords, "overlap-words", 0, "override the default chunk overlap size")
	cmd.PersistentFlags().BoolVar(&parallel, "parallel", false, "process chunks concurrently")

	textCmd := &cobra.Command{
		Use:   "text [text]",
		Short: "Ingest a raw text string",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if ontology == "" {
				return fmt.Errorf("--ontology is required")
			}
			var job map[string]any
			body := map[string]any{
				"text": args[0], "ontology": ontology,
				"force_reingest": forceReingest, "auto_approve": autoApprove,
				"target_words": targetWords, "overlap_words": overlapWords, "parallel": parallel,
			}
			if err := newAPIClient().do(c.Context(), "POST", "/ingest/text", body, &job); err != nil {
				return err
			}
			printJSON(job)
			return nil
		},
	}

	fileCmd := &cobra.Command{
		Use:   "file [path]",
		Short: "Ingest a document file",
		Args:  cobra.ExactArgs(1),
		RunE:  runUploadIngest("/ingest/file", &forceReingest, &autoApprove),
	}

	imageCmd := &cobra.Command{
		Use:   "image [path]",
		Short: "Ingest an image as a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runUploadIngest("/ingest/image", &forceReingest, &autoApprove),
	}

	dirCmd := &cobra.Command{
		Use:   "directory [path]",
		Short: "Ingest every file in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			entries, err := os.ReadDir(args[0])
			if err != nil {
				return fmt.Errorf("read directory: %w", err)
			}
			client := newAPIClient()
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				path := args[0] + string(os.PathSeparator) + e.Name()
				var job map[string]any
				fields := map[string]string{"ontology": ontology, "force_reingest": boolStr(forceReingest), "auto_approve": boolStr(autoApprove)}
				if err := client.upload(c.Context(), "/ingest/file", path, fields, &job); err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
					continue
				}
				printJSON(job)
			}
			return nil
		},
	}

	cmd.AddCommand(textCmd, fileCmd, imageCmd, dirCmd)
	return cmd
}

func runUploadIngest(path string, forceReingest, autoApprove *bool) func(*cobra.Command, []string) error {
	return func(c *cobra.Command, args []string) error {
		if ontology == "" {
			return fmt.Errorf("--ontology is required")
		}
		fields := map[string]string{
			"ontology":       ontology,
			"force_reingest": boolStr(*forceReingest),
			"auto_approve":   boolStr(*autoApprove),
		}
		var job map[string]any
		if err := newAPIClient().upload(c.Context(), path, args[0], fields, &job); err != nil {
			return err
		}
		printJSON(job)
		return nil
	}
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
