// Command kg is a thin HTTP client for kgserver: every subcommand maps
// directly onto one endpoint of the knowledge-graph API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	authToken string
	ontology  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kg",
		Short:         "Knowledge-graph ingestion and query client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", envOr("KG_SERVER", "http://localhost:8085"), "kgserver base URL")
	root.PersistentFlags().StringVar(&authToken, "token", os.Getenv("KG_TOKEN"), "bearer token")
	root.PersistentFlags().StringVar(&ontology, "ontology", "", "ontology name (required by most commands)")

	root.AddCommand(newIngestCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newJobCmd())
	root.AddCommand(newVocabCmd())
	root.AddCommand(newPolarityCmd())
	root.AddCommand(newOntologyCmd())
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
