package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search proteins by accession or gene symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := args[0]

		// Mirrors the API contract: short queries return nothing rather
		// than scanning the whole corpus.
		if len(query) < 2 {
			fmt.Fprintln(os.Stderr, "Query must be at least 2 characters.")
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		keys, err := st.SearchProteins(ctx, query, limit)
		if err != nil {
			return eris.Wrap(err, "search")
		}

		if len(keys) == 0 {
			fmt.Fprintln(os.Stderr, "No matches found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ACCESSION\tGENE")
		_, _ = fmt.Fprintln(w, "---------\t----")
		for _, k := range keys {
			gene := k.GeneSymbol
			if gene == "" {
				gene = "-"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\n", k.Accession, gene)
		}
		return w.Flush()
	},
}

func init() {
	searchCmd.Flags().Int("limit", 50, "max number of matches to display")
	rootCmd.AddCommand(searchCmd)
}
