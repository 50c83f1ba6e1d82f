package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/vanderwall-lab/kinoplex/internal/reconcile"
)

var kinaseCmd = &cobra.Command{
	Use:   "kinase <identifier> <kinase-name>",
	Short: "Show one kinase's activity profile across a protein",
	Long:  "Lists every site on the protein where the named kinase has a positive specificity percentile, highest score first.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		identifier, kinase := args[0], args[1]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		key, err := st.LookupProtein(ctx, identifier)
		if err != nil {
			return eris.Wrap(err, "kinase lookup")
		}
		if key == nil {
			fmt.Fprintf(os.Stderr, "Protein %q not found in database.\n", identifier)
			return nil
		}

		competency, stRows, yRows, err := st.LoadRows(ctx, key.Accession)
		if err != nil {
			return eris.Wrap(err, "kinase load rows")
		}

		sites := reconcile.BuildSites(competency, stRows, yRows, "")
		profile := reconcile.Profile(sites, kinase)
		if len(profile) == 0 {
			fmt.Fprintf(os.Stderr, "No %s activity recorded on %s.\n", kinase, key.Display())
			return nil
		}

		fmt.Printf("%s activity on %s (%d sites):\n\n", kinase, key.Display(), len(profile))
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "POS\tRES\tSITE\tSCORE\tFDR 5%")
		_, _ = fmt.Fprintln(w, "---\t---\t----\t-----\t------")
		for _, e := range profile {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%.1f\t%s\n",
				e.Position, e.Residue, e.Site, e.Score, yesNo(e.Phosphocompetent))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(kinaseCmd)
}
