package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate database statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "stats")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "Proteins:\t%d\n", stats.TotalProteins)
		_, _ = fmt.Fprintf(w, "Sites:\t%d\n", stats.TotalSites)
		_, _ = fmt.Fprintf(w, "Known positive sites:\t%d\n", stats.KnownSites)
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
