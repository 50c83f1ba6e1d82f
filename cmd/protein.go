package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vanderwall-lab/kinoplex/internal/model"
	"github.com/vanderwall-lab/kinoplex/internal/reconcile"
	"github.com/vanderwall-lab/kinoplex/pkg/uniprot"
)

var proteinCmd = &cobra.Command{
	Use:   "protein <identifier>",
	Short: "Show reconciled phosphorylation sites for a protein",
	Long:  "Looks up a protein by UniProt accession or gene symbol and prints its reconciled site table, joined with the live UniProt sequence when available.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		identifier := args[0]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		key, err := st.LookupProtein(ctx, identifier)
		if err != nil {
			return eris.Wrap(err, "protein lookup")
		}
		if key == nil {
			fmt.Fprintf(os.Stderr, "Protein %q not found in database.\n", identifier)
			return nil
		}

		competency, stRows, yRows, err := st.LoadRows(ctx, key.Accession)
		if err != nil {
			return eris.Wrap(err, "protein load rows")
		}

		noFetch, _ := cmd.Flags().GetBool("no-fetch")
		var ann *uniprot.Annotation
		if !noFetch {
			ann, err = initUniProt().Fetch(ctx, key.Accession)
			if err != nil {
				zap.L().Warn("uniprot fetch failed, residues inferred from tables", zap.Error(err))
				ann = nil
			}
		}
		if ann == nil {
			ann = uniprot.Placeholder(key.Accession, key.GeneSymbol)
		}

		sites := reconcile.BuildSites(competency, stRows, yRows, ann.Sequence)
		stats := reconcile.ComputeStats(sites)

		fmt.Printf("%s — %s [%s]\n", key.Display(), ann.ProteinName, ann.Organism)
		if ann.Length > 0 {
			fmt.Printf("Sequence length: %d\n", ann.Length)
		}
		fmt.Println()

		formatSites(os.Stdout, sites)
		fmt.Println()
		formatSiteStats(os.Stdout, stats)
		return nil
	},
}

func init() {
	proteinCmd.Flags().Bool("no-fetch", false, "skip the UniProt lookup and infer residues from table membership only")
	rootCmd.AddCommand(proteinCmd)
}

// formatSites writes a tabular site list to w.
func formatSites(out io.Writer, sites []model.Site) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "POS\tRES\tSITE\tP(RAW)\tP(CAL)\tFDR\tKNOWN\tTOP KINASE")
	_, _ = fmt.Fprintln(w, "---\t---\t----\t------\t------\t---\t-----\t----------")

	for _, s := range sites {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%.4f\t%.4f\t%s\t%s\t%s\n",
			s.Position,
			s.Residue,
			s.Site,
			s.ProbRaw,
			s.ProbCalibrated,
			fdrLabel(s),
			yesNo(s.KnownPositive),
			topKinase(s.KinaseScores),
		)
	}
	_ = w.Flush()
}

// fdrLabel reports the tightest FDR threshold a site passes. The flags are
// independent in storage, so each is checked on its own.
func fdrLabel(s model.Site) string {
	switch {
	case s.FDR01:
		return "1%"
	case s.FDR02:
		return "2%"
	case s.FDR05:
		return "5%"
	default:
		return "-"
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// topKinase returns the highest-scoring kinase in a score map, with its
// percentile, or "-" when the map is empty.
func topKinase(scores map[string]float64) string {
	if len(scores) == 0 {
		return "-"
	}
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	// Deterministic winner on ties.
	sort.Strings(names)
	best := names[0]
	for _, name := range names[1:] {
		if scores[name] > scores[best] {
			best = name
		}
	}
	return fmt.Sprintf("%s (%.1f)", best, scores[best])
}

// formatSiteStats writes aggregate site statistics to w.
func formatSiteStats(out io.Writer, stats model.SiteStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total sites:\t%d\n", stats.TotalSites)
	_, _ = fmt.Fprintf(w, "High confidence (FDR 1%%):\t%d\n", stats.HighConfidence)
	_, _ = fmt.Fprintf(w, "Medium confidence (FDR 2%%):\t%d\n", stats.MedConfidence)
	_, _ = fmt.Fprintf(w, "Known positive:\t%d\n", stats.KnownPositive)
	_, _ = fmt.Fprintf(w, "Max position:\t%d\n", stats.MaxPosition)
	_ = w.Flush()
}
