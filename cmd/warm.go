package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type warmResult struct {
	line   string
	status string // fetched, missing, failed
}

var warmCmd = &cobra.Command{
	Use:   "warm <accession>...",
	Short: "Prefetch UniProt annotations into the cache",
	Long:  "Fetches UniProt records for the given accessions ahead of serving so first requests do not pay the remote round trip. Failures are reported and skipped.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := initUniProt()

		concurrency, _ := cmd.Flags().GetInt("concurrency")

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		results := make(chan warmResult, len(args))
		for _, accession := range args {
			g.Go(func() error {
				ann, err := client.Fetch(ctx, accession)
				switch {
				case err != nil:
					zap.L().Warn("prefetch failed", zap.String("accession", accession), zap.Error(err))
					results <- warmResult{line: fmt.Sprintf("%s: fetch failed", accession), status: "failed"}
				case ann == nil:
					results <- warmResult{line: fmt.Sprintf("%s: unknown to UniProt", accession), status: "missing"}
				default:
					results <- warmResult{line: fmt.Sprintf("%s: %s (%d aa)", accession, ann.ProteinName, ann.Length), status: "fetched"}
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
		close(results)

		counts := map[string]int{}
		for r := range results {
			counts[r.status]++
			fmt.Fprintln(os.Stdout, r.line)
		}
		fmt.Fprintf(os.Stderr, "\nFetched %d, unknown %d, failed %d.\n",
			counts["fetched"], counts["missing"], counts["failed"])
		return nil
	},
}

func init() {
	warmCmd.Flags().Int("concurrency", 4, "max concurrent UniProt requests")
	rootCmd.AddCommand(warmCmd)
}
