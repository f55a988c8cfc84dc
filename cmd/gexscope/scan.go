package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/gexscope/internal/scan"
	"github.com/dgnsrekt/gexscope/internal/store"
)

func scanCmd() *cobra.Command {
	var flags profileFlags
	var save bool

	cmd := &cobra.Command{
		Use:   "scan [symbol...]",
		Short: "Compute GEX profiles for a universe of symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols := cfg.Scan.Tickers
			if len(args) > 0 {
				symbols = make([]string, len(args))
				for i, a := range args {
					symbols[i] = strings.ToUpper(a)
				}
			}

			params, err := flags.params("")
			if err != nil {
				return err
			}
			// Progress lines per symbol would interleave; the scanner logs
			// failures itself.
			params.Progress = nil

			engine := newEngine()
			scanner := scan.New(engine, logger)
			results, summary := scanner.Run(cmd.Context(), symbols, params)

			if save {
				history, err := store.New(cfg.Store.Directory, cfg.Store.Compress, logger)
				if err != nil {
					return err
				}
				now := time.Now()
				for _, r := range results {
					if r.Err != "" {
						continue
					}
					if err := history.Append(r, now); err != nil {
						fmt.Fprintf(os.Stderr, "failed to store %s: %v\n", r.Symbol, err)
					}
				}
			}

			if flags.asJSON {
				return json.NewEncoder(os.Stdout).Encode(results)
			}

			for _, r := range results {
				printResult(r)
			}
			fmt.Println()
			for _, line := range summaryLines(summary) {
				fmt.Println(line)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "append successful results to the history store")
	return cmd
}

// summaryLines renders the scan footer: counts plus both extremes, the same
// pair the notifier reports.
func summaryLines(summary scan.Summary) []string {
	lines := []string{fmt.Sprintf("scanned %d symbols in %s: %d ok, %d failed",
		summary.Total, summary.Duration.Round(time.Second), summary.Succeeded, summary.Failed)}

	if r := summary.MostPositive; r != nil {
		lines = append(lines, fmt.Sprintf("most positive gamma: %s (%.1f $M)", r.Symbol, r.TotalGEX))
	}
	if r := summary.MostNegative; r != nil {
		lines = append(lines, fmt.Sprintf("most negative gamma: %s (%.1f $M)", r.Symbol, r.TotalGEX))
	}
	return lines
}
