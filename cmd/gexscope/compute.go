package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/gexscope/internal/gex"
	"github.com/dgnsrekt/gexscope/internal/tasty"
)

type profileFlags struct {
	maxDTE      int
	expirations []string
	strikeCount int
	threshold   float64
	collectSec  int
	asJSON      bool
}

func (f *profileFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.maxDTE, "max-dte", 0, "maximum days to expiration (default from config)")
	cmd.Flags().StringSliceVar(&f.expirations, "expirations", nil, "explicit expiration dates (YYYY-MM-DD), overrides --max-dte")
	cmd.Flags().IntVar(&f.strikeCount, "strike-count", 0, "strikes above/below spot per expiration (default from config)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", -1, "major level threshold in $M (default from config)")
	cmd.Flags().IntVar(&f.collectSec, "collect", 0, "streaming collection window in seconds (default from config)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "emit raw JSON instead of a summary")
}

func (f *profileFlags) params(symbol string) (gex.Params, error) {
	sel := gex.Selection{
		MaxDTE:      cfg.Profile.MaxDTE,
		StrikeCount: cfg.Profile.StrikeCount,
	}
	if f.maxDTE > 0 {
		sel.MaxDTE = f.maxDTE
	}
	if f.strikeCount > 0 {
		sel.StrikeCount = f.strikeCount
	}
	for _, raw := range f.expirations {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return gex.Params{}, fmt.Errorf("invalid expiration %q: %w", raw, err)
		}
		sel.Expirations = append(sel.Expirations, d)
	}

	p := gex.Params{
		Symbol:              symbol,
		Selection:           sel,
		MajorLevelThreshold: cfg.Profile.MajorThreshold,
		CollectWindow:       cfg.Profile.CollectWindow(),
		Progress: func(msg string) {
			fmt.Fprintln(os.Stderr, msg)
		},
	}
	if f.threshold >= 0 {
		p.MajorLevelThreshold = f.threshold
	}
	if f.collectSec > 0 {
		p.CollectWindow = time.Duration(f.collectSec) * time.Second
	}
	return p, nil
}

func newEngine() *gex.Engine {
	return gex.NewEngine(connectFunc(), logger)
}

func connectFunc() gex.ConnectFunc {
	return tasty.Connector(tasty.Config{
		BaseURL:       cfg.Provider.BaseURL,
		ClientSecret:  cfg.Provider.ClientSecret,
		RefreshToken:  cfg.Provider.RefreshToken,
		Timeout:       cfg.Provider.Timeout(),
		RatePerSecond: cfg.Provider.RatePerSecond,
	}, logger)
}

// computeOnce runs the pipeline, repeating once on an unauthorized failure.
// The engine builds a fresh session per call, so the retry simply re-runs.
func computeOnce(ctx context.Context, engine *gex.Engine, params gex.Params) *gex.Result {
	result := engine.ComputeProfile(ctx, params)
	if strings.Contains(strings.ToLower(result.Err), "unauthorized") {
		fmt.Fprintln(os.Stderr, "Session rejected, retrying with a fresh session...")
		result = engine.ComputeProfile(ctx, params)
	}
	return result
}

func computeCmd() *cobra.Command {
	var flags profileFlags

	cmd := &cobra.Command{
		Use:   "compute [symbol]",
		Short: "Compute a GEX profile for one underlying",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := cfg.Profile.Symbol
			if len(args) == 1 {
				symbol = strings.ToUpper(args[0])
			}

			params, err := flags.params(symbol)
			if err != nil {
				return err
			}

			result := computeOnce(cmd.Context(), newEngine(), params)

			if flags.asJSON {
				return json.NewEncoder(os.Stdout).Encode(result)
			}
			printResult(result)
			if result.Err != "" {
				return fmt.Errorf("profile failed: %s", result.Err)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func printResult(r *gex.Result) {
	if r.Err != "" {
		fmt.Printf("%s: ERROR: %s\n", r.Symbol, r.Err)
		return
	}

	fmt.Printf("%s  spot %.2f  total GEX %.2f $M\n", r.Symbol, r.SpotPrice, r.TotalGEX)
	fmt.Printf("  strikes analyzed: %d in [%.2f, %.2f]\n", len(r.Strikes), r.StrikeRange[0], r.StrikeRange[1])
	fmt.Printf("  call wall: %s\n", fmtLevel(r.CallWall))
	fmt.Printf("  put wall:  %s\n", fmtLevel(r.PutWall))
	fmt.Printf("  zero gamma: %s\n", fmtLevel(r.ZeroGammaLevel))

	if len(r.MajorLevels) > 0 {
		fmt.Println("  major levels:")
		for _, lvl := range r.MajorLevels {
			fmt.Printf("    %8.2f  %-4s  %+.1f $M\n", lvl.Strike, lvl.Kind, lvl.NetGEX)
		}
	}
	if r.Strategy != nil {
		fmt.Printf("  signal: %s (%s, validity %s)\n    %s\n",
			r.Strategy.Signal, r.Strategy.Bias, r.Strategy.Validity, r.Strategy.Message)
	}
}

func fmtLevel(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
