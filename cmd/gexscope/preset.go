package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/gexscope/internal/preset"
)

func presetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage saved parameter presets",
	}
	cmd.AddCommand(presetListCmd())
	cmd.AddCommand(presetSaveCmd())
	cmd.AddCommand(presetDeleteCmd())
	return cmd
}

func presetStore() *preset.Store {
	return preset.NewStore(cfg.Profile.PresetDirectory)
}

func presetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := presetStore().List()
			if len(presets) == 0 {
				fmt.Println("no presets saved")
				return nil
			}
			for _, p := range presets {
				fmt.Printf("%-20s %-6s dte=%d strikes=%d threshold=%.0f collect=%ds\n",
					p.Name, p.Symbol, p.MaxDTE, p.StrikeCount, p.MajorThreshold, p.CollectSeconds)
			}
			return nil
		},
	}
}

func presetSaveCmd() *cobra.Command {
	var p preset.Preset

	cmd := &cobra.Command{
		Use:   "save NAME",
		Short: "Save current parameters under a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Name = args[0]
			if p.Symbol == "" {
				p.Symbol = cfg.Profile.Symbol
			}
			if p.MaxDTE == 0 {
				p.MaxDTE = cfg.Profile.MaxDTE
			}
			if p.StrikeCount == 0 {
				p.StrikeCount = cfg.Profile.StrikeCount
			}
			if p.MajorThreshold == 0 {
				p.MajorThreshold = cfg.Profile.MajorThreshold
			}
			if p.CollectSeconds == 0 {
				p.CollectSeconds = cfg.Profile.CollectSeconds
			}

			if err := presetStore().Save(p); err != nil {
				return err
			}
			fmt.Printf("saved preset %q\n", p.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&p.Symbol, "symbol", "", "ticker symbol")
	cmd.Flags().IntVar(&p.MaxDTE, "max-dte", 0, "maximum days to expiration")
	cmd.Flags().IntVar(&p.StrikeCount, "strike-count", 0, "strikes above/below spot")
	cmd.Flags().Float64Var(&p.MajorThreshold, "threshold", 0, "major level threshold in $M")
	cmd.Flags().IntVar(&p.CollectSeconds, "collect", 0, "collection window in seconds")
	cmd.Flags().BoolVar(&p.AutoUpdate, "auto-update", false, "auto refresh in the dashboard")
	return cmd
}

func presetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a saved preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := presetStore().Delete(args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("preset not found: %s", args[0])
			}
			fmt.Printf("deleted preset %q\n", args[0])
			return nil
		},
	}
}
