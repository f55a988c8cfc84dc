package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/gexscope/internal/gex"
	"github.com/dgnsrekt/gexscope/internal/tasty"
)

func expirationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expirations SYMBOL",
		Short: "List available option expiration dates for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])

			if cfg.Provider.ClientSecret == "" || cfg.Provider.RefreshToken == "" {
				return gex.ErrMissingCredentials
			}

			client, err := tasty.Open(cmd.Context(), tasty.Config{
				BaseURL:       cfg.Provider.BaseURL,
				ClientSecret:  cfg.Provider.ClientSecret,
				RefreshToken:  cfg.Provider.RefreshToken,
				Timeout:       cfg.Provider.Timeout(),
				RatePerSecond: cfg.Provider.RatePerSecond,
			}, logger)
			if err != nil {
				return err
			}

			expirations, err := client.AvailableExpirations(cmd.Context(), symbol)
			if err != nil {
				return err
			}

			for _, d := range expirations {
				fmt.Println(d.Format("2006-01-02"))
			}
			return nil
		},
	}
}
