package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current configuration and backend status",
	Long:  "Display the current configuration and check that the backend answers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		fmt.Println("Configuration:")
		fmt.Printf("  Base URL:       %s\n", valueOrDefault(cfg.Default.BaseURL, "(not set)"))
		if cfg.Default.Token != "" {
			fmt.Printf("  Token:          %s\n", maskKey(cfg.Default.Token))
		} else {
			fmt.Println("  Token:          (not set)")
		}
		fmt.Printf("  Active company: %s\n", valueOrDefault(cfg.Default.ActiveCompanyID, "(not set)"))
		fmt.Printf("  Default VAT:    %.1f %%\n", cfg.Defaults.VATRate)

		if cfg.Default.BaseURL == "" {
			return nil
		}

		fmt.Println()
		fmt.Println("Backend:")

		client, _ := getClient()
		ctx, cancel := cmdContext()
		defer cancel()

		result := client.Companies().GetAll(ctx)
		if !result.Success {
			fmt.Printf("  Unreachable: %s\n", result.Error)
			return nil
		}
		fmt.Printf("  Reachable, %d company(ies)\n", len(result.Data))

		if cfg.Default.ActiveCompanyID != "" {
			backpack := client.Companies().GetBackpack(ctx, cfg.Default.ActiveCompanyID)
			if backpack.Success {
				fmt.Printf("  Active company: %s\n", backpack.Data.Company.Name)
				if backpack.Data.Settings.VATEnabled {
					fmt.Printf("  Company VAT:    %.1f %%\n", backpack.Data.Settings.VATRate)
				}
			}
		}
		return nil
	},
}

// maskKey shows the first 8 and last 4 characters of a token.
func maskKey(key string) string {
	if len(key) <= 12 {
		return key[:2] + "..."
	}
	return key[:8] + "..." + key[len(key)-4:]
}

func valueOrDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
