package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initToken string

func init() {
	initCmd.Flags().StringVar(&initToken, "token", "", "bearer token for authenticated endpoints")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init <base-url>",
	Short: "Store the backend URL in ~/.erpwashgo/config.toml",
	Long:  "Initialize erpctl by storing the backend base URL (and optionally a token) in the local configuration file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		cfg.Default.BaseURL = args[0]
		if initToken != "" {
			cfg.Default.Token = initToken
		}

		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		path, _ := configPath()
		fmt.Printf("Configuration saved to %s\n", path)
		return nil
	},
}
