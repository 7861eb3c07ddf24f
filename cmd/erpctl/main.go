package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// ============================================================================
// Config types
// ============================================================================

// Config represents the CLI configuration stored in ~/.erpwashgo/config.toml.
type Config struct {
	Default  ConfigDefault  `toml:"default"`
	Defaults ConfigDefaults `toml:"defaults"`
}

// ConfigDefault holds connection settings.
type ConfigDefault struct {
	BaseURL         string `toml:"base_url"`
	Token           string `toml:"token"`
	ActiveCompanyID string `toml:"active_company_id"`
}

// ConfigDefaults holds form defaults applied to new records.
type ConfigDefaults struct {
	VATRate        float64 `toml:"vat_rate"`
	PurchaseStatus string  `toml:"purchase_status"`
}

// ============================================================================
// Config helpers
// ============================================================================

// configDir returns the path to ~/.erpwashgo, creating it if needed.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".erpwashgo")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}
	return dir, nil
}

// configPath returns the full path to the config file.
func configPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// loadConfig reads and parses the config file.
// If the file does not exist, it returns a Config with form defaults set.
func loadConfig() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Defaults: ConfigDefaults{VATRate: 20, PurchaseStatus: "Validé"}}, nil
		}
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	if cfg.Defaults.VATRate == 0 {
		cfg.Defaults.VATRate = 20
	}
	if cfg.Defaults.PurchaseStatus == "" {
		cfg.Defaults.PurchaseStatus = "Validé"
	}
	return &cfg, nil
}

// saveConfig writes the config struct back to disk as TOML.
func saveConfig(cfg *Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write config: %w", err)
	}
	return nil
}

// setConfigValue sets a config field using dot notation (e.g. "default.token").
func setConfigValue(cfg *Config, key, value string) error {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return fmt.Errorf("key must use dot notation: section.field (e.g. default.token)")
	}
	section, field := parts[0], parts[1]

	switch section {
	case "default":
		switch field {
		case "base_url":
			cfg.Default.BaseURL = value
		case "token":
			cfg.Default.Token = value
		case "active_company_id":
			cfg.Default.ActiveCompanyID = value
		default:
			return fmt.Errorf("unknown field %q in section [default]", field)
		}
	case "defaults":
		switch field {
		case "vat_rate":
			rate, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("vat_rate must be a number: %q", value)
			}
			cfg.Defaults.VATRate = rate
		case "purchase_status":
			cfg.Defaults.PurchaseStatus = value
		default:
			return fmt.Errorf("unknown field %q in section [defaults]", field)
		}
	default:
		return fmt.Errorf("unknown config section %q (valid: default, defaults)", section)
	}
	return nil
}

// ============================================================================
// Root command
// ============================================================================

var rootCmd = &cobra.Command{
	Use:   "erpctl",
	Short: "Wash&Go ERP CLI",
	Long:  "Command-line interface for the Wash&Go ERP backend.\nManage purchases, leads, companies and the service catalog.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
