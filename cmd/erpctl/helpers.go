package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	erpsync "github.com/Floop2Gare/ERPWASHGOHetzner-sub002"
)

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func cliLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// getClient creates an API client from the stored configuration.
func getClient() (*erpsync.Client, *Config) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Default.BaseURL == "" {
		fmt.Fprintln(os.Stderr, "No base URL. Run 'erpctl init <base-url>' first.")
		os.Exit(1)
	}

	opts := []erpsync.ClientOption{
		erpsync.WithLogger(cliLogger()),
	}
	if cfg.Default.Token != "" {
		opts = append(opts, erpsync.WithToken(cfg.Default.Token))
	}
	if cfg.Default.ActiveCompanyID != "" {
		opts = append(opts, erpsync.WithActiveCompany(cfg.Default.ActiveCompanyID))
	}
	return erpsync.NewClient(cfg.Default.BaseURL, opts...), cfg
}

// cmdContext returns the context used for one-shot CLI operations.
func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// mustRefresh loads a store through its controller and aborts on failure.
func mustRefresh[T erpsync.Entity](ctx context.Context, sc *erpsync.SyncController[T]) {
	if out := sc.Refresh(ctx); !out.Applied() {
		fmt.Fprintln(os.Stderr, out.Message)
		os.Exit(1)
	}
}

// printOutcome reports a mutation result and exits non-zero when it did not
// apply cleanly.
func printOutcome(out erpsync.Outcome) {
	fmt.Println(out.Message)
	if out.Status == erpsync.OutcomeRolledBack {
		os.Exit(1)
	}
}

func formatMoney(v float64) string {
	return fmt.Sprintf("%.2f €", v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
