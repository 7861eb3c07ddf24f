package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	erpsync "github.com/Floop2Gare/ERPWASHGOHetzner-sub002"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow backend change notifications",
	Long:  "Subscribe to the change feed and keep local stores in sync until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg := getClient()
		log := cliLogger()

		_, purchases := newPurchaseController(client)
		_, leads := newLeadController(client)

		ctx := context.Background()
		mustRefresh(ctx, purchases)
		mustRefresh(ctx, leads.SyncController)

		feed := erpsync.NewChangeFeed(cfg.Default.BaseURL, erpsync.ChangeFeedConfig{
			Token:         cfg.Default.Token,
			AutoReconnect: true,
		}, log)

		feed.BindRefresher("purchase", purchases.Refresh)
		feed.BindRefresher("lead", leads.Refresh)
		feed.OnAnyChange(func(p erpsync.ChangePayload) {
			fmt.Printf("%s  %s %s %s\n", time.Now().Format("15:04:05"), p.Kind, p.Action, p.ID)
		})
		feed.OnDisconnected(func(reason string) {
			fmt.Fprintf(os.Stderr, "disconnected: %s\n", reason)
		})
		feed.OnReconnecting(func(attempt int, delay time.Duration) {
			fmt.Fprintf(os.Stderr, "reconnecting (attempt %d, in %s)\n", attempt, delay)
		})

		if err := feed.Connect(ctx); err != nil {
			return fmt.Errorf("change feed: %w", err)
		}
		fmt.Println("Watching for changes. Ctrl-C to stop.")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		return feed.Disconnect()
	},
}
