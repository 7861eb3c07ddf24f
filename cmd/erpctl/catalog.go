package main

import (
	"fmt"

	"github.com/spf13/cobra"

	erpsync "github.com/Floop2Gare/ERPWASHGOHetzner-sub002"
)

func init() {
	catalogCmd.AddCommand(catalogCategoriesCmd)
	catalogCmd.AddCommand(catalogServicesCmd)
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the service catalog",
	Long:  "View the category tree and the service catalog summary.",
}

var catalogCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Show the category tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()

		ctx, cancel := cmdContext()
		defer cancel()

		result := client.Categories().GetAll(ctx)
		if !result.Success {
			return fmt.Errorf("%s", result.Error)
		}

		for _, node := range erpsync.BuildCategoryTree(result.Data) {
			state := ""
			if !node.Category.Active {
				state = " (inactive)"
			}
			fmt.Printf("%s%s\n", node.Category.Name, state)
			for _, child := range node.Children {
				price := ""
				if child.PriceHT != nil {
					price = "  " + formatMoney(*child.PriceHT)
				}
				fmt.Printf("  - %s%s\n", child.Name, price)
			}
		}
		return nil
	},
}

var catalogServicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Show services and the catalog summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()

		ctx, cancel := cmdContext()
		defer cancel()

		result := client.Services().GetAll(ctx)
		if !result.Success {
			return fmt.Errorf("%s", result.Error)
		}

		for _, svc := range result.Data {
			state := ""
			if !svc.Active {
				state = " (inactive)"
			}
			fmt.Printf("%s [%s]%s\n", svc.Name, svc.Category, state)
			for _, opt := range svc.Options {
				fmt.Printf("  - %-32s %10s  %d min\n",
					truncate(opt.Label, 32), formatMoney(opt.UnitPriceHT), opt.DefaultDurationMin)
			}
		}

		summary := erpsync.ComputeCatalogSummary(result.Data)
		fmt.Println()
		fmt.Printf("%d service(s) (%d active), %d option(s) (%d active)\n",
			summary.ServiceCount, summary.ActiveServices, summary.OptionCount, summary.ActiveOptions)
		if summary.ActiveOptions > 0 {
			fmt.Printf("average option: %s, %.0f min\n",
				formatMoney(summary.AverageOptionPrice), summary.AverageDurationMin)
		}
		return nil
	},
}
