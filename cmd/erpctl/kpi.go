package main

import (
	"fmt"

	"github.com/spf13/cobra"

	erpsync "github.com/Floop2Gare/ERPWASHGOHetzner-sub002"
)

func init() {
	rootCmd.AddCommand(kpiCmd)
}

var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Show purchase and lead KPIs",
	Long:  "Fetch purchases and leads and print the headline figures for the active company.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()

		ctx, cancel := cmdContext()
		defer cancel()

		purchases := client.Purchases().GetAll(ctx)
		if !purchases.Success {
			return fmt.Errorf("%s", purchases.Error)
		}
		leads := client.Leads().GetAll(ctx)
		if !leads.Success {
			return fmt.Errorf("%s", leads.Error)
		}

		pk := erpsync.ComputePurchaseKPIs(purchases.Data)
		fmt.Println("Purchases:")
		fmt.Printf("  Count:           %d (%d paid)\n", pk.Count, pk.PaidCount)
		fmt.Printf("  Vendors:         %d\n", pk.DistinctVendors)
		fmt.Printf("  Total HT:        %s\n", formatMoney(pk.Totals.TotalHT))
		fmt.Printf("  Total TVA:       %s\n", formatMoney(pk.Totals.TotalVAT))
		fmt.Printf("  Total TTC:       %s\n", formatMoney(pk.Totals.TotalTTC))
		fmt.Printf("  Monthly average: %s\n", formatMoney(pk.Totals.MonthlyAverage))

		lk := erpsync.ComputeLeadKPIs(leads.Data)
		fmt.Println()
		fmt.Println("Leads:")
		fmt.Printf("  Count:            %d\n", lk.Total)
		fmt.Printf("  Active:           %d\n", lk.Active)
		fmt.Printf("  In qualification: %d\n", lk.InQualification)
		fmt.Printf("  Pipeline value:   %s\n", formatMoney(lk.TotalEstimated))
		fmt.Printf("  Average value:    %s\n", formatMoney(lk.AverageEstimated))
		return nil
	},
}
