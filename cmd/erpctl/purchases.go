package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	erpsync "github.com/Floop2Gare/ERPWASHGOHetzner-sub002"
)

// ============================================================================
// Flag variables
// ============================================================================

var (
	// purchases list
	purchasesListStatus   string
	purchasesListCategory string
	purchasesListSearch   string
	purchasesListFrom     string
	purchasesListTo       string
	purchasesListJSON     bool

	// purchases add
	purchaseVendor    string
	purchaseReference string
	purchaseDesc      string
	purchaseDate      string
	purchaseAmountHT  string
	purchaseVATRate   float64
	purchaseCategory  string
	purchaseStatus    string
	purchaseRecurring bool
)

func init() {
	purchasesListCmd.Flags().StringVar(&purchasesListStatus, "status", "", "filter by status")
	purchasesListCmd.Flags().StringVar(&purchasesListCategory, "category", "", "filter by category")
	purchasesListCmd.Flags().StringVar(&purchasesListSearch, "search", "", "search vendor, reference and description")
	purchasesListCmd.Flags().StringVar(&purchasesListFrom, "from", "", "start date (YYYY-MM-DD)")
	purchasesListCmd.Flags().StringVar(&purchasesListTo, "to", "", "end date (YYYY-MM-DD)")
	purchasesListCmd.Flags().BoolVar(&purchasesListJSON, "json", false, "output raw JSON")

	purchasesAddCmd.Flags().StringVar(&purchaseVendor, "vendor", "", "vendor name (required)")
	purchasesAddCmd.Flags().StringVar(&purchaseReference, "reference", "", "invoice or order reference")
	purchasesAddCmd.Flags().StringVar(&purchaseDesc, "description", "", "free-form description")
	purchasesAddCmd.Flags().StringVar(&purchaseDate, "date", "", "purchase date (YYYY-MM-DD, default today)")
	purchasesAddCmd.Flags().StringVar(&purchaseAmountHT, "amount-ht", "", "amount excluding VAT (required)")
	purchasesAddCmd.Flags().Float64Var(&purchaseVATRate, "vat", -1, "VAT rate in percent (default from config)")
	purchasesAddCmd.Flags().StringVar(&purchaseCategory, "category", "Autre", "purchase category")
	purchasesAddCmd.Flags().StringVar(&purchaseStatus, "status", "", "initial status (default from config)")
	purchasesAddCmd.Flags().BoolVar(&purchaseRecurring, "recurring", false, "mark as recurring")
	purchasesAddCmd.MarkFlagRequired("vendor")
	purchasesAddCmd.MarkFlagRequired("amount-ht")

	purchasesCmd.AddCommand(purchasesListCmd)
	purchasesCmd.AddCommand(purchasesAddCmd)
	purchasesCmd.AddCommand(purchasesRmCmd)
	rootCmd.AddCommand(purchasesCmd)
}

var purchasesCmd = &cobra.Command{
	Use:   "purchases",
	Short: "Manage purchases",
	Long:  "List, add and remove purchases for the active company.",
}

// newPurchaseController builds a controller backed by a fresh store.
func newPurchaseController(client *erpsync.Client) (*erpsync.Store[erpsync.Purchase], *erpsync.SyncController[erpsync.Purchase]) {
	store := erpsync.NewStore[erpsync.Purchase]()
	ctrl := erpsync.NewSyncController[erpsync.Purchase](store, client.Purchases(),
		erpsync.WithLabel("achat"),
		erpsync.WithSyncLogger(cliLogger()),
	)
	return store, ctrl
}

// ============================================================================
// purchases list
// ============================================================================

var purchasesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List purchases",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()
		store, ctrl := newPurchaseController(client)

		ctx, cancel := cmdContext()
		defer cancel()
		mustRefresh(ctx, ctrl)

		filter := erpsync.PurchaseFilter{
			Search:   purchasesListSearch,
			Status:   purchasesListStatus,
			Category: purchasesListCategory,
			Dates:    dateRange(purchasesListFrom, purchasesListTo),
		}

		var names erpsync.CompanyNameLookup
		if purchasesListSearch != "" {
			if companies := client.Companies().GetAll(ctx); companies.Success {
				names = erpsync.CompanyNames(companies.Data)
			}
		}

		purchases := erpsync.FilterPurchases(store.List(), filter, names)

		if purchasesListJSON {
			data, err := json.MarshalIndent(purchases, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal purchases: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		for _, p := range purchases {
			fmt.Printf("%-12s %-10s %-24s %-12s %10s  %s\n",
				p.ID, p.Date, truncate(p.Vendor, 24), p.Status, formatMoney(p.AmountTTC), p.Category)
		}

		totals := erpsync.ComputePurchaseTotals(purchases)
		fmt.Println()
		fmt.Printf("%d purchase(s)  HT %s  TVA %s  TTC %s  (%s / month)\n",
			len(purchases), formatMoney(totals.TotalHT), formatMoney(totals.TotalVAT),
			formatMoney(totals.TotalTTC), formatMoney(totals.MonthlyAverage))
		return nil
	},
}

// ============================================================================
// purchases add
// ============================================================================

var purchasesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a purchase",
	Long:  "Create a purchase. The TTC amount is derived from the HT amount and the VAT rate.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg := getClient()
		_, ctrl := newPurchaseController(client)

		date := purchaseDate
		if date == "" {
			date = time.Now().Format("2006-01-02")
		}
		amountHT, err := erpsync.ValidatePurchaseForm(purchaseVendor, date, purchaseAmountHT)
		if err != nil {
			return err
		}

		vat := purchaseVATRate
		if vat < 0 {
			vat = cfg.Defaults.VATRate
		}
		status := purchaseStatus
		if status == "" {
			status = cfg.Defaults.PurchaseStatus
		}

		payload := erpsync.Purchase{
			Vendor:      purchaseVendor,
			Reference:   purchaseReference,
			Description: purchaseDesc,
			Date:        date,
			AmountHT:    amountHT,
			VATRate:     vat,
			AmountTTC:   erpsync.ComputeAmountTTC(amountHT, vat),
			Category:    purchaseCategory,
			Status:      erpsync.PurchaseStatus(status),
			Recurring:   purchaseRecurring,
		}
		if cfg.Default.ActiveCompanyID != "" {
			companyID := cfg.Default.ActiveCompanyID
			payload.CompanyID = &companyID
		}

		ctx, cancel := cmdContext()
		defer cancel()

		created, out := ctrl.Create(ctx, payload)
		printOutcome(out)
		if out.Applied() {
			fmt.Printf("  %s  %s  TTC %s\n", created.ID, created.Vendor, formatMoney(created.AmountTTC))
		}
		return nil
	},
}

// ============================================================================
// purchases rm
// ============================================================================

var purchasesRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Remove one or more purchases",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()
		_, ctrl := newPurchaseController(client)

		ctx, cancel := cmdContext()
		defer cancel()
		mustRefresh(ctx, ctrl)

		if len(args) == 1 {
			printOutcome(ctrl.Delete(ctx, args[0]))
			return nil
		}
		printOutcome(ctrl.DeleteMany(ctx, args))
		return nil
	},
}

// dateRange builds an inclusive range from optional YYYY-MM-DD bounds.
func dateRange(from, to string) erpsync.DateRange {
	var r erpsync.DateRange
	if t, err := time.Parse("2006-01-02", from); err == nil {
		r.Start = t
	}
	if t, err := time.Parse("2006-01-02", to); err == nil {
		r.End = t
	}
	return r
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
