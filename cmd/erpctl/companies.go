package main

import (
	"fmt"

	"github.com/spf13/cobra"

	erpsync "github.com/Floop2Gare/ERPWASHGOHetzner-sub002"
)

var (
	companyName    string
	companyEmail   string
	companyPhone   string
	companyAddress string
	companySIRET   string
)

func init() {
	companiesAddCmd.Flags().StringVar(&companyName, "name", "", "company name (required)")
	companiesAddCmd.Flags().StringVar(&companyEmail, "email", "", "contact email")
	companiesAddCmd.Flags().StringVar(&companyPhone, "phone", "", "phone number")
	companiesAddCmd.Flags().StringVar(&companyAddress, "address", "", "postal address")
	companiesAddCmd.Flags().StringVar(&companySIRET, "siret", "", "SIRET number")
	companiesAddCmd.MarkFlagRequired("name")

	companiesCmd.AddCommand(companiesListCmd)
	companiesCmd.AddCommand(companiesAddCmd)
	companiesCmd.AddCommand(companiesRmCmd)
	companiesCmd.AddCommand(companiesAPIKeyCmd)
	rootCmd.AddCommand(companiesCmd)
}

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Manage companies",
	Long:  "List, add and remove companies, and generate integration API keys.",
}

func newCompanyController(client *erpsync.Client) (*erpsync.Store[erpsync.Company], *erpsync.SyncController[erpsync.Company]) {
	store := erpsync.NewStore[erpsync.Company]()
	ctrl := erpsync.NewSyncController[erpsync.Company](store, client.Companies(),
		erpsync.WithLabel("entreprise"),
		erpsync.WithSyncLogger(cliLogger()),
	)
	return store, ctrl
}

var companiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List companies",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg := getClient()
		store, ctrl := newCompanyController(client)

		ctx, cancel := cmdContext()
		defer cancel()
		mustRefresh(ctx, ctrl)

		for _, c := range store.List() {
			marker := " "
			if c.ID == cfg.Default.ActiveCompanyID {
				marker = "*"
			}
			fmt.Printf("%s %-12s %-28s %s\n", marker, c.ID, truncate(c.Name, 28), c.Email)
		}
		return nil
	},
}

var companiesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a company",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()
		_, ctrl := newCompanyController(client)

		ctx, cancel := cmdContext()
		defer cancel()

		created, out := ctrl.Create(ctx, erpsync.Company{
			Name:    companyName,
			Email:   companyEmail,
			Phone:   companyPhone,
			Address: companyAddress,
			SIRET:   companySIRET,
		})
		printOutcome(out)
		if out.Applied() {
			fmt.Printf("  %s  %s\n", created.ID, created.Name)
		}
		return nil
	},
}

var companiesRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Remove one or more companies",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()
		_, ctrl := newCompanyController(client)

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

var companiesAPIKeyCmd = &cobra.Command{
	Use:   "apikey <id>",
	Short: "Generate a new integration API key for a company",
	Long:  "Generate and print a fresh API key. Any previous key stops working.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()

		ctx, cancel := cmdContext()
		defer cancel()

		result := client.Companies().GenerateAPIKey(ctx, args[0])
		if !result.Success {
			return fmt.Errorf("%s", result.Error)
		}
		fmt.Printf("API key for %s:\n%s\n", result.Data.Data.Name, result.Data.APIKey)
		return nil
	},
}
