package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	erpsync "github.com/Floop2Gare/ERPWASHGOHetzner-sub002"
)

// ============================================================================
// Flag variables
// ============================================================================

var (
	// leads list
	leadsListStatus  string
	leadsListOwner   string
	leadsListSource  string
	leadsListSegment string
	leadsListTag     string
	leadsListSearch  string
	leadsListJSON    bool

	// leads add
	leadCompany   string
	leadContact   string
	leadPhone     string
	leadEmail     string
	leadSource    string
	leadSegment   string
	leadOwner     string
	leadEstimated float64
	leadNextStep  string

	// leads transfer
	leadTransferTo string
)

func init() {
	leadsListCmd.Flags().StringVar(&leadsListStatus, "status", "", "filter by status")
	leadsListCmd.Flags().StringVar(&leadsListOwner, "owner", "", "filter by owner")
	leadsListCmd.Flags().StringVar(&leadsListSource, "source", "", "filter by source")
	leadsListCmd.Flags().StringVar(&leadsListSegment, "segment", "", "filter by segment")
	leadsListCmd.Flags().StringVar(&leadsListTag, "tag", "", "filter by tag")
	leadsListCmd.Flags().StringVar(&leadsListSearch, "search", "", "search contact, company, email and phone")
	leadsListCmd.Flags().BoolVar(&leadsListJSON, "json", false, "output raw JSON")

	leadsAddCmd.Flags().StringVar(&leadCompany, "company", "", "prospect company name (required)")
	leadsAddCmd.Flags().StringVar(&leadContact, "contact", "", "contact name")
	leadsAddCmd.Flags().StringVar(&leadPhone, "phone", "", "phone number")
	leadsAddCmd.Flags().StringVar(&leadEmail, "email", "", "email address")
	leadsAddCmd.Flags().StringVar(&leadSource, "source", "", "acquisition source")
	leadsAddCmd.Flags().StringVar(&leadSegment, "segment", "", "market segment")
	leadsAddCmd.Flags().StringVar(&leadOwner, "owner", "", "sales owner")
	leadsAddCmd.Flags().Float64Var(&leadEstimated, "estimated", 0, "estimated deal value")
	leadsAddCmd.Flags().StringVar(&leadNextStep, "next-step", "", "next step date (YYYY-MM-DD)")
	leadsAddCmd.MarkFlagRequired("company")

	leadsTransferCmd.Flags().StringVar(&leadTransferTo, "to", "", "destination company id (required)")
	leadsTransferCmd.MarkFlagRequired("to")

	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsAddCmd)
	leadsCmd.AddCommand(leadsRmCmd)
	leadsCmd.AddCommand(leadsTransferCmd)
	leadsCmd.AddCommand(leadsPipelineCmd)
	rootCmd.AddCommand(leadsCmd)
}

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Manage sales leads",
	Long:  "List, add, remove and transfer leads, and view the pipeline board.",
}

func newLeadController(client *erpsync.Client) (*erpsync.Store[erpsync.Lead], *erpsync.LeadController) {
	store := erpsync.NewStore[erpsync.Lead]()
	ctrl := erpsync.NewLeadController(store, client.Leads(),
		erpsync.WithLabel("prospect"),
		erpsync.WithSyncLogger(cliLogger()),
	)
	return store, ctrl
}

// ============================================================================
// leads list
// ============================================================================

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()
		store, ctrl := newLeadController(client)

		ctx, cancel := cmdContext()
		defer cancel()
		mustRefresh(ctx, ctrl.SyncController)

		filter := erpsync.LeadFilter{
			Search:  leadsListSearch,
			Status:  leadsListStatus,
			Owner:   leadsListOwner,
			Source:  leadsListSource,
			Segment: leadsListSegment,
			Tag:     leadsListTag,
		}
		leads := erpsync.FilterLeads(store.List(), filter)

		if leadsListJSON {
			data, err := json.MarshalIndent(leads, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal leads: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		for _, l := range leads {
			estimated := ""
			if l.EstimatedValue != nil {
				estimated = formatMoney(*l.EstimatedValue)
			}
			fmt.Printf("%-12s %-24s %-14s %-12s %10s  %s\n",
				l.ID, truncate(l.Company, 24), l.Status, deref(l.NextStepDate), estimated, l.Owner)
		}

		kpis := erpsync.ComputeLeadKPIs(leads)
		fmt.Println()
		fmt.Printf("%d lead(s), %d active, %d in qualification, pipeline %s\n",
			kpis.Total, kpis.Active, kpis.InQualification, formatMoney(kpis.TotalEstimated))
		return nil
	},
}

// ============================================================================
// leads add
// ============================================================================

var leadsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a lead",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()
		store, ctrl := newLeadController(client)

		ctx, cancel := cmdContext()
		defer cancel()
		mustRefresh(ctx, ctrl.SyncController)

		if leadEmail != "" && erpsync.HasDuplicateEmail(store.List(), leadEmail, "") {
			return fmt.Errorf("un prospect avec cet email existe déjà")
		}
		if leadPhone != "" && erpsync.HasDuplicatePhone(store.List(), leadPhone, "") {
			return fmt.Errorf("un prospect avec ce téléphone existe déjà")
		}

		payload := erpsync.Lead{
			Company: leadCompany,
			Contact: leadContact,
			Phone:   leadPhone,
			Email:   leadEmail,
			Source:  leadSource,
			Segment: leadSegment,
			Owner:   leadOwner,
			Status:  erpsync.LeadNew,
		}
		if leadEstimated > 0 {
			v := leadEstimated
			payload.EstimatedValue = &v
		}
		if leadNextStep != "" {
			d := leadNextStep
			payload.NextStepDate = &d
		}

		created, out := ctrl.Create(ctx, payload)
		printOutcome(out)
		if out.Applied() {
			fmt.Printf("  %s  %s\n", created.ID, created.Company)
		}
		return nil
	},
}

// ============================================================================
// leads rm
// ============================================================================

var leadsRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Remove one or more leads",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()
		_, ctrl := newLeadController(client)

		ctx, cancel := cmdContext()
		defer cancel()
		mustRefresh(ctx, ctrl.SyncController)

		if len(args) == 1 {
			printOutcome(ctrl.Delete(ctx, args[0]))
			return nil
		}
		printOutcome(ctrl.DeleteMany(ctx, args))
		return nil
	},
}

// ============================================================================
// leads transfer
// ============================================================================

var leadsTransferCmd = &cobra.Command{
	Use:   "transfer <id>...",
	Short: "Transfer leads to another company",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()
		_, ctrl := newLeadController(client)

		ctx, cancel := cmdContext()
		defer cancel()
		mustRefresh(ctx, ctrl.SyncController)

		printOutcome(ctrl.TransferMany(ctx, args, leadTransferTo))
		return nil
	},
}

// ============================================================================
// leads pipeline
// ============================================================================

var leadsPipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Show the pipeline board",
	Long:  "Group leads by status in pipeline order, with the next lead to work per column.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()
		store, ctrl := newLeadController(client)

		ctx, cancel := cmdContext()
		defer cancel()
		mustRefresh(ctx, ctrl.SyncController)

		for _, bucket := range erpsync.ComputePipeline(store.List()) {
			fmt.Printf("%s (%d, %.0f %%, %s)\n",
				bucket.Status, bucket.Count, bucket.ShareOfAll*100, formatMoney(bucket.TotalEstimated))
			if bucket.NextLead != nil {
				next := bucket.NextLead
				fmt.Printf("  next: %s %s %s\n", next.ID, next.Company, deref(next.NextStepDate))
			}
			for _, l := range bucket.Leads {
				fmt.Printf("  - %-12s %-24s %s\n", l.ID, truncate(l.Company, 24), deref(l.NextStepDate))
			}
		}
		return nil
	},
}
