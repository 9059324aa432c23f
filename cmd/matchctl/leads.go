package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	leadsCmd := &cobra.Command{Use: "leads", Short: "Lead operations"}

	var email, phone, name, wants string
	var demo, pricing bool
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lead",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{
				"email":          email,
				"phone":          phone,
				"name":           name,
				"requestedDemo":  demo,
				"clickedPricing": pricing,
			}
			if wants != "" {
				payload["wantsToLearn"] = strings.Split(wants, ",")
			}
			out, err := run(newClient().R().SetBody(payload), http.MethodPost, "/api/leads")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}
	createCmd.Flags().StringVarP(&email, "email", "e", "", "lead email (required)")
	createCmd.Flags().StringVarP(&phone, "phone", "p", "", "lead phone")
	createCmd.Flags().StringVarP(&name, "name", "n", "", "lead name (required)")
	createCmd.Flags().StringVarP(&wants, "wants", "w", "", "comma-separated subjects the lead wants to learn")
	createCmd.Flags().BoolVar(&demo, "demo", false, "lead requested a demo")
	createCmd.Flags().BoolVar(&pricing, "pricing", false, "lead clicked pricing")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("name")
	leadsCmd.AddCommand(createCmd)

	getCmd := &cobra.Command{
		Use:   "get LEAD_ID",
		Short: "Get a lead by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := run(newClient().R(), http.MethodGet, "/api/leads/"+args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}
	leadsCmd.AddCommand(getCmd)

	var limit int
	claimCmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim the top-scored queued leads for the calling rep",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := run(newClient().R().SetBody(map[string]int{"limit": limit}),
				http.MethodPost, "/api/leads/claim")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}
	claimCmd.Flags().IntVarP(&limit, "limit", "l", 5, "max leads to claim")
	leadsCmd.AddCommand(claimCmd)

	convertCmd := &cobra.Command{
		Use:   "convert LEAD_ID",
		Short: "Convert a lead into a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := run(newClient().R(), http.MethodPost, "/api/leads/"+args[0]+"/convert")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}
	leadsCmd.AddCommand(convertCmd)

	rootCmd.AddCommand(leadsCmd)
}
