package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	metricsCmd := &cobra.Command{Use: "metrics", Short: "Aggregate metrics operations"}

	recomputeCmd := &cobra.Command{
		Use:   "recompute",
		Short: "Run a full aggregation pass (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := run(newClient().R(), http.MethodPost, "/api/metrics/recompute")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}
	metricsCmd.AddCommand(recomputeCmd)

	getCmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Read a metrics snapshot (rfm, clv, nps, low_stock, funnel, session_status, top_subjects, active_users)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := run(newClient().R(), http.MethodGet, "/api/metrics/"+args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}
	metricsCmd.AddCommand(getCmd)

	lowStockCmd := &cobra.Command{
		Use:   "low-stock",
		Short: "List inventory items under the restock threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := run(newClient().R(), http.MethodGet, "/api/inventory/low-stock")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}
	metricsCmd.AddCommand(lowStockCmd)

	rootCmd.AddCommand(metricsCmd)
}
