package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	usersCmd := &cobra.Command{Use: "users", Short: "Member operations"}

	var email, phone, name, teaches, wants string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a member",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{
				"email": email,
				"phone": phone,
				"name":  name,
			}
			if teaches != "" {
				payload["canTeach"] = strings.Split(teaches, ",")
			}
			if wants != "" {
				payload["wantsToLearn"] = strings.Split(wants, ",")
			}
			out, err := run(newClient().R().SetBody(payload), http.MethodPost, "/api/users")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}
	createCmd.Flags().StringVarP(&email, "email", "e", "", "member email (required)")
	createCmd.Flags().StringVarP(&phone, "phone", "p", "", "member phone")
	createCmd.Flags().StringVarP(&name, "name", "n", "", "member name (required)")
	createCmd.Flags().StringVarP(&teaches, "teaches", "t", "", "comma-separated subjects the member can teach")
	createCmd.Flags().StringVarP(&wants, "wants", "w", "", "comma-separated subjects the member wants to learn")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("name")
	usersCmd.AddCommand(createCmd)

	getCmd := &cobra.Command{
		Use:   "get USER_ID",
		Short: "Get a member by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := run(newClient().R(), http.MethodGet, "/api/users/"+args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}
	usersCmd.AddCommand(getCmd)

	var limit int
	matchesCmd := &cobra.Command{
		Use:   "matches USER_ID",
		Short: "Rank reciprocal peer matches for a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := newClient().R().SetQueryParam("limit", strconv.Itoa(limit))
			out, err := run(req, http.MethodGet, "/api/users/"+args[0]+"/matches")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}
	matchesCmd.Flags().IntVarP(&limit, "limit", "l", 10, "max matches to return")
	usersCmd.AddCommand(matchesCmd)

	rootCmd.AddCommand(usersCmd)
}
