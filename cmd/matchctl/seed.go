package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

// Demo members roughly paired so matching has reciprocal results to
// show: each "tutor" teaches what some "learner" wants and vice versa.
var seedMembers = []map[string]interface{}{
	{
		"email":        "sarah.tutor@demo.test",
		"phone":        "5550301",
		"name":         "Sarah Johnson",
		"canTeach":     []string{"mathematics", "physics"},
		"wantsToLearn": []string{"spanish"},
		"availability": []map[string]int{
			{"day": 1, "startMin": 540, "endMin": 720},
			{"day": 3, "startMin": 780, "endMin": 960},
		},
		"location":       map[string]float64{"lat": 52.5200, "lng": 13.4050},
		"rating":         4.8,
		"learningStyles": []string{"visual", "hands-on"},
	},
	{
		"email":        "michael.tutor@demo.test",
		"phone":        "5550302",
		"name":         "Michael Chen",
		"canTeach":     []string{"computer-science", "mathematics"},
		"wantsToLearn": []string{"economics"},
		"availability": []map[string]int{
			{"day": 2, "startMin": 540, "endMin": 720},
			{"day": 4, "startMin": 780, "endMin": 960},
		},
		"location":       map[string]float64{"lat": 52.4800, "lng": 13.4400},
		"rating":         4.5,
		"learningStyles": []string{"reading", "visual"},
	},
	{
		"email":        "alex.learner@demo.test",
		"phone":        "5550303",
		"name":         "Alex Thompson",
		"canTeach":     []string{"spanish"},
		"wantsToLearn": []string{"mathematics", "physics"},
		"availability": []map[string]int{
			{"day": 1, "startMin": 540, "endMin": 720},
			{"day": 5, "startMin": 1020, "endMin": 1200},
		},
		"location":       map[string]float64{"lat": 52.5300, "lng": 13.3900},
		"learningStyles": []string{"visual"},
	},
	{
		"email":        "jessica.learner@demo.test",
		"phone":        "5550304",
		"name":         "Jessica Martinez",
		"canTeach":     []string{"economics"},
		"wantsToLearn": []string{"computer-science"},
		"availability": []map[string]int{
			{"day": 2, "startMin": 540, "endMin": 720},
		},
		"location":       map[string]float64{"lat": 52.5000, "lng": 13.4200},
		"learningStyles": []string{"reading"},
	},
}

var seedLeads = []map[string]interface{}{
	{
		"email":         "ryan.lead@demo.test",
		"phone":         "5550305",
		"name":          "Ryan Foster",
		"wantsToLearn":  []string{"chemistry", "biology", "physics"},
		"requestedDemo": true,
	},
	{
		"email":          "nina.lead@demo.test",
		"phone":          "5550306",
		"name":           "Nina Weber",
		"wantsToLearn":   []string{"mathematics"},
		"clickedPricing": true,
	},
}

func init() {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the service with demo members and leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			memberIDs := make([]string, 0, len(seedMembers))
			for _, m := range seedMembers {
				out, err := run(c.R().SetBody(m), http.MethodPost, "/api/users")
				if err != nil {
					return fmt.Errorf("seed member %v: %w", m["email"], err)
				}
				_, _ = fmt.Fprintln(os.Stdout, out)
				memberIDs = append(memberIDs, fmt.Sprint(m["email"]))
			}
			for _, l := range seedLeads {
				out, err := run(c.R().SetBody(l), http.MethodPost, "/api/leads")
				if err != nil {
					return fmt.Errorf("seed lead %v: %w", l["email"], err)
				}
				_, _ = fmt.Fprintln(os.Stdout, out)
			}
			// Referral chain between the first three members, by email
			// used as a stable external identifier for the demo graph.
			for i := 0; i+1 < len(memberIDs) && i < 2; i++ {
				out, err := run(c.R().SetBody(map[string]string{
					"referrerId": memberIDs[i], "refereeId": memberIDs[i+1],
				}), http.MethodPost, "/api/referrals")
				if err != nil {
					return fmt.Errorf("seed referral: %w", err)
				}
				_, _ = fmt.Fprintln(os.Stdout, out)
			}
			return nil
		},
	}
	rootCmd.AddCommand(seedCmd)
}
