package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/hedger/journal"
)

func newJournalCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List journaled policies and claims",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.NewSQLite(rc.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer j.Close()

			policies, err := j.ListPolicies()
			if err != nil {
				return err
			}
			if len(policies) == 0 {
				fmt.Println("no policies recorded")
				return nil
			}

			for _, p := range policies {
				fmt.Printf("%s  %-10s %-6s x%-8d plan %-2d ref %-8d premium %-8d until %s\n",
					p.PolicyID, p.Holder, p.Asset, p.Tokens, p.Plan, p.RefPrice,
					p.Premium, p.Deadline.Format(time.RFC3339))

				claims, err := j.ClaimsByPolicy(p.PolicyID)
				if err != nil {
					return err
				}
				for _, c := range claims {
					fmt.Printf("  claim %s: amount %d, paid %d, settled %s\n",
						c.ClaimID, c.Amount, c.Paid, c.SettledAt.Format(time.RFC3339))
				}
			}
			return nil
		},
	}
	return cmd
}
