package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/hedger/pricing"
)

func newPlansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List the recognized plan tiers and their payout caps",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("tier  payout cap")
			for _, p := range pricing.Plans() {
				fmt.Printf("%4d  %3d%% of loss\n", p, p.CapPercent())
			}
		},
	}
}
