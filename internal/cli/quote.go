package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/hedger/pricing"
)

func newQuoteCmd(rc *RootConfig) *cobra.Command {
	var (
		asset  string
		tokens uint64
		plan   uint8
		period uint64
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a premium at the configured scenario price and rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rc)
			if err != nil {
				return err
			}

			if asset == "" {
				asset = cfg.Scenario.Asset
			}
			a, ok := cfg.Asset(asset)
			if !ok {
				return fmt.Errorf("unknown asset %q", asset)
			}

			premium, err := pricing.Premium(
				cfg.Scenario.InitialPrice,
				tokens,
				pricing.Plan(plan),
				period,
				cfg.Scenario.Rate,
				a.Decimals,
			)
			if err != nil {
				return err
			}

			fmt.Printf("%s x%d, plan %d, %d period units: premium %d %s\n",
				asset, tokens, plan, period, premium, cfg.Issuer.Currency)
			return nil
		},
	}

	cmd.Flags().StringVar(&asset, "asset", "", "Asset symbol (defaults to the scenario asset)")
	cmd.Flags().Uint64Var(&tokens, "tokens", 100, "Quantity to insure, smallest native unit")
	cmd.Flags().Uint8Var(&plan, "plan", 5, "Plan tier (1, 2, 5 or 10)")
	cmd.Flags().Uint64Var(&period, "period", 30, "Coverage length in period units")

	return cmd
}
