package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/hedger/config"
	"github.com/rustyeddy/hedger/issuer"
	"github.com/rustyeddy/hedger/journal"
	"github.com/rustyeddy/hedger/oracle/sim"
	"github.com/rustyeddy/hedger/policy"
	"github.com/rustyeddy/hedger/pricing"
)

func newDemoCmd(rc *RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the configured scenario: fund, issue, move the price, claim",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rc)
			if err != nil {
				return err
			}
			return runDemo(cmd.Context(), cfg)
		},
	}
}

func openJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "csv":
		return journal.NewCSV(cfg.Journal.PoliciesFile, cfg.Journal.ClaimsFile)
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	default:
		return journal.Nop{}, nil
	}
}

func runDemo(ctx context.Context, cfg *config.Config) error {
	sc := cfg.Scenario
	asset, _ := cfg.Asset(sc.Asset) // validated by cfg.Validate

	// Scripted time: the clock only moves when a price step says so.
	now := time.Now().UTC()
	clock := func() time.Time { return now }

	market := sim.NewMarket()
	market.SetPrice(asset.Oracle, sc.InitialPrice, now)
	market.SetRate(cfg.Issuer.RateOracle, sc.Rate)
	market.SetBalance(asset.Symbol, sc.Holder, sc.Holdings)

	jrnl, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jrnl.Close()

	unit, err := cfg.Issuer.ParsePeriodUnit()
	if err != nil {
		return err
	}

	iss, err := issuer.New(issuer.Params{
		Account:    cfg.Issuer.Account,
		Currency:   cfg.Issuer.Currency,
		RateOracle: cfg.Issuer.RateOracle,
		PeriodUnit: unit,
		Assets:     []issuer.Asset{{Symbol: asset.Symbol, Oracle: asset.Oracle, Decimals: asset.Decimals}},
	}, issuer.Deps{
		Feed:      market,
		Balances:  market,
		Converter: market,
		Journal:   jrnl,
		Clock:     clock,
	})
	if err != nil {
		return err
	}

	if err := iss.Fund(cfg.Issuer.Account, cfg.Issuer.PoolFunds); err != nil {
		return err
	}

	p, premium, err := iss.Issue(ctx, sc.Holder, sc.Asset, sc.Tokens, pricing.Plan(sc.Plan), sc.PeriodUnits)
	if err != nil {
		return fmt.Errorf("issue: %w", err)
	}
	fmt.Printf("issued %s to %s: %d %s insured at %d, premium %d %s\n",
		p.Terms().ID, sc.Holder, sc.Tokens, sc.Asset, p.Terms().RefPrice, premium, cfg.Issuer.Currency)

	for _, step := range sc.PriceSteps {
		delay, err := step.ParseDuration()
		if err != nil {
			return err
		}
		now = now.Add(delay)
		market.SetPrice(asset.Oracle, step.Price, now)
		logrus.WithFields(logrus.Fields{
			"oracle": asset.Oracle,
			"price":  step.Price,
			"at":     now,
		}).Debug("price step applied")
	}

	rec, err := iss.Claim(ctx, sc.Holder)
	switch {
	case err == nil:
		fmt.Printf("claim settled: %d %s, paid %d native\n", rec.Amount, cfg.Issuer.Currency, rec.Paid)
	case errors.Is(err, policy.ErrNoDepreciation):
		fmt.Println("no claim: price has not fallen below the reference")
	case errors.Is(err, policy.ErrExpired):
		fmt.Println("no claim: validity deadline has passed")
	case errors.Is(err, policy.ErrInvalidClaimAmount):
		fmt.Println("no claim: computed loss is zero")
	default:
		return fmt.Errorf("claim: %w", err)
	}

	sum := iss.Reconcile()
	fmt.Printf("pool %d, premiums %d, paid out %d\n", sum.Pool, sum.Premiums, sum.PaidOut)
	return nil
}
