// Package issuer is the registry and custody side of the engine: it quotes
// premiums, issues policies, keeps the holder->policy map, and backs claim
// payouts with a pooled fund. Policies stay independent objects; the issuer
// only wires their collaborators and books the money flow.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/hedger/journal"
	"github.com/rustyeddy/hedger/oracle"
	"github.com/rustyeddy/hedger/pkg/id"
	"github.com/rustyeddy/hedger/policy"
	"github.com/rustyeddy/hedger/pricing"
)

var (
	ErrNotIssuer            = errors.New("issuer: caller is not the issuer")
	ErrUnknownAsset         = errors.New("issuer: unknown asset")
	ErrUnknownPlan          = errors.New("issuer: unrecognized plan tier")
	ErrBadPriceSample       = errors.New("issuer: non-positive price sample")
	ErrInsufficientHoldings = errors.New("issuer: holder does not hold the insured quantity")
	ErrInsufficientPool     = errors.New("issuer: pool cannot cover the payout")
	ErrPolicyExists         = errors.New("issuer: holder already has an active policy")
	ErrNoPolicy             = errors.New("issuer: no policy for holder")
)

// Asset declares an insurable asset: its symbol, price feed ID, and decimal
// precision.
type Asset struct {
	Symbol   string
	Oracle   string
	Decimals uint32
}

// Params fix the issuer's identity and terms of business.
type Params struct {
	Account    string // issuer identity for role-gated operations
	Currency   string // reference currency label, e.g. "USD"
	RateOracle string // converter ID for the payout currency leg
	PeriodUnit time.Duration
	Assets     []Asset
}

// Deps are the collaborators shared with every policy this issuer creates.
type Deps struct {
	Feed      oracle.PriceFeed
	Balances  oracle.BalanceOracle
	Converter oracle.CurrencyConverter
	Journal   journal.Journal
	Clock     func() time.Time
	Log       logrus.FieldLogger
}

type Issuer struct {
	params Params
	deps   Deps
	assets map[string]Asset

	mu       sync.Mutex
	pool     uint64 // native units available for payouts
	premiums uint64 // lifetime premiums collected
	paidOut  uint64 // lifetime claim payouts disbursed
	policies map[string]*policy.Policy
}

func New(params Params, deps Deps) (*Issuer, error) {
	if params.Account == "" || params.Currency == "" || params.RateOracle == "" {
		return nil, fmt.Errorf("issuer: account, currency and rate oracle are required")
	}
	if params.PeriodUnit <= 0 {
		return nil, fmt.Errorf("issuer: period unit must be positive")
	}
	if len(params.Assets) == 0 {
		return nil, fmt.Errorf("issuer: at least one asset is required")
	}
	if deps.Feed == nil || deps.Balances == nil || deps.Converter == nil {
		return nil, fmt.Errorf("issuer: missing collaborator")
	}
	if deps.Journal == nil {
		deps.Journal = journal.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}

	assets := make(map[string]Asset, len(params.Assets))
	for _, a := range params.Assets {
		assets[a.Symbol] = a
	}

	return &Issuer{
		params:   params,
		deps:     deps,
		assets:   assets,
		policies: make(map[string]*policy.Policy),
	}, nil
}

// Fund credits the payout pool. Issuer-only.
func (i *Issuer) Fund(caller string, amount uint64) error {
	if caller != i.params.Account {
		return ErrNotIssuer
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.pool+amount < i.pool {
		return pricing.ErrArithmeticOverflow
	}
	i.pool += amount
	return nil
}

// PoolBalance is the native amount currently available for payouts.
func (i *Issuer) PoolBalance() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pool
}

// Quote prices the premium for the given cover at the current oracle price
// and conversion rate. Pure lookup plus arithmetic; nothing is reserved.
func (i *Issuer) Quote(ctx context.Context, assetSym string, tokens uint64, plan pricing.Plan, periodUnits uint64) (uint64, error) {
	asset, ok := i.assets[assetSym]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAsset, assetSym)
	}
	if !plan.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownPlan, plan)
	}

	sample, err := i.deps.Feed.Latest(ctx, asset.Oracle)
	if err != nil {
		return 0, fmt.Errorf("sample %s: %w", asset.Oracle, err)
	}
	if sample.Price <= 0 {
		return 0, fmt.Errorf("%w: %d for %s", ErrBadPriceSample, sample.Price, asset.Oracle)
	}

	rate, err := i.deps.Converter.Rate(ctx, i.params.RateOracle)
	if err != nil {
		return 0, fmt.Errorf("conversion rate %s: %w", i.params.RateOracle, err)
	}

	return pricing.Premium(sample.Price, tokens, plan, periodUnits, rate, asset.Decimals)
}

// Issue creates a policy for the holder: verifies the holder actually holds
// the insured quantity, locks in the current price as the reference,
// collects the premium into the pool, and registers the policy. One active
// policy per holder; a claimed or expired one may be replaced.
func (i *Issuer) Issue(ctx context.Context, holder, assetSym string, tokens uint64, plan pricing.Plan, periodUnits uint64) (*policy.Policy, uint64, error) {
	asset, ok := i.assets[assetSym]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownAsset, assetSym)
	}
	if !plan.Valid() {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownPlan, plan)
	}

	i.mu.Lock()
	if prev, ok := i.policies[holder]; ok && !prev.Claimed() && !prev.Expired() {
		i.mu.Unlock()
		return nil, 0, fmt.Errorf("%w: %s", ErrPolicyExists, holder)
	}
	i.mu.Unlock()

	held, err := i.deps.Balances.BalanceOf(ctx, assetSym, holder)
	if err != nil {
		return nil, 0, fmt.Errorf("holdings of %s: %w", holder, err)
	}
	if held < tokens {
		return nil, 0, fmt.Errorf("%w: holds %d, insuring %d", ErrInsufficientHoldings, held, tokens)
	}

	sample, err := i.deps.Feed.Latest(ctx, asset.Oracle)
	if err != nil {
		return nil, 0, fmt.Errorf("sample %s: %w", asset.Oracle, err)
	}
	if sample.Price <= 0 {
		return nil, 0, fmt.Errorf("%w: %d for %s", ErrBadPriceSample, sample.Price, asset.Oracle)
	}

	rate, err := i.deps.Converter.Rate(ctx, i.params.RateOracle)
	if err != nil {
		return nil, 0, fmt.Errorf("conversion rate %s: %w", i.params.RateOracle, err)
	}

	premium, err := pricing.Premium(sample.Price, tokens, plan, periodUnits, rate, asset.Decimals)
	if err != nil {
		return nil, 0, err
	}

	now := i.deps.Clock()
	terms := policy.Terms{
		ID:           id.New(),
		Holder:       holder,
		Asset:        assetSym,
		OracleID:     asset.Oracle,
		RateOracleID: i.params.RateOracle,
		Tokens:       tokens,
		Plan:         plan,
		RefPrice:     sample.Price,
		Decimals:     asset.Decimals,
		IssuedAt:     now,
		Deadline:     now.Add(time.Duration(periodUnits) * i.params.PeriodUnit),
	}

	p, err := policy.New(terms, policy.Deps{
		Feed:      i.deps.Feed,
		Balances:  i.deps.Balances,
		Converter: i.deps.Converter,
		Sink:      i,
		Clock:     i.deps.Clock,
	})
	if err != nil {
		return nil, 0, err
	}

	// Journal before committing: a failed write must not leave a policy
	// half-issued.
	if err := i.deps.Journal.RecordPolicy(journal.PolicyRecord{
		PolicyID: terms.ID,
		Holder:   holder,
		Asset:    assetSym,
		Tokens:   tokens,
		Plan:     uint8(plan),
		RefPrice: terms.RefPrice,
		Decimals: terms.Decimals,
		Premium:  premium,
		IssuedAt: terms.IssuedAt,
		Deadline: terms.Deadline,
	}); err != nil {
		return nil, 0, fmt.Errorf("journal policy: %w", err)
	}

	i.mu.Lock()
	if i.pool+premium < i.pool {
		i.mu.Unlock()
		return nil, 0, pricing.ErrArithmeticOverflow
	}
	i.pool += premium
	i.premiums += premium
	i.policies[holder] = p
	i.mu.Unlock()

	i.deps.Log.WithFields(logrus.Fields{
		"policy":    terms.ID,
		"holder":    holder,
		"asset":     assetSym,
		"tokens":    tokens,
		"plan":      plan,
		"ref_price": terms.RefPrice,
		"premium":   premium,
		"deadline":  terms.Deadline,
	}).Info("policy issued")

	return p, premium, nil
}

// PolicyOf returns the holder's registered policy.
func (i *Issuer) PolicyOf(holder string) (*policy.Policy, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	p, ok := i.policies[holder]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPolicy, holder)
	}
	return p, nil
}

// Claim runs the holder's claim against their registered policy and books
// the settlement. The policy itself enforces every claim invariant; the
// issuer adds the journal record and the pool accounting around it.
func (i *Issuer) Claim(ctx context.Context, holder string) (journal.ClaimRecord, error) {
	p, err := i.PolicyOf(holder)
	if err != nil {
		return journal.ClaimRecord{}, err
	}

	before := i.PoolBalance()

	amount, err := p.Claim(ctx, holder)
	if err != nil {
		return journal.ClaimRecord{}, err
	}

	rec := journal.ClaimRecord{
		ClaimID:   id.New(),
		PolicyID:  p.Terms().ID,
		Amount:    amount,
		Paid:      before - i.PoolBalance(),
		SettledAt: i.deps.Clock(),
	}

	if err := i.deps.Journal.RecordClaim(rec); err != nil {
		return journal.ClaimRecord{}, fmt.Errorf("journal claim: %w", err)
	}

	i.deps.Log.WithFields(logrus.Fields{
		"policy": rec.PolicyID,
		"holder": holder,
		"amount": rec.Amount,
		"paid":   rec.Paid,
	}).Info("claim settled")

	return rec, nil
}

// Disburse satisfies oracle.PayoutSink: claim payouts draw down the pool.
// A pool that cannot cover the amount fails the disbursement, which makes
// the policy roll its claim transition back.
func (i *Issuer) Disburse(ctx context.Context, to string, amount uint64) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.pool < amount {
		i.deps.Log.WithFields(logrus.Fields{
			"to":     to,
			"amount": amount,
			"pool":   i.pool,
		}).Warn("payout rejected, pool underfunded")
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientPool, amount, i.pool)
	}

	i.pool -= amount
	i.paidOut += amount
	return nil
}

// Summary is the issuer's money-flow bookkeeping, used to reconcile the
// pool against the journal.
type Summary struct {
	Pool     uint64
	Premiums uint64
	PaidOut  uint64
}

func (i *Issuer) Reconcile() Summary {
	i.mu.Lock()
	defer i.mu.Unlock()
	return Summary{Pool: i.pool, Premiums: i.premiums, PaidOut: i.paidOut}
}
