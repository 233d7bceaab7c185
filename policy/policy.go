// Package policy implements the single-policy claim state machine. A policy
// is created with immutable terms, sits Active until its validity deadline,
// and supports exactly one successful claim: price verification, payout
// computation, and the claimed flip run as one all-or-nothing transition.
package policy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/hedger/oracle"
	"github.com/rustyeddy/hedger/pricing"
)

// Terms are fixed at issuance and never change afterwards. Only the current
// price and holdings are re-sampled at claim time; RefPrice stays locked.
type Terms struct {
	ID           string
	Holder       string
	Asset        string
	OracleID     string // price feed ID for the insured asset
	RateOracleID string // converter ID for the payout currency leg
	Tokens       uint64 // quantity insured, smallest native unit
	Plan         pricing.Plan
	RefPrice     int64 // price sample locked in at issuance
	Decimals     uint32
	IssuedAt     time.Time
	Deadline     time.Time // no claim verifies after this instant
}

func (t Terms) validate() error {
	switch {
	case t.Holder == "":
		return fmt.Errorf("%w: empty holder", ErrInvalidTerms)
	case t.Asset == "" || t.OracleID == "" || t.RateOracleID == "":
		return fmt.Errorf("%w: missing asset or oracle identity", ErrInvalidTerms)
	case t.Tokens == 0:
		return fmt.Errorf("%w: zero tokens insured", ErrInvalidTerms)
	case !t.Plan.Valid():
		return fmt.Errorf("%w: unrecognized plan tier %d", ErrInvalidTerms, t.Plan)
	case t.RefPrice <= 0:
		return fmt.Errorf("%w: non-positive reference price %d", ErrInvalidTerms, t.RefPrice)
	case !t.Deadline.After(t.IssuedAt):
		return fmt.Errorf("%w: deadline not after issuance", ErrInvalidTerms)
	}
	return nil
}

// Deps are the external collaborators a policy calls during its lifecycle.
// Clock defaults to time.Now; tests inject a fixed one.
type Deps struct {
	Feed      oracle.PriceFeed
	Balances  oracle.BalanceOracle
	Converter oracle.CurrencyConverter
	Sink      oracle.PayoutSink
	Clock     func() time.Time
}

func (d Deps) validate() error {
	if d.Feed == nil || d.Balances == nil || d.Converter == nil || d.Sink == nil {
		return fmt.Errorf("%w: missing collaborator", ErrInvalidTerms)
	}
	return nil
}

type Policy struct {
	terms Terms
	deps  Deps

	mu          sync.Mutex
	claimed     bool   // monotonic false->true, never reset
	claimAmount uint64 // written once by a successful claim
	residual    uint64 // cash custodied by the policy itself
	busy        bool   // held across the claim transition
}

func New(terms Terms, deps Deps) (*Policy, error) {
	if err := terms.validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Policy{terms: terms, deps: deps}, nil
}

// Terms returns a copy of the immutable policy terms.
func (p *Policy) Terms() Terms { return p.terms }

// Decimals is the insured asset's decimal precision.
func (p *Policy) Decimals() uint32 { return p.terms.Decimals }

// Claimed reports whether the one-time claim has settled.
func (p *Policy) Claimed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.claimed
}

// ClaimAmount is the settled claim in reference currency units, zero until
// a claim succeeds.
func (p *Policy) ClaimAmount() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.claimAmount
}

// Expired reports whether the validity deadline has passed.
func (p *Policy) Expired() bool {
	return p.deps.Clock().After(p.terms.Deadline)
}

// Claim runs the full claim transition: verify depreciation, compute the
// capped payout, flip the claimed flag, and disburse — as one unit. Any
// failure, including a failed disbursement, leaves the policy exactly as it
// was. Re-entrant calls while the transition is running are rejected with
// ErrClaimInProgress, which closes the double-claim window a malicious
// payout target could otherwise exploit.
//
// The returned amount is in reference currency units; the disbursed amount
// is converted to native units at the conversion rate sampled now, not at
// issuance.
func (p *Policy) Claim(ctx context.Context, caller string) (uint64, error) {
	if err := p.begin(); err != nil {
		return 0, err
	}
	defer p.end()

	payable, err := p.verifyAndComputeClaim(ctx, caller)
	if err != nil {
		return 0, err
	}
	if err := p.finalizeClaim(ctx, payable); err != nil {
		return 0, err
	}
	return payable, nil
}

// ClaimQuote computes what Claim would currently pay, without touching any
// state. Holder-only, same verification path.
func (p *Policy) ClaimQuote(ctx context.Context, caller string) (uint64, error) {
	return p.verifyAndComputeClaim(ctx, caller)
}

func (p *Policy) begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busy {
		return ErrClaimInProgress
	}
	p.busy = true
	return nil
}

func (p *Policy) end() {
	p.mu.Lock()
	p.busy = false
	p.mu.Unlock()
}

// verifyAndComputeClaim is steps 1-7 of the transition: temporal and state
// gates, fresh price sample, strict-drop check, holdings-capped claimable
// quantity, loss, and plan cap. Read-only.
func (p *Policy) verifyAndComputeClaim(ctx context.Context, caller string) (uint64, error) {
	if caller != p.terms.Holder {
		return 0, ErrNotHolder
	}
	if p.deps.Clock().After(p.terms.Deadline) {
		return 0, ErrExpired
	}

	p.mu.Lock()
	claimed := p.claimed
	p.mu.Unlock()
	if claimed {
		return 0, ErrAlreadyClaimed
	}

	sample, err := p.deps.Feed.Latest(ctx, p.terms.OracleID)
	if err != nil {
		return 0, fmt.Errorf("sample %s: %w", p.terms.OracleID, err)
	}
	if sample.Price >= p.terms.RefPrice {
		return 0, ErrNoDepreciation
	}

	held, err := p.deps.Balances.BalanceOf(ctx, p.terms.Asset, p.terms.Holder)
	if err != nil {
		return 0, fmt.Errorf("holdings of %s: %w", p.terms.Holder, err)
	}

	// Payout follows what the holder actually still holds, capped at the
	// insured quantity: tokens sold since issuance stop earning cover, and
	// over-insuring never pays more than the held amount.
	claimable := held
	if claimable > p.terms.Tokens {
		claimable = p.terms.Tokens
	}

	loss, err := pricing.LossAmount(p.terms.RefPrice, sample.Price, claimable, p.terms.Decimals)
	if err != nil {
		return 0, err
	}
	if loss == 0 {
		return 0, ErrInvalidClaimAmount
	}

	return pricing.CapByPlan(loss, p.terms.Plan)
}

// finalizeClaim converts the payable amount at the current rate, flips the
// claimed flag, and notifies the sink. A sink failure reverts both the flag
// and the stored amount.
func (p *Policy) finalizeClaim(ctx context.Context, payable uint64) error {
	rate, err := p.deps.Converter.Rate(ctx, p.terms.RateOracleID)
	if err != nil {
		return fmt.Errorf("conversion rate %s: %w", p.terms.RateOracleID, err)
	}
	native, err := pricing.UsdToNative(rate, payable, p.terms.Decimals)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.claimAmount = payable
	p.claimed = true
	p.mu.Unlock()

	if err := p.deps.Sink.Disburse(ctx, p.terms.Holder, native); err != nil {
		p.mu.Lock()
		p.claimAmount = 0
		p.claimed = false
		p.mu.Unlock()
		return fmt.Errorf("disburse claim: %w", err)
	}
	return nil
}

// Deposit credits cash custodied directly by this policy instance. This is
// separate from the issuer's pooled funds that back claim payouts.
func (p *Policy) Deposit(amount uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.residual+amount < p.residual {
		return pricing.ErrArithmeticOverflow
	}
	p.residual += amount
	return nil
}

// Residual is the cash currently custodied by the policy itself.
func (p *Policy) Residual() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.residual
}

// WithdrawResidual sweeps the policy-custodied balance back to the holder.
// Available in any claim state, holder-only. Returns the swept amount.
func (p *Policy) WithdrawResidual(caller string) (uint64, error) {
	if caller != p.terms.Holder {
		return 0, ErrNotHolder
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	amount := p.residual
	p.residual = 0
	return amount, nil
}
