package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/hedger/oracle"
	"github.com/rustyeddy/hedger/oracle/sim"
	"github.com/rustyeddy/hedger/pricing"
)

var (
	issued   = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	deadline = issued.Add(30 * 24 * time.Hour)
)

// recordingSink captures disbursements and can be told to fail or to
// re-enter the policy mid-payout.
type recordingSink struct {
	err     error
	reenter func()

	calls      int
	lastTo     string
	lastAmount uint64
}

func (s *recordingSink) Disburse(ctx context.Context, to string, amount uint64) error {
	s.calls++
	s.lastTo = to
	s.lastAmount = amount
	if s.reenter != nil {
		s.reenter()
	}
	return s.err
}

func testTerms() Terms {
	return Terms{
		ID:           "01TESTPOLICY",
		Holder:       "alice",
		Asset:        "SOL",
		OracleID:     "SOL/USD",
		RateOracleID: "USD/NATIVE",
		Tokens:       100,
		Plan:         pricing.PlanPlus,
		RefPrice:     1000,
		Decimals:     0,
		IssuedAt:     issued,
		Deadline:     deadline,
	}
}

func newTestPolicy(t *testing.T, terms Terms, now time.Time, sink oracle.PayoutSink) (*Policy, *sim.Market) {
	t.Helper()

	m := sim.NewMarket()
	m.SetPrice(terms.OracleID, 800, now)
	m.SetRate(terms.RateOracleID, 1)
	m.SetBalance(terms.Asset, terms.Holder, 100)

	p, err := New(terms, Deps{
		Feed:      m,
		Balances:  m,
		Converter: m,
		Sink:      sink,
		Clock:     func() time.Time { return now },
	})
	require.NoError(t, err)
	return p, m
}

func TestClaimHappyPath(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p, _ := newTestPolicy(t, testTerms(), issued.Add(time.Hour), sink)

	// loss = (1000-800)*100 = 20000, plan 5 caps at 10000
	got, err := p.Claim(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), got)

	assert.True(t, p.Claimed())
	assert.Equal(t, uint64(10_000), p.ClaimAmount())
	assert.Equal(t, 1, sink.calls)
	assert.Equal(t, "alice", sink.lastTo)
	assert.Equal(t, uint64(10_000), sink.lastAmount) // rate 1, decimals 0
}

func TestClaimCappedByHoldings(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p, m := newTestPolicy(t, testTerms(), issued.Add(time.Hour), sink)
	m.SetBalance("SOL", "alice", 40)

	// claimable = min(40, 100) = 40; loss = 200*40 = 8000; cap = 4000
	got, err := p.Claim(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(4000), got)
}

func TestClaimOverInsuredCapsAtTokens(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p, m := newTestPolicy(t, testTerms(), issued.Add(time.Hour), sink)
	m.SetBalance("SOL", "alice", 1000) // holds ten times the insured quantity

	got, err := p.Claim(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), got) // still based on the insured 100
}

func TestClaimNoDepreciation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		price int64
	}{
		{"equal to reference", 1000},
		{"above reference", 1200},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sink := &recordingSink{}
			p, m := newTestPolicy(t, testTerms(), issued.Add(time.Hour), sink)
			m.SetPrice("SOL/USD", tt.price, issued.Add(time.Hour))

			_, err := p.Claim(context.Background(), "alice")
			assert.ErrorIs(t, err, ErrNoDepreciation)
			assert.False(t, p.Claimed())
			assert.Zero(t, p.ClaimAmount())
			assert.Zero(t, sink.calls)
		})
	}
}

func TestClaimAfterDeadline(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p, _ := newTestPolicy(t, testTerms(), deadline.Add(time.Second), sink)

	_, err := p.Claim(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrExpired)
	assert.False(t, p.Claimed())
	assert.Zero(t, sink.calls)
}

func TestClaimAtDeadlineStillValid(t *testing.T) {
	t.Parallel()

	// The gate is strictly after the deadline.
	sink := &recordingSink{}
	p, _ := newTestPolicy(t, testTerms(), deadline, sink)

	_, err := p.Claim(context.Background(), "alice")
	assert.NoError(t, err)
}

func TestClaimNotHolder(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p, _ := newTestPolicy(t, testTerms(), issued.Add(time.Hour), sink)

	_, err := p.Claim(context.Background(), "mallory")
	assert.ErrorIs(t, err, ErrNotHolder)
	assert.Zero(t, sink.calls)
}

func TestClaimIsOneShot(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p, _ := newTestPolicy(t, testTerms(), issued.Add(time.Hour), sink)

	first, err := p.Claim(context.Background(), "alice")
	require.NoError(t, err)

	_, err = p.Claim(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	_, err = p.ClaimQuote(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	assert.Equal(t, first, p.ClaimAmount())
	assert.Equal(t, 1, sink.calls)
}

func TestClaimFeedUnavailable(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p, m := newTestPolicy(t, testTerms(), issued.Add(time.Hour), sink)
	m.DropPrice("SOL/USD")

	_, err := p.Claim(context.Background(), "alice")
	assert.ErrorIs(t, err, oracle.ErrFeedUnavailable)
	assert.False(t, p.Claimed())
	assert.Zero(t, sink.calls)
}

func TestClaimZeroLoss(t *testing.T) {
	t.Parallel()

	terms := testTerms()
	terms.Decimals = 3
	terms.RefPrice = 1000

	sink := &recordingSink{}
	p, m := newTestPolicy(t, terms, issued.Add(time.Hour), sink)
	m.SetPrice("SOL/USD", 999, issued.Add(time.Hour))
	m.SetBalance("SOL", "alice", 1)

	// (1000-999)*1/10^3 truncates to zero
	_, err := p.Claim(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrInvalidClaimAmount)
	assert.False(t, p.Claimed())
}

func TestClaimNoHoldingsZeroLoss(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p, m := newTestPolicy(t, testTerms(), issued.Add(time.Hour), sink)
	m.SetBalance("SOL", "alice", 0)

	_, err := p.Claim(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrInvalidClaimAmount)
}

func TestClaimRollsBackOnSinkFailure(t *testing.T) {
	t.Parallel()

	sinkErr := errors.New("transfer rejected")
	sink := &recordingSink{err: sinkErr}
	p, _ := newTestPolicy(t, testTerms(), issued.Add(time.Hour), sink)

	_, err := p.Claim(context.Background(), "alice")
	assert.ErrorIs(t, err, sinkErr)

	// All-or-nothing: the failed disbursement reverted the whole transition.
	assert.False(t, p.Claimed())
	assert.Zero(t, p.ClaimAmount())

	// With the sink healthy again the claim goes through.
	sink.err = nil
	got, err := p.Claim(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), got)
	assert.True(t, p.Claimed())
}

func TestClaimRejectsReentrancy(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p, _ := newTestPolicy(t, testTerms(), issued.Add(time.Hour), sink)

	var reentryErr error
	sink.reenter = func() {
		_, reentryErr = p.Claim(context.Background(), "alice")
	}

	got, err := p.Claim(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), got)

	assert.ErrorIs(t, reentryErr, ErrClaimInProgress)
	assert.Equal(t, 1, sink.calls)
}

func TestClaimUsesCurrentRateNotIssuanceRate(t *testing.T) {
	t.Parallel()

	run := func(rate uint64) (claim, native uint64) {
		sink := &recordingSink{}
		p, m := newTestPolicy(t, testTerms(), issued.Add(time.Hour), sink)
		m.SetRate("USD/NATIVE", rate)

		got, err := p.Claim(context.Background(), "alice")
		require.NoError(t, err)
		return got, sink.lastAmount
	}

	claimA, nativeA := run(1)
	claimB, nativeB := run(2)

	// The reference-currency claim is rate-independent; the disbursed native
	// amount follows the rate sampled at payout time.
	assert.Equal(t, claimA, claimB)
	assert.Equal(t, uint64(10_000), nativeA)
	assert.Equal(t, uint64(5000), nativeB)
	assert.NotEqual(t, nativeA, nativeB)
}

func TestClaimConverterFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p, m := newTestPolicy(t, testTerms(), issued.Add(time.Hour), sink)
	m.SetRate("USD/NATIVE", 0)
	// A zero rate never reaches the sink; the division guard fires first.
	_, err := p.Claim(context.Background(), "alice")
	assert.ErrorIs(t, err, pricing.ErrDivisionByZero)
	assert.False(t, p.Claimed())
	assert.Zero(t, sink.calls)
}

func TestClaimQuoteDoesNotMutate(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p, _ := newTestPolicy(t, testTerms(), issued.Add(time.Hour), sink)

	got, err := p.ClaimQuote(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), got)

	assert.False(t, p.Claimed())
	assert.Zero(t, p.ClaimAmount())
	assert.Zero(t, sink.calls)

	_, err = p.ClaimQuote(context.Background(), "mallory")
	assert.ErrorIs(t, err, ErrNotHolder)
}

func TestResidualSweep(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p, _ := newTestPolicy(t, testTerms(), issued.Add(time.Hour), sink)

	require.NoError(t, p.Deposit(250))
	require.NoError(t, p.Deposit(50))
	assert.Equal(t, uint64(300), p.Residual())

	_, err := p.WithdrawResidual("mallory")
	assert.ErrorIs(t, err, ErrNotHolder)
	assert.Equal(t, uint64(300), p.Residual())

	got, err := p.WithdrawResidual("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(300), got)
	assert.Zero(t, p.Residual())

	// Sweeping an empty balance is a no-op, not an error.
	got, err = p.WithdrawResidual("alice")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestResidualSweepAfterClaim(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	p, _ := newTestPolicy(t, testTerms(), issued.Add(time.Hour), sink)
	require.NoError(t, p.Deposit(75))

	_, err := p.Claim(context.Background(), "alice")
	require.NoError(t, err)

	// Claim state does not gate the residual sweep.
	got, err := p.WithdrawResidual("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(75), got)
}

func TestNewValidatesTerms(t *testing.T) {
	t.Parallel()

	deps := func() Deps {
		m := sim.NewMarket()
		return Deps{Feed: m, Balances: m, Converter: m, Sink: &recordingSink{}}
	}

	tests := []struct {
		name   string
		mutate func(*Terms)
	}{
		{"empty holder", func(tm *Terms) { tm.Holder = "" }},
		{"empty asset", func(tm *Terms) { tm.Asset = "" }},
		{"empty oracle", func(tm *Terms) { tm.OracleID = "" }},
		{"empty rate oracle", func(tm *Terms) { tm.RateOracleID = "" }},
		{"zero tokens", func(tm *Terms) { tm.Tokens = 0 }},
		{"bad plan", func(tm *Terms) { tm.Plan = 4 }},
		{"zero reference price", func(tm *Terms) { tm.RefPrice = 0 }},
		{"negative reference price", func(tm *Terms) { tm.RefPrice = -10 }},
		{"deadline before issuance", func(tm *Terms) { tm.Deadline = tm.IssuedAt.Add(-time.Hour) }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			terms := testTerms()
			tt.mutate(&terms)
			_, err := New(terms, deps())
			assert.ErrorIs(t, err, ErrInvalidTerms)
		})
	}

	_, err := New(testTerms(), Deps{})
	assert.ErrorIs(t, err, ErrInvalidTerms)
}
