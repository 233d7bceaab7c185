// Package oracle defines the external collaborators a policy depends on:
// price discovery, token balances, currency conversion, and payout
// disbursement. The engine only ever sees these interfaces; live adapters
// and the deterministic sim both satisfy them.
package oracle

import (
	"context"
	"errors"
	"time"
)

// ErrFeedUnavailable reports that a feed could not produce a sample for the
// requested oracle ID. Callers treat it as an external failure and abort
// whatever operation triggered the lookup.
var ErrFeedUnavailable = errors.New("oracle: feed unavailable")

// Sample is a single price observation. Price is signed: some reference
// feeds can legitimately print negative values.
type Sample struct {
	Price int64
	Time  time.Time
}

// PriceFeed answers the latest price sample for an asset's oracle ID.
type PriceFeed interface {
	Latest(ctx context.Context, oracleID string) (Sample, error)
}

// BalanceOracle answers an account's current holdings of an asset, in the
// asset's smallest native unit.
type BalanceOracle interface {
	BalanceOf(ctx context.Context, asset, account string) (uint64, error)
}

// CurrencyConverter answers the reference-to-native conversion rate for a
// base currency oracle ID, as a fixed-point integer.
type CurrencyConverter interface {
	Rate(ctx context.Context, baseOracleID string) (uint64, error)
}

// PayoutSink receives settled claim payouts. A failed disbursement must
// leave the caller free to roll back: implementations either move the full
// amount or return an error having moved nothing.
type PayoutSink interface {
	Disburse(ctx context.Context, to string, amount uint64) error
}
