// Package pricing holds the fixed-point premium and payout arithmetic.
//
// Everything here is integer math. Prices arrive as signed oracle samples,
// quantities in the asset's smallest native unit, and amounts leave as
// uint64. Intermediate products are carried in math/big so a long multiply
// chain can never silently wrap; a result that does not fit uint64 is an
// ErrArithmeticOverflow, not a truncation.
package pricing

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrInvalidInput       = errors.New("pricing: invalid input")
	ErrDivisionByZero     = errors.New("pricing: division by zero")
	ErrArithmeticOverflow = errors.New("pricing: arithmetic overflow")
)

var bigTen = big.NewInt(10)

func pow10(n uint32) *big.Int {
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}

func toAmount(x *big.Int) (uint64, error) {
	if !x.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return x.Uint64(), nil
}

// Premium computes the up-front premium for insuring tokens at the given
// oracle price for periodUnits coverage units, in the reference currency:
//
//	price * tokens * plan * periodUnits * rate / 10^(2*decimals + 2)
//
// The divide happens once, after the full product, so truncation cannot
// compound. Floor division rounds the premium down.
func Premium(price int64, tokens uint64, plan Plan, periodUnits, rate uint64, decimals uint32) (uint64, error) {
	if tokens == 0 {
		return 0, fmt.Errorf("%w: zero tokens insured", ErrInvalidInput)
	}
	if !plan.Valid() {
		return 0, fmt.Errorf("%w: unrecognized plan tier %d", ErrInvalidInput, plan)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: non-positive price %d", ErrInvalidInput, price)
	}
	if periodUnits == 0 {
		return 0, fmt.Errorf("%w: zero period", ErrInvalidInput)
	}
	if rate == 0 {
		return 0, fmt.Errorf("%w: zero conversion rate", ErrInvalidInput)
	}

	num := big.NewInt(price)
	num.Mul(num, new(big.Int).SetUint64(tokens))
	num.Mul(num, big.NewInt(int64(plan)))
	num.Mul(num, new(big.Int).SetUint64(periodUnits))
	num.Mul(num, new(big.Int).SetUint64(rate))
	num.Quo(num, pow10(2*decimals+2))

	return toAmount(num)
}

// LossAmount computes the depreciation loss over claimable tokens:
//
//	(refPrice - curPrice) * claimable / 10^decimals
//
// The price must have strictly fallen; callers reject equal-or-higher
// samples before getting here, and the check is repeated defensively.
func LossAmount(refPrice, curPrice int64, claimable uint64, decimals uint32) (uint64, error) {
	if refPrice <= 0 {
		return 0, fmt.Errorf("%w: non-positive reference price %d", ErrInvalidInput, refPrice)
	}
	if curPrice >= refPrice {
		return 0, fmt.Errorf("%w: price %d has not fallen below reference %d", ErrInvalidInput, curPrice, refPrice)
	}

	drop := new(big.Int).Sub(big.NewInt(refPrice), big.NewInt(curPrice))
	drop.Mul(drop, new(big.Int).SetUint64(claimable))
	drop.Quo(drop, pow10(decimals))

	return toAmount(drop)
}

// CapByPlan limits a loss to the plan's payout fraction:
// min(loss, loss*plan/10). For the recognized tiers plan/10 <= 1, so the
// product alone would do, but the min stays in case a tier above 10 is
// ever admitted.
func CapByPlan(loss uint64, plan Plan) (uint64, error) {
	if !plan.Valid() {
		return 0, fmt.Errorf("%w: unrecognized plan tier %d", ErrInvalidInput, plan)
	}

	capped := new(big.Int).SetUint64(loss)
	capped.Mul(capped, big.NewInt(int64(plan)))
	capped.Quo(capped, bigTen)

	out, err := toAmount(capped)
	if err != nil {
		return 0, err
	}
	if loss < out {
		out = loss
	}
	return out, nil
}

// UsdToNative scales a reference-currency claim into native currency units
// at the supplied conversion rate:
//
//	amount * 10^decimals / rate
//
// The rate is sampled at payout time, not at issuance, so currency movement
// between the two is borne by the payer. That allocation is deliberate.
func UsdToNative(rate, amount uint64, decimals uint32) (uint64, error) {
	if rate == 0 {
		return 0, fmt.Errorf("%w: zero conversion rate", ErrDivisionByZero)
	}

	native := new(big.Int).SetUint64(amount)
	native.Mul(native, pow10(decimals))
	native.Quo(native, new(big.Int).SetUint64(rate))

	return toAmount(native)
}
