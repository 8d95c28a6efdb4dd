package feeutil

import (
	"math/big"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MarketFee returns the percentage fee on the given price, rounded down, and
// never below minFee.
func MarketFee(price uint64, percentage decimal.Decimal, minFee uint64) uint64 {
	priceDecimal := decimal.NewFromBigInt(new(big.Int).SetUint64(price), 0)
	fee := priceDecimal.Mul(percentage).Div(hundred).Floor()
	if fee.IsNegative() {
		return minFee
	}

	calculatedFee := fee.BigInt().Uint64()
	if calculatedFee < minFee {
		return minFee
	}
	return calculatedFee
}

// MinerFee returns the fee for a transaction of the given virtual size at
// the given rate in sat/vB.
func MinerFee(vsize int, feeRate uint64) uint64 {
	if vsize <= 0 {
		return 0
	}
	return uint64(vsize) * feeRate
}
