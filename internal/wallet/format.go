package wallet

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

const lamportsExp = -9

var (
	errNegativeAmount     = errors.New("amount must not be negative")
	errFractionalLamports = errors.New("amount has more than 9 decimal places")
	errAmountOverflow     = errors.New("amount overflows lamports")
)

// LamportsToSOL converts the base unit without going through float64.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), lamportsExp)
}

func FormatSOL(lamports uint64) string {
	return LamportsToSOL(lamports).String()
}

// SOLToLamports parses a decimal SOL amount such as "0.1".
func SOLToLamports(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, errNegativeAmount
	}
	l := d.Shift(-lamportsExp)
	if !l.Equal(l.Truncate(0)) {
		return 0, errFractionalLamports
	}
	if !l.BigInt().IsUint64() {
		return 0, errAmountOverflow
	}
	return l.BigInt().Uint64(), nil
}
