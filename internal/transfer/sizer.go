package transfer

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrFeeUnavailable means the cluster returned no fee for the template
	// message. Nothing is sized or sent.
	ErrFeeUnavailable = errors.New("unable to calculate transaction fee")
	// ErrInsufficientBalance matches every *InsufficientBalanceError.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// InsufficientBalanceError reports the exact shortfall. Fixed is set when a
// requested Amount had to be covered; otherwise the sender was being drained
// and only the fee mattered.
type InsufficientBalanceError struct {
	Balance uint64
	Fee     uint64
	Amount  uint64
	Fixed   bool
}

func (e *InsufficientBalanceError) Error() string {
	if !e.Fixed {
		return fmt.Sprintf("insufficient balance to cover transaction fee. Balance: %d, Fee: %d", e.Balance, e.Fee)
	}
	return fmt.Sprintf("insufficient balance for transfer. Balance: %d, Fee: %d, Amount: %d", e.Balance, e.Fee, e.Amount)
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// Plan is the sized transfer for a single invocation.
type Plan struct {
	Balance uint64
	Fee     uint64
	Amount  uint64
}

// Remaining is what the sender keeps after the transfer lands.
func (p Plan) Remaining() uint64 { return p.Balance - p.Fee - p.Amount }

// ComputeTransferAmount returns balance-fee, the largest amount that leaves the
// sender at exactly zero. A nil fee means the cluster could not price the
// message.
func ComputeTransferAmount(balance uint64, fee *uint64) (uint64, error) {
	if fee == nil {
		return 0, ErrFeeUnavailable
	}
	if balance < *fee {
		return 0, &InsufficientBalanceError{Balance: balance, Fee: *fee}
	}
	return balance - *fee, nil
}

// PlanDrain sizes a transfer that empties the sender.
func PlanDrain(balance uint64, fee *uint64) (Plan, error) {
	amount, err := ComputeTransferAmount(balance, fee)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Balance: balance, Fee: *fee, Amount: amount}, nil
}

// PlanFixed checks that balance covers amount plus fee.
func PlanFixed(balance uint64, fee *uint64, amount uint64) (Plan, error) {
	if fee == nil {
		return Plan{}, ErrFeeUnavailable
	}
	if amount > math.MaxUint64-*fee || balance < amount+*fee {
		return Plan{}, &InsufficientBalanceError{Balance: balance, Fee: *fee, Amount: amount, Fixed: true}
	}
	return Plan{Balance: balance, Fee: *fee, Amount: amount}, nil
}
