// Package transfer sizes and submits lamport transfers. The fee depends on
// the message shape, so every transfer is built twice: a zero-amount template
// for pricing and the final transaction with the sized amount.
package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"go.uber.org/zap"

	"sol-wallet-tools/internal/metrics"
	"sol-wallet-tools/internal/sol"
	"sol-wallet-tools/internal/wallet"
)

var ErrSameAccount = errors.New("source and destination are the same account")

type Service struct {
	Chain   sol.Client
	Metrics *metrics.Recorder
	Log     *zap.Logger
}

type Result struct {
	Signature solana.Signature
	Plan      Plan
}

// Drain sends everything the source holds, net of the fee.
func (s *Service) Drain(ctx context.Context, from wallet.Keypair, to solana.PublicKey) (Result, error) {
	return s.run(ctx, from, to, func(balance uint64, fee *uint64) (Plan, error) {
		return PlanDrain(balance, fee)
	})
}

// Send transfers a fixed amount.
func (s *Service) Send(ctx context.Context, from wallet.Keypair, to solana.PublicKey, lamports uint64) (Result, error) {
	return s.run(ctx, from, to, func(balance uint64, fee *uint64) (Plan, error) {
		return PlanFixed(balance, fee, lamports)
	})
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Service) run(ctx context.Context, from wallet.Keypair, to solana.PublicKey, size func(uint64, *uint64) (Plan, error)) (Result, error) {
	if from.PublicKey().Equals(to) {
		return Result{}, ErrSameAccount
	}
	log := s.logger().With(zap.Stringer("from", from.PublicKey()), zap.Stringer("to", to))

	bal, err := s.Chain.GetBalance(ctx, from.PublicKey())
	if err != nil {
		return Result{}, err
	}
	bh, err := s.Chain.LatestBlockhash(ctx)
	if err != nil {
		return Result{}, err
	}

	template, err := BuildTransfer(from.PublicKey(), to, 0, bh.Hash)
	if err != nil {
		return Result{}, err
	}
	fee, err := s.Chain.FeeForMessage(ctx, &template.Message)
	if err != nil {
		return Result{}, err
	}
	plan, err := size(bal.Lamports, fee)
	if err != nil {
		return Result{}, err
	}
	log.Info("transfer sized",
		zap.Uint64("balance", plan.Balance),
		zap.Uint64("fee", plan.Fee),
		zap.Uint64("amount", plan.Amount),
		zap.String("amount_sol", wallet.FormatSOL(plan.Amount)),
		zap.Uint64("remaining", plan.Remaining()),
	)

	tx, err := BuildTransfer(from.PublicKey(), to, plan.Amount, bh.Hash)
	if err != nil {
		return Result{}, err
	}
	if err := (wallet.Signers{from}).Sign(tx); err != nil {
		return Result{}, fmt.Errorf("sign transaction: %w", err)
	}
	if err := sol.CheckTransactionSize(tx); err != nil {
		return Result{}, err
	}

	sig, err := s.Chain.SendAndConfirm(ctx, tx, bh.LastValidBlockHeight)
	if err != nil {
		s.Metrics.ObserveTransaction("transfer", "error")
		return Result{Signature: sig, Plan: plan}, fmt.Errorf("transfer failed: %w", err)
	}
	s.Metrics.ObserveTransaction("transfer", "ok")
	s.Metrics.SetTransfer(plan.Amount)
	return Result{Signature: sig, Plan: plan}, nil
}

// BuildTransfer builds an unsigned system transfer paid by from. The template
// and the final transaction must both come from here so they price the same.
func BuildTransfer(from, to solana.PublicKey, lamports uint64, blockhash solana.Hash) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, from, to).Build(),
		},
		blockhash,
		solana.TransactionPayer(from),
	)
	if err != nil {
		return nil, fmt.Errorf("build transfer: %w", err)
	}
	return tx, nil
}
