package enroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"sol-wallet-tools/internal/metrics"
	"sol-wallet-tools/internal/sol"
	"sol-wallet-tools/internal/wallet"
)

var ErrMissingGitHub = errors.New("github handle is required")

type Runner struct {
	Chain     sol.Client
	Program   Program
	StepDelay time.Duration
	StatePath string // empty disables persistence
	Metrics   *metrics.Recorder
	Log       *zap.Logger

	// NewMint and Sleep are replaced in tests.
	NewMint func() (wallet.Keypair, error)
	Sleep   func(ctx context.Context, d time.Duration) error
}

type Outcome struct {
	Account            solana.PublicKey
	Authority          solana.PublicKey
	Mint               solana.PublicKey
	InitSignature      solana.Signature
	SubmitSignature    solana.Signature
	AlreadyInitialized bool
	AlreadyCompleted   bool
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

// Run submits initialize then the track's completion. "Already done" answers
// from the program are recognised by their error codes and are not failures.
func (r *Runner) Run(ctx context.Context, user wallet.Keypair, github string, track Track) (Outcome, error) {
	if github == "" {
		return Outcome{}, ErrMissingGitHub
	}
	newMint := r.NewMint
	if newMint == nil {
		newMint = wallet.NewKeypair
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	log := r.logger().With(zap.Stringer("user", user.PublicKey()))

	var out Outcome
	var err error
	if out.Account, err = r.Program.AccountPDA(user.PublicKey()); err != nil {
		return out, err
	}
	if out.Authority, err = r.Program.AuthorityPDA(); err != nil {
		return out, err
	}
	log.Info("enrollment accounts", zap.Stringer("account", out.Account), zap.Stringer("authority", out.Authority))

	state, err := r.loadState()
	if err != nil {
		return out, err
	}
	us := state.User(user.PublicKey().String())
	us.Account = out.Account.String()

	// Step 1: initialize.
	ix := r.Program.Initialize(user.PublicKey(), out.Account, github)
	out.InitSignature, err = r.submit(ctx, "initialize", []solana.Instruction{ix}, wallet.Signers{user})
	switch code, ok := sol.CustomCode(err); {
	case err == nil:
		log.Info("initialize succeeded", zap.Stringer("signature", out.InitSignature))
		us.InitSignature = out.InitSignature.String()
	case ok && code == CodeAccountInUse:
		out.AlreadyInitialized = true
		out.InitSignature = solana.Signature{}
		log.Warn("account already initialized, continuing to submit")
	default:
		return out, fmt.Errorf("initialize failed: %w", err)
	}
	us.Initialized = true
	us.UpdatedAt = r.now()
	if err := r.saveState(state); err != nil {
		return out, err
	}

	if err := sleep(ctx, r.StepDelay); err != nil {
		return out, err
	}

	// Step 2: submit with a fresh mint as second signer.
	mint, err := newMint()
	if err != nil {
		return out, err
	}
	ts := us.Track(track)
	ix = r.Program.Submit(track, user.PublicKey(), out.Account, mint.PublicKey(), out.Authority)
	sig, err := r.submit(ctx, "submit_"+string(track), []solana.Instruction{ix}, wallet.Signers{user, mint})
	switch code, ok := sol.CustomCode(err); {
	case err == nil:
		out.Mint = mint.PublicKey()
		out.SubmitSignature = sig
		log.Info("submission succeeded", zap.Stringer("signature", sig), zap.Stringer("mint", out.Mint))
		ts.Mint = out.Mint.String()
		ts.SubmitSignature = sig.String()
	case ok && code == CodeAlreadyCompleted:
		// The fresh mint was never created; an earlier run of this track
		// may have recorded the real one.
		out.AlreadyCompleted = true
		log.Warn("submission already completed", zap.String("track", string(track)))
	default:
		return out, fmt.Errorf("submit failed: %w", err)
	}
	ts.Completed = true
	ts.UpdatedAt = r.now()
	us.UpdatedAt = ts.UpdatedAt
	return out, r.saveState(state)
}

// submit builds the transaction against a fresh blockhash.
func (r *Runner) submit(ctx context.Context, kind string, ixs []solana.Instruction, signers wallet.Signers) (solana.Signature, error) {
	bh, err := r.Chain.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	tx, err := solana.NewTransaction(ixs, bh.Hash, solana.TransactionPayer(signers[0].PublicKey()))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build %s: %w", kind, err)
	}
	if err := signers.Sign(tx); err != nil {
		return solana.Signature{}, fmt.Errorf("sign %s: %w", kind, err)
	}
	if err := sol.CheckTransactionSize(tx); err != nil {
		return solana.Signature{}, err
	}
	sig, err := r.Chain.SendAndConfirm(ctx, tx, bh.LastValidBlockHeight)
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.Metrics.ObserveTransaction(kind, status)
	return sig, err
}

func (r *Runner) loadState() (State, error) {
	if r.StatePath == "" {
		return State{}, nil
	}
	s, err := LoadState(r.StatePath)
	if err != nil {
		return State{}, fmt.Errorf("load enroll state: %w", err)
	}
	return s, nil
}

func (r *Runner) now() time.Time { return time.Now().UTC() }

func (r *Runner) saveState(s State) error {
	if r.StatePath == "" {
		return nil
	}
	if err := SaveState(r.StatePath, s); err != nil {
		return fmt.Errorf("save enroll state: %w", err)
	}
	return nil
}
