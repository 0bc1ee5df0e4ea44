package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"sol-wallet-tools/internal/app"
	"sol-wallet-tools/internal/transfer"
	"sol-wallet-tools/internal/wallet"
)

func main() {
	var (
		cfgPath  = flag.String("config", "config.yml", "Path to YAML config file")
		to       = flag.String("to", "", "Destination address (defaults to transfer.destination)")
		walletP  = flag.String("wallet", "", "Source keypair file (defaults to wallet.path)")
		lamports = flag.Uint64("lamports", 0, "Send a fixed amount instead of draining the wallet")
		solAmt   = flag.String("sol", "", "Fixed amount in SOL, e.g. 0.1")
	)
	flag.Parse()

	env, err := app.Setup(*cfgPath, "transfer")
	if err != nil {
		log.Fatalf("%v", err)
	}
	ctx, cancel := app.Context()
	defer cancel()

	if err := run(ctx, env, *to, *walletP, *lamports, *solAmt); err != nil {
		env.Log.Error("transfer failed", zap.Error(err))
		env.Close(context.Background())
		cancel()
		os.Exit(1)
	}
	env.Close(context.Background())
}

func run(ctx context.Context, env *app.Env, to, walletPath string, lamports uint64, solAmt string) error {
	if walletPath == "" {
		walletPath = env.Config.Wallet.Path
	}
	if to == "" {
		to = env.Config.Transfer.Destination
	}
	if to == "" {
		return errors.New("destination required: pass -to or set transfer.destination")
	}
	if solAmt != "" {
		if lamports != 0 {
			return errors.New("-lamports and -sol are mutually exclusive")
		}
		v, err := wallet.SOLToLamports(solAmt)
		if err != nil {
			return fmt.Errorf("-sol: %w", err)
		}
		if v == 0 {
			return errors.New("-sol must be greater than zero")
		}
		lamports = v
	}

	dest, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return fmt.Errorf("destination %q: %w", to, err)
	}
	kp, err := wallet.LoadKeypair(walletPath)
	if err != nil {
		return err
	}

	svc := &transfer.Service{Chain: env.Chain, Metrics: env.Metrics, Log: env.Log}
	var res transfer.Result
	if lamports == 0 {
		res, err = svc.Drain(ctx, kp, dest)
	} else {
		res, err = svc.Send(ctx, kp, dest, lamports)
	}
	var ib *transfer.InsufficientBalanceError
	if errors.As(err, &ib) {
		env.Log.Error("insufficient balance",
			zap.Uint64("balance", ib.Balance),
			zap.Uint64("fee", ib.Fee),
			zap.Uint64("amount", ib.Amount),
			zap.Bool("fixed", ib.Fixed),
		)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Success! Check out your TX here: %s\n", env.Explorer(res.Signature))
	env.ReportValue(ctx, res.Plan.Amount)
	return nil
}
