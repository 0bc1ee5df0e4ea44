package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"sol-wallet-tools/internal/app"
	"sol-wallet-tools/internal/wallet"
)

func main() {
	var (
		cfgPath  = flag.String("config", "config.yml", "Path to YAML config file")
		walletP  = flag.String("wallet", "", "Keypair file to fund (defaults to wallet.path)")
		lamports = flag.Uint64("lamports", 2*solana.LAMPORTS_PER_SOL, "Amount to request")
	)
	flag.Parse()

	env, err := app.Setup(*cfgPath, "airdrop")
	if err != nil {
		log.Fatalf("%v", err)
	}
	ctx, cancel := app.Context()
	defer cancel()

	path := *walletP
	if path == "" {
		path = env.Config.Wallet.Path
	}
	kp, err := wallet.LoadKeypair(path)
	if err != nil {
		env.Log.Error("load wallet", zap.Error(err))
		os.Exit(1)
	}

	sig, err := env.Chain.RequestAirdrop(ctx, kp.PublicKey(), *lamports)
	if err != nil {
		env.Log.Error("airdrop failed", zap.Error(err))
		env.Close(context.Background())
		cancel()
		os.Exit(1)
	}
	env.Log.Info("airdrop requested",
		zap.Stringer("address", kp.PublicKey()),
		zap.String("amount_sol", wallet.FormatSOL(*lamports)),
	)
	fmt.Println("Success! Check your TX here:")
	fmt.Println(env.Explorer(sig))
	env.Close(context.Background())
}
