package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"sol-wallet-tools/internal/config"
	"sol-wallet-tools/internal/wallet"
)

func main() {
	var (
		cfgPath = flag.String("config", "config.yml", "Path to YAML config file")
		out     = flag.String("out", "", "Keypair file to write (defaults to wallet.path)")
		force   = flag.Bool("force", false, "Overwrite an existing file")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *out == "" {
		*out = cfg.Wallet.Path
	}

	kp, err := wallet.NewKeypair()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := wallet.SaveKeypair(*out, kp, *force); err != nil {
		fmt.Fprintf(os.Stderr, "%v (use -force to replace it)\n", err)
		os.Exit(1)
	}
	fmt.Printf("You've generated a new Solana wallet: %s\n", kp.PublicKey())
	fmt.Printf("Saved to %s\n", *out)
}
