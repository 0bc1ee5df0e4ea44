package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"sol-wallet-tools/internal/app"
	"sol-wallet-tools/internal/exporter"
	"sol-wallet-tools/internal/wallet"
)

func main() {
	cfgPath := flag.String("config", "config.yml", "Path to YAML config file")
	scrapeEvery := flag.Duration("interval", 0, "How often to refresh balances (defaults to exporter.interval)")
	flag.Parse()

	env, err := app.Setup(*cfgPath, "balance-exporter")
	if err != nil {
		log.Fatalf("%v", err)
	}
	ctx, cancel := app.Context()
	defer cancel()

	cfg := env.Config
	addresses, err := exporter.ParseAddresses(cfg.Exporter.Addresses)
	if err != nil {
		env.Log.Fatal("exporter.addresses", zap.Error(err))
	}
	if len(addresses) == 0 {
		// Fall back to the configured wallet.
		kp, err := wallet.LoadKeypair(cfg.Wallet.Path)
		if err != nil {
			env.Log.Fatal("no exporter.addresses and no wallet to watch", zap.Error(err))
		}
		addresses = []solana.PublicKey{kp.PublicKey()}
	}

	interval := cfg.Exporter.Interval
	if *scrapeEvery > 0 {
		interval = *scrapeEvery
	}

	exp := exporter.New(cfg.Exporter, addresses, env.Chain, env.Price, cfg.Price.Currency, env.Log, env.Metrics.Gatherer())

	go exp.Run(ctx, interval)

	go func() {
		env.Log.Info("serving /metrics",
			zap.String("listen", cfg.Exporter.ListenAddress),
			zap.Int("addresses", len(addresses)),
			zap.Duration("interval", interval),
		)
		if err := exp.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.Log.Error("http server", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	env.Log.Info("shutting down")
	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = exp.Shutdown(shutdownCtx)
	_ = env.Log.Sync()
}
