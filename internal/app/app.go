// Package app wires config, logging, metrics and the chain client for the
// command-line tools.
package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"sol-wallet-tools/internal/config"
	"sol-wallet-tools/internal/logging"
	"sol-wallet-tools/internal/metrics"
	"sol-wallet-tools/internal/price"
	"sol-wallet-tools/internal/sol"
	"sol-wallet-tools/internal/wallet"
)

// Version is set at build time via -ldflags "-X sol-wallet-tools/internal/app.Version=..."
var Version = "dev"

type Env struct {
	Config  *config.Config
	Log     *zap.Logger
	Metrics *metrics.Recorder
	Chain   sol.Client
	Price   price.PriceProvider // nil unless price.enabled
}

// Setup loads the config at cfgPath and builds the shared dependencies for the
// tool named job.
func Setup(cfgPath, job string) (*Env, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("tool", job))

	rec := metrics.NewRecorder(job)
	env := &Env{
		Config:  cfg,
		Log:     log,
		Metrics: rec,
		Chain:   sol.NewRPCProvider(cfg.RPC, rec, log),
	}
	if cfg.Price.Enabled {
		p, err := price.NewProviderFromConfig(cfg.Price)
		if err != nil {
			return nil, fmt.Errorf("price provider: %w", err)
		}
		env.Price = p
	}
	log.Debug("starting", zap.String("version", Version), zap.String("rpc", cfg.RPC.URL))
	return env, nil
}

// Context is cancelled on SIGINT/SIGTERM.
func Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Close flushes metrics and the logger. Errors are only logged.
func (e *Env) Close(ctx context.Context) {
	if e.Config.Metrics.Enabled {
		e.Log.Debug("metrics snapshot", zap.String("metrics", e.Metrics.Dump()))
	}
	if err := e.Metrics.Flush(ctx, e.Config.Metrics); err != nil {
		e.Log.Warn("flush metrics", zap.Error(err))
	}
	_ = e.Log.Sync()
}

// Explorer links sig on the configured cluster.
func (e *Env) Explorer(sig solana.Signature) string {
	return sol.ExplorerURL(sig, e.Config.RPC.ExplorerCluster)
}

// ReportValue logs the fiat value of lamports when a price provider is set.
// Price failures never fail the run.
func (e *Env) ReportValue(ctx context.Context, lamports uint64) {
	if e.Price == nil {
		return
	}
	p, err := e.Price.GetSOLPrice(ctx, e.Config.Price.Currency)
	if err != nil {
		e.Log.Warn("price lookup failed", zap.String("provider", e.Price.Name()), zap.Error(err))
		return
	}
	e.Metrics.SetPrice(p.Currency, p.Value.InexactFloat64())
	e.Log.Info("transfer value",
		zap.String("amount_sol", wallet.FormatSOL(lamports)),
		zap.String("value", p.Convert(wallet.LamportsToSOL(lamports)).StringFixed(2)),
		zap.String("currency", p.Currency),
	)
}
