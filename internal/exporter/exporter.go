// Package exporter serves SOL wallet balances as prometheus metrics. It is the
// long-running counterpart of the one-shot tools: point it at the wallets a
// drain or enrollment run uses and scrape /metrics.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sol-wallet-tools/internal/config"
	"sol-wallet-tools/internal/price"
	"sol-wallet-tools/internal/sol"
	"sol-wallet-tools/internal/wallet"
)

// BalanceReader is the part of sol.Client the exporter needs.
type BalanceReader interface {
	GetBalance(ctx context.Context, account solana.PublicKey) (sol.Balance, error)
	Name() string
}

type Exporter struct {
	Addresses      []solana.PublicKey
	Chain          BalanceReader
	Price          price.PriceProvider // optional (can be nil)
	PriceCurrency  string
	PriceTTL       time.Duration
	RequestTimeout time.Duration
	Log            *zap.Logger

	reg    *prometheus.Registry
	server *http.Server

	balanceLamports *prometheus.GaugeVec
	balanceSOL      *prometheus.GaugeVec
	balanceFiat     *prometheus.GaugeVec
	scrapeDur       prometheus.Summary
	reqTotal        *prometheus.CounterVec
	lastSuccessTS   *prometheus.GaugeVec
	priceGauge      *prometheus.GaugeVec

	mu              sync.RWMutex
	priceCacheUntil time.Time
	priceCache      price.Price
}

// New builds the exporter and its HTTP server. Extra gatherers (e.g. the RPC
// client's recorder) are served from the same /metrics endpoint.
func New(cfg config.Exporter, addresses []solana.PublicKey, chain BalanceReader, priceProv price.PriceProvider, priceCur string, log *zap.Logger, extra ...prometheus.Gatherer) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Exporter{
		Addresses:      addresses,
		Chain:          chain,
		Price:          priceProv,
		PriceCurrency:  priceCur,
		PriceTTL:       cfg.PriceTTL,
		RequestTimeout: cfg.RequestTimeout,
		Log:            log,
		reg:            prometheus.NewRegistry(),
	}
	e.balanceLamports = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sol",
		Name:      "wallet_balance_lamports",
		Help:      "SOL wallet balance in lamports",
	}, []string{"address"})
	e.balanceSOL = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sol",
		Name:      "wallet_balance_sol",
		Help:      "SOL wallet balance in SOL",
	}, []string{"address"})
	e.balanceFiat = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sol",
		Name:      "wallet_balance_fiat",
		Help:      "SOL wallet balance in configured fiat currency",
	}, []string{"address", "currency"})
	e.scrapeDur = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "sol_exporter",
		Name:      "scrape_duration_seconds",
		Help:      "Time spent collecting balances",
	})
	e.reqTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sol_exporter",
		Name:      "requests_total",
		Help:      "Number of balance requests by provider and status",
	}, []string{"provider", "status"})
	e.lastSuccessTS = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sol_exporter",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful full collection",
	}, []string{"provider"})
	e.priceGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sol",
		Name:      "price",
		Help:      "Price of 1 SOL in the configured fiat currency",
	}, []string{"currency"})

	e.reg.MustRegister(
		e.balanceLamports, e.balanceSOL, e.balanceFiat,
		e.scrapeDur, e.reqTotal, e.lastSuccessTS, e.priceGauge,
	)

	gatherers := append(prometheus.Gatherers{e.reg}, extra...)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	e.server = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return e
}

func (e *Exporter) Handler() http.Handler              { return e.server.Handler }
func (e *Exporter) Serve() error                       { return e.server.ListenAndServe() }
func (e *Exporter) Shutdown(ctx context.Context) error { return e.server.Shutdown(ctx) }

// Run collects immediately and then every interval until ctx is done.
func (e *Exporter) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := e.Collect(ctx); err != nil {
			e.Log.Warn("collect", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Collect fetches balances concurrently and updates metrics.
func (e *Exporter) Collect(ctx context.Context) error {
	start := time.Now()
	defer func() { e.scrapeDur.Observe(time.Since(start).Seconds()) }()

	if e.Chain == nil {
		return errors.New("no chain client configured")
	}

	var quote price.Price
	var havePrice bool
	if e.Price != nil && e.PriceCurrency != "" {
		quote, havePrice = e.getPriceCached(ctx)
	}
	if havePrice {
		e.priceGauge.WithLabelValues(quote.Currency).Set(quote.Value.InexactFloat64())
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(e.Addresses))
	for _, addr := range e.Addresses {
		wg.Add(1)
		go func(address solana.PublicKey) {
			defer wg.Done()
			c, cancel := e.requestContext(ctx)
			defer cancel()
			bal, err := e.Chain.GetBalance(c, address)
			if err != nil {
				e.reqTotal.WithLabelValues(e.Chain.Name(), "error").Inc()
				errCh <- fmt.Errorf("address %s: %w", address, err)
				return
			}
			e.reqTotal.WithLabelValues(e.Chain.Name(), "ok").Inc()
			solVal := wallet.LamportsToSOL(bal.Lamports)
			label := address.String()
			e.balanceLamports.WithLabelValues(label).Set(float64(bal.Lamports))
			e.balanceSOL.WithLabelValues(label).Set(solVal.InexactFloat64())
			if havePrice {
				e.balanceFiat.WithLabelValues(label, quote.Currency).Set(quote.Convert(solVal).InexactFloat64())
			}
		}(addr)
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		e.lastSuccessTS.WithLabelValues(e.Chain.Name()).Set(float64(time.Now().Unix()))
	}
	return errors.Join(errs...)
}

func (e *Exporter) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.RequestTimeout)
}

// getPriceCached reads or refreshes the cached price. Failed lookups are
// not cached.
func (e *Exporter) getPriceCached(ctx context.Context) (price.Price, bool) {
	want := strings.ToUpper(e.PriceCurrency)
	e.mu.RLock()
	if time.Now().Before(e.priceCacheUntil) && e.priceCache.Currency == want {
		p := e.priceCache
		e.mu.RUnlock()
		return p, true
	}
	e.mu.RUnlock()

	p, err := e.Price.GetSOLPrice(ctx, e.PriceCurrency)
	if err != nil {
		e.Log.Warn("price lookup failed", zap.String("provider", e.Price.Name()), zap.Error(err))
		return price.Price{}, false
	}
	if !p.Value.IsPositive() {
		return price.Price{}, false
	}
	p.Currency = strings.ToUpper(p.Currency)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.priceCache = p
	e.priceCacheUntil = time.Now().Add(e.PriceTTL)
	return p, true
}

// ParseAddresses decodes base58 account addresses.
func ParseAddresses(in []string) ([]solana.PublicKey, error) {
	out := make([]solana.PublicKey, 0, len(in))
	for _, s := range in {
		pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("address %q: %w", s, err)
		}
		out = append(out, pk)
	}
	return out, nil
}
