// Package metrics keeps the per-run prometheus registry. The tools are
// one-shot, so instead of serving /metrics the registry is flushed at exit to
// a Pushgateway and/or a node-exporter textfile.
package metrics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	dto "github.com/prometheus/client_model/go"

	"sol-wallet-tools/internal/config"
)

type Recorder struct {
	reg *prometheus.Registry
	job string

	rpcRequests  *prometheus.CounterVec
	rpcDuration  *prometheus.HistogramVec
	transactions *prometheus.CounterVec
	lastFee      prometheus.Gauge
	lastTransfer prometheus.Gauge
	balance      *prometheus.GaugeVec
	price        *prometheus.GaugeVec
}

func NewRecorder(job string) *Recorder {
	r := &Recorder{reg: prometheus.NewRegistry(), job: job}
	r.rpcRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "solwallet",
		Name:      "rpc_requests_total",
		Help:      "Number of RPC requests by method and status",
	}, []string{"method", "status"})
	r.rpcDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "solwallet",
		Name:      "rpc_request_duration_seconds",
		Help:      "Time spent in RPC requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
	r.transactions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "solwallet",
		Name:      "transactions_total",
		Help:      "Submitted transactions by kind and outcome",
	}, []string{"kind", "status"})
	r.lastFee = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "solwallet",
		Name:      "last_fee_lamports",
		Help:      "Fee quoted for the last priced message",
	})
	r.lastTransfer = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "solwallet",
		Name:      "last_transfer_lamports",
		Help:      "Amount of the last submitted transfer",
	})
	r.balance = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "solwallet",
		Name:      "wallet_balance_lamports",
		Help:      "Wallet balance observed during the run",
	}, []string{"address"})
	r.price = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "solwallet",
		Name:      "sol_price",
		Help:      "Price of 1 SOL in the configured fiat currency",
	}, []string{"currency"})

	r.reg.MustRegister(
		r.rpcRequests, r.rpcDuration, r.transactions,
		r.lastFee, r.lastTransfer, r.balance, r.price,
	)
	return r
}

// All observation methods accept a nil receiver so callers can run without
// metrics.

func (r *Recorder) ObserveRPC(method string, start time.Time, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.rpcRequests.WithLabelValues(method, status).Inc()
	r.rpcDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func (r *Recorder) ObserveTransaction(kind, status string) {
	if r == nil {
		return
	}
	r.transactions.WithLabelValues(kind, status).Inc()
}

func (r *Recorder) SetFee(lamports uint64) {
	if r == nil {
		return
	}
	r.lastFee.Set(float64(lamports))
}

func (r *Recorder) SetTransfer(lamports uint64) {
	if r == nil {
		return
	}
	r.lastTransfer.Set(float64(lamports))
}

func (r *Recorder) SetBalance(address string, lamports uint64) {
	if r == nil {
		return
	}
	r.balance.WithLabelValues(address).Set(float64(lamports))
}

func (r *Recorder) SetPrice(currency string, v float64) {
	if r == nil {
		return
	}
	r.price.WithLabelValues(strings.ToUpper(currency)).Set(v)
}

func (r *Recorder) Gatherer() prometheus.Gatherer { return r.reg }

// Flush pushes and/or writes the registry according to cfg. Both targets are
// attempted; the first error is returned.
func (r *Recorder) Flush(ctx context.Context, cfg config.Metrics) error {
	if r == nil || !cfg.Enabled {
		return nil
	}
	var firstErr error
	if cfg.PushgatewayURL != "" {
		pctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		err := push.New(cfg.PushgatewayURL, r.job).Gatherer(r.reg).PushContext(pctx)
		cancel()
		if err != nil {
			firstErr = fmt.Errorf("push metrics: %w", err)
		}
	}
	if cfg.TextfilePath != "" {
		if err := prometheus.WriteToTextfile(cfg.TextfilePath, r.reg); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("write metrics textfile: %w", err)
		}
	}
	return firstErr
}

// Dump returns a human-readable snapshot of counters and gauges (for logging).
func (r *Recorder) Dump() string {
	if r == nil {
		return ""
	}
	mfs, err := r.reg.Gather()
	if err != nil {
		return ""
	}
	var out []string
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			v, ok := sampleValue(mf.GetType(), m)
			if !ok {
				continue
			}
			out = append(out, fmt.Sprintf("%s{%s} %g", mf.GetName(), labelString(m), v))
		}
	}
	sort.Strings(out)
	return strings.Join(out, " ")
}

func sampleValue(t dto.MetricType, m *dto.Metric) (float64, bool) {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue(), true
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue(), true
	default:
		return 0, false
	}
}

func labelString(m *dto.Metric) string {
	b := strings.Builder{}
	for i, lp := range m.GetLabel() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(lp.GetName())
		b.WriteByte('=')
		b.WriteString(lp.GetValue())
	}
	return b.String()
}
