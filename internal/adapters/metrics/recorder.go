// Package metrics exposes the bot's operational metrics on a dedicated
// Prometheus registry:
//
//	updown_signals_total{label}          signals produced per label
//	updown_entries_total{direction}      trades opened
//	updown_exits_total{reason}           liquidations, stages included
//	updown_degraded_cycles_total{kind}   cycles run on partial data
//	updown_capital_usd                   uncommitted capital
//	updown_equity_usd                    capital + committed + unrealized
//	updown_realized_pnl_usd              realized P&L since the first trade
//	updown_open_trades                   0 or 1
//	updown_signal_score                  last fused score
//	updown_cycle_duration_seconds        bot cycle latency
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

const namespace = "updown"

// Recorder implements ports.MetricsRecorder.
type Recorder struct {
	registry *prometheus.Registry

	signals  *prometheus.CounterVec
	entries  *prometheus.CounterVec
	exits    *prometheus.CounterVec
	degraded *prometheus.CounterVec

	capital  prometheus.Gauge
	equity   prometheus.Gauge
	realized prometheus.Gauge
	open     prometheus.Gauge
	score    prometheus.Gauge

	cycle prometheus.Histogram
}

// New creates a Recorder with its own registry, including the Go runtime
// and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Signals produced, by label.",
		}, []string{"label"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_total",
			Help:      "Trades opened, by direction.",
		}, []string{"direction"}),
		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exits_total",
			Help:      "Liquidations, by exit reason.",
		}, []string{"reason"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_cycles_total",
			Help:      "Cycles run with partial data, by missing input.",
		}, []string{"kind"}),
		capital: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capital_usd",
			Help:      "Uncommitted capital in USD.",
		}),
		equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "equity_usd",
			Help:      "Capital plus committed plus unrealized P&L in USD.",
		}),
		realized: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realized_pnl_usd",
			Help:      "Realized P&L in USD.",
		}),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_trades",
			Help:      "Number of open trades.",
		}),
		score: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "signal_score",
			Help:      "Last fused signal score.",
		}),
		cycle: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one bot cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.signals, r.entries, r.exits, r.degraded,
		r.capital, r.equity, r.realized, r.open, r.score,
		r.cycle,
	)
	return r
}

// Registry returns the registry to expose on /metrics.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) ObserveSignal(sig domain.Signal) {
	r.signals.WithLabelValues(string(sig.Label)).Inc()
	r.score.Set(sig.Score)
}

func (r *Recorder) ObserveEntry(t *domain.Trade) {
	if t == nil {
		return
	}
	r.entries.WithLabelValues(string(t.Direction)).Inc()
}

func (r *Recorder) ObserveLiquidation(liq domain.Liquidation) {
	r.exits.WithLabelValues(string(liq.Reason)).Inc()
}

func (r *Recorder) ObservePortfolio(stats domain.PortfolioStats) {
	r.capital.Set(stats.Capital)
	r.equity.Set(stats.Equity)
	r.realized.Set(stats.RealizedPnL)
	if stats.OpenTrade != nil {
		r.open.Set(1)
	} else {
		r.open.Set(0)
	}
}

// ObserveCycle records the cycle latency and one increment per degraded input.
func (r *Recorder) ObserveCycle(seconds float64, degraded []string) {
	r.cycle.Observe(seconds)
	for _, kind := range degraded {
		r.degraded.WithLabelValues(kind).Inc()
	}
}
