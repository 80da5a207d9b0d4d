package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/updownbot/internal/adapters/metrics"
	"github.com/alejandrodnm/updownbot/internal/domain"
)

// sample busca el valor de una serie en el registry. labels es name=value.
func sample(t *testing.T, r *metrics.Recorder, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := r.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestRecorder_Signals(t *testing.T) {
	r := metrics.New()
	r.ObserveSignal(domain.Signal{Label: domain.LabelUp, Score: 0.3})
	r.ObserveSignal(domain.Signal{Label: domain.LabelUp, Score: 0.25})
	r.ObserveSignal(domain.Signal{Label: domain.LabelNeutral, Score: -0.01})

	assert.Equal(t, 2.0, sample(t, r, "updown_signals_total", map[string]string{"label": "UP"}))
	assert.Equal(t, 1.0, sample(t, r, "updown_signals_total", map[string]string{"label": "NEUTRAL"}))
	assert.InDelta(t, -0.01, sample(t, r, "updown_signal_score", nil), 1e-12)
}

func TestRecorder_EntriesAndExits(t *testing.T) {
	r := metrics.New()
	r.ObserveEntry(&domain.Trade{Direction: domain.SideDown})
	r.ObserveEntry(nil)
	r.ObserveLiquidation(domain.Liquidation{Reason: domain.ReasonTakeProfit})
	r.ObserveLiquidation(domain.Liquidation{Reason: domain.ReasonStopLoss})

	assert.Equal(t, 1.0, sample(t, r, "updown_entries_total", map[string]string{"direction": "DOWN"}))
	assert.Equal(t, 1.0, sample(t, r, "updown_exits_total", map[string]string{"reason": "TAKE_PROFIT"}))
	assert.Equal(t, 1.0, sample(t, r, "updown_exits_total", map[string]string{"reason": "STOP_LOSS"}))
}

func TestRecorder_Portfolio(t *testing.T) {
	r := metrics.New()
	r.ObservePortfolio(domain.PortfolioStats{
		Capital:     97,
		Equity:      100.5,
		RealizedPnL: 0.5,
		OpenTrade:   &domain.Trade{ID: 1},
	})

	assert.Equal(t, 97.0, sample(t, r, "updown_capital_usd", nil))
	assert.Equal(t, 100.5, sample(t, r, "updown_equity_usd", nil))
	assert.Equal(t, 0.5, sample(t, r, "updown_realized_pnl_usd", nil))
	assert.Equal(t, 1.0, sample(t, r, "updown_open_trades", nil))

	r.ObservePortfolio(domain.PortfolioStats{Capital: 100, Equity: 100})
	assert.Equal(t, 0.0, sample(t, r, "updown_open_trades", nil))
}

func TestRecorder_Cycle(t *testing.T) {
	r := metrics.New()
	r.ObserveCycle(0.2, nil)
	r.ObserveCycle(0.4, []string{"down_book", "spot"})
	r.ObserveCycle(0.3, []string{"spot"})

	assert.Equal(t, 3.0, sample(t, r, "updown_cycle_duration_seconds", nil))
	assert.Equal(t, 1.0, sample(t, r, "updown_degraded_cycles_total", map[string]string{"kind": "down_book"}))
	assert.Equal(t, 2.0, sample(t, r, "updown_degraded_cycles_total", map[string]string{"kind": "spot"}))
}
