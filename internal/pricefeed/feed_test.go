package pricefeed_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/updownbot/internal/domain"
	"github.com/alejandrodnm/updownbot/internal/pricefeed"
)

type fakeProvider struct {
	prices []float64
	errs   []error
	calls  int
}

func (p *fakeProvider) FetchSpotPrice(_ context.Context, _ string) (float64, error) {
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return 0, p.errs[i]
	}
	if i < len(p.prices) {
		return p.prices[i], nil
	}
	return 0, errors.New("no more prices")
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// feedWith carga la serie dada con un sample cada step.
func feedWith(t *testing.T, asset string, step time.Duration, prices ...float64) (*pricefeed.Feed, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 2, 22, 17, 0, 0, 0, time.UTC)}
	f := pricefeed.New(asset, "SOLUSDT", &fakeProvider{prices: prices}, pricefeed.WithClock(clock.Now))
	for i := range prices {
		if i > 0 {
			clock.Advance(step)
		}
		_, ok := f.Update(context.Background())
		require.True(t, ok)
	}
	return f, clock
}

// --- Momentum ---

func TestMomentum_NeedsTwoSamples(t *testing.T) {
	f, _ := feedWith(t, "sol", time.Second, 100)
	assert.Equal(t, 0.0, f.Momentum(60*time.Second))
}

func TestMomentum_UsesOldestSampleInWindow(t *testing.T) {
	f, _ := feedWith(t, "sol", 30*time.Second, 100, 101, 102, 103)

	assert.InDelta(t, 0.009804, f.Momentum(30*time.Second), 1e-9)
	assert.InDelta(t, 0.019802, f.Momentum(60*time.Second), 1e-9)
	assert.InDelta(t, 0.03, f.Momentum(90*time.Second), 1e-9)
}

func TestMomentum_NoSampleInWindowButNewest(t *testing.T) {
	f, clock := feedWith(t, "sol", 30*time.Second, 100, 110)
	clock.Advance(5 * time.Second)
	assert.Equal(t, 0.0, f.Momentum(10*time.Second))
}

func TestMomentum_HistoryIsBounded(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	f := pricefeed.New("sol", "SOLUSDT", &fakeProvider{prices: prices}, pricefeed.WithClock(clock.Now))
	for range prices {
		f.Update(context.Background())
		clock.Advance(time.Second)
	}
	assert.Equal(t, pricefeed.DefaultHistoryLen, f.Len())
	// el sample más viejo que queda es 110
	assert.InDelta(t, round6(139.0/110.0-1), f.Momentum(time.Hour), 1e-9)
}

func round6(v float64) float64 {
	return float64(int64(v*1e6+0.5)) / 1e6
}

// --- ImpliedProbability ---

func TestImpliedProbability_PerAssetScale(t *testing.T) {
	sol := pricefeed.New("sol", "SOLUSDT", &fakeProvider{})
	btc := pricefeed.New("btc", "BTCUSDT", &fakeProvider{})
	eth := pricefeed.New("eth", "ETHUSDT", &fakeProvider{})

	assert.InDelta(t, 0.75, sol.ImpliedProbability(0.01), 1e-9)
	assert.InDelta(t, 0.725, btc.ImpliedProbability(0.005), 1e-9)
	assert.InDelta(t, 0.65, eth.ImpliedProbability(0.005), 1e-9)
	assert.InDelta(t, 0.5, sol.ImpliedProbability(0), 1e-9)
}

func TestImpliedProbability_Clamped(t *testing.T) {
	f := pricefeed.New("sol", "SOLUSDT", &fakeProvider{})
	assert.InDelta(t, 0.95, f.ImpliedProbability(0.05), 1e-9)
	assert.InDelta(t, 0.05, f.ImpliedProbability(-0.05), 1e-9)
}

// --- Divergence ---

func TestDivergence(t *testing.T) {
	f := pricefeed.New("sol", "SOLUSDT", &fakeProvider{})

	tests := []struct {
		name     string
		upPrice  float64
		dir      domain.Label
		value    float64
		strength float64
	}{
		{"strong up saturates", 0.50, domain.LabelUp, 0.25, 1},
		{"up partial", 0.65, domain.LabelUp, 0.10, 0.3333},
		{"inside threshold", 0.70, domain.LabelNeutral, 0.05, 0},
		{"down partial", 0.85, domain.LabelDown, -0.10, 0.3333},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := f.Divergence(tt.upPrice, 0.01)
			assert.Equal(t, tt.dir, d.Direction)
			assert.InDelta(t, tt.value, d.Value, 1e-9)
			assert.InDelta(t, 0.75, d.ImpliedProb, 1e-9)
			assert.InDelta(t, tt.strength, d.Strength, 1e-9)
		})
	}
}

// --- Snapshot ---

func TestSnapshot_Available(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1771778100, 0)}
	f := pricefeed.New("sol", "SOLUSDT", &fakeProvider{prices: []float64{100, 101}}, pricefeed.WithClock(clock.Now))
	f.Snapshot(context.Background(), 0.5)
	clock.Advance(20 * time.Second)

	snap := f.Snapshot(context.Background(), 0.5)
	assert.True(t, snap.Available)
	assert.Equal(t, "SOLUSDT", snap.Symbol)
	assert.InDelta(t, 101, snap.Price, 1e-9)
	assert.InDelta(t, 0.01, snap.Mom30s, 1e-9)
	assert.InDelta(t, 0.01, snap.Mom60s, 1e-9)
	assert.Equal(t, domain.LabelUp, snap.Divergence.Direction)
}

func TestSnapshot_FetchFailure(t *testing.T) {
	p := &fakeProvider{prices: []float64{100, 0}, errs: []error{nil, errors.New("timeout")}}
	f := pricefeed.New("sol", "SOLUSDT", p)
	f.Snapshot(context.Background(), 0.5)

	snap := f.Snapshot(context.Background(), 0.5)
	assert.False(t, snap.Available)
	assert.InDelta(t, 100, snap.Price, 1e-9)
	assert.Equal(t, domain.LabelNeutral, snap.Divergence.Direction)
	assert.Equal(t, 1, f.Len())
}
