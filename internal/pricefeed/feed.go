// Package pricefeed keeps a short history of the underlying asset's spot
// price and derives momentum and the divergence between the momentum-implied
// probability and the market's Up price.
package pricefeed

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/alejandrodnm/updownbot/internal/domain"
	"github.com/alejandrodnm/updownbot/internal/ports"
	"github.com/alejandrodnm/updownbot/internal/ring"
)

const (
	// DefaultHistoryLen covers about 90s at a 3s poll.
	DefaultHistoryLen = 30

	// DivergenceThreshold is the probability gap below which divergence is NEUTRAL.
	DivergenceThreshold = 0.06

	minImplied = 0.05
	maxImplied = 0.95

	// errors after this many consecutive failures are logged at debug level only
	loudErrors = 3
)

type sample struct {
	at    time.Time
	price float64
}

// Feed is owned by the bot loop and is not safe for concurrent use.
type Feed struct {
	asset    string
	symbol   string
	provider ports.SpotPriceProvider
	clock    func() time.Time
	history  *ring.Buffer[sample]

	lastPrice float64
	errCount  int
}

// Option configures a Feed.
type Option func(*Feed)

// WithClock injects the time source.
func WithClock(clock func() time.Time) Option {
	return func(f *Feed) { f.clock = clock }
}

// WithHistory sets how many samples are kept.
func WithHistory(n int) Option {
	return func(f *Feed) { f.history = ring.New[sample](n) }
}

// New creates a Feed for asset ("sol", "btc") that polls symbol ("SOLUSDT").
func New(asset, symbol string, provider ports.SpotPriceProvider, opts ...Option) *Feed {
	f := &Feed{
		asset:    strings.ToUpper(asset),
		symbol:   symbol,
		provider: provider,
		clock:    time.Now,
		history:  ring.New[sample](DefaultHistoryLen),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Symbol returns the polled pair.
func (f *Feed) Symbol() string { return f.symbol }

// LastPrice returns the last successfully fetched price, or 0.
func (f *Feed) LastPrice() float64 { return f.lastPrice }

// Len returns the number of samples held.
func (f *Feed) Len() int { return f.history.Len() }

// Update fetches one price and records it. Failures leave the history as is.
func (f *Feed) Update(ctx context.Context) (float64, bool) {
	price, err := f.provider.FetchSpotPrice(ctx, f.symbol)
	if err != nil || price <= 0 {
		f.errCount++
		if f.errCount <= loudErrors {
			slog.Warn("pricefeed: fetch failed", "symbol", f.symbol, "consecutive", f.errCount, "err", err)
		} else {
			slog.Debug("pricefeed: fetch failed", "symbol", f.symbol, "consecutive", f.errCount, "err", err)
		}
		return 0, false
	}
	f.errCount = 0
	f.lastPrice = price
	f.history.Push(sample{at: f.clock(), price: price})
	return price, true
}

// Momentum returns the fractional price change between the oldest sample
// within lookback and the newest sample. It is 0 with fewer than two samples.
func (f *Feed) Momentum(lookback time.Duration) float64 {
	if f.history.Len() < 2 {
		return 0
	}
	cutoff := f.clock().Add(-lookback)
	samples := f.history.Values()

	var oldest float64
	for _, s := range samples {
		if !s.at.Before(cutoff) {
			oldest = s.price
			break
		}
	}
	if oldest == 0 {
		return 0
	}
	newest := samples[len(samples)-1].price
	return round((newest-oldest)/oldest, 6)
}

// ImpliedProbability maps the 60s momentum to a probability of Up.
func (f *Feed) ImpliedProbability(mom60 float64) float64 {
	p := 0.5 + mom60*impliedScale(f.asset)
	return round(math.Max(minImplied, math.Min(maxImplied, p)), 4)
}

// impliedScale is the momentum multiplier per asset.
func impliedScale(asset string) float64 {
	switch asset {
	case "SOL":
		return 25
	case "BTC":
		return 45
	}
	return 30
}

// Divergence compares the implied probability with the Up price. A positive
// value means the Up token is cheap relative to spot momentum.
func (f *Feed) Divergence(upPrice, mom60 float64) domain.Divergence {
	implied := f.ImpliedProbability(mom60)
	div := round(implied-upPrice, 4)
	d := domain.Divergence{
		Direction:   domain.LabelNeutral,
		Value:       div,
		ImpliedProb: implied,
	}
	abs := math.Abs(div)
	if abs < DivergenceThreshold {
		return d
	}
	d.Direction = domain.LabelUp
	if div < 0 {
		d.Direction = domain.LabelDown
	}
	// 0 at the threshold, 1 at three times the threshold
	d.Strength = round(math.Min(1, (abs-DivergenceThreshold)/(2*DivergenceThreshold)), 4)
	return d
}

// Snapshot updates the feed and returns everything the signal engine needs.
// When the fetch fails the snapshot is unavailable and carries the last price.
func (f *Feed) Snapshot(ctx context.Context, upPrice float64) domain.MomentumSnapshot {
	price, ok := f.Update(ctx)
	if !ok {
		return domain.MomentumSnapshot{
			Symbol:     f.symbol,
			Price:      f.lastPrice,
			Divergence: domain.Divergence{Direction: domain.LabelNeutral},
		}
	}
	mom30 := f.Momentum(30 * time.Second)
	mom60 := f.Momentum(60 * time.Second)
	mom90 := f.Momentum(90 * time.Second)
	return domain.MomentumSnapshot{
		Available:  true,
		Symbol:     f.symbol,
		Price:      price,
		Mom30s:     mom30,
		Mom60s:     mom60,
		Mom90s:     mom90,
		Divergence: f.Divergence(upPrice, mom60),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
