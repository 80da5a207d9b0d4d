package portfolio

import "github.com/alejandrodnm/updownbot/internal/domain"

// MomentumName identifies the signal-following policy.
const MomentumName = "momentum"

// DefaultMomentumConfig follows confident signals mid-window with staged
// profit taking and a trailing stop.
func DefaultMomentumConfig() PolicyConfig {
	return PolicyConfig{
		Name:            MomentumName,
		EntryMinPrice:   0.20,
		EntryMaxPrice:   0.80,
		EntryMinSecs:    45,
		EntryMaxSecs:    240,
		MaxSpread:       0.05,
		PriceSource:     PriceAsk,
		MinConfidence:   90,
		BetFraction:     0.02,
		MinCapital:      1.0,
		FeeRate:         domain.DefaultFeeRate,
		StopLoss:        0.25,
		TrailActivation: 0.20,
		Stages: []domain.Stage{
			{Gain: 0.30, Fraction: 0.5},
			{Gain: 0.60, Fraction: 0.25},
		},
		ReversalCycles: 3,
		TimeExitSecs:   15,
	}
}

// Momentum trades in the direction of the signal and exits when the signal
// turns against the position for ReversalCycles consecutive cycles.
type Momentum struct {
	cfg PolicyConfig

	tradeID int
	against int
}

// NewMomentum creates the policy.
func NewMomentum(cfg PolicyConfig) *Momentum {
	return &Momentum{cfg: cfg}
}

func (m *Momentum) Name() string         { return MomentumName }
func (m *Momentum) Config() PolicyConfig { return m.cfg }

// ConsiderEntry requires a directional signal with enough confidence and the
// favored side inside the zone, window and spread limits.
func (m *Momentum) ConsiderEntry(ctx EntryContext) (EntryPlan, bool) {
	side := ctx.Signal.Label.Direction()
	if side == "" || ctx.Signal.Confidence < m.cfg.MinConfidence {
		return EntryPlan{}, false
	}
	if m.cfg.RequireStrong && !ctx.Signal.Label.Strong() {
		return EntryPlan{}, false
	}
	if !m.cfg.inWindow(ctx.SecsLeft) {
		return EntryPlan{}, false
	}
	q := ctx.Prices.For(side)
	price := m.cfg.candidatePrice(q)
	if !m.cfg.inZone(price) || !m.cfg.spreadOK(q) {
		return EntryPlan{}, false
	}
	return EntryPlan{Direction: side, Price: price, BetSize: m.cfg.betSize(ctx.Capital)}, true
}

// SkipCycle breaks the run of consecutive reversal readings.
func (m *Momentum) SkipCycle() { m.against = 0 }

// CheckExits: stop, stages, signal reversal, time exit.
func (m *Momentum) CheckExits(t *domain.Trade, ctx ExitContext) (domain.ExitDecision, bool) {
	if t.ID != m.tradeID {
		m.tradeID, m.against = t.ID, 0
	}
	if d, ok := checkPriceExits(t, ctx); ok {
		return d, true
	}

	if dir := ctx.Signal.Label.Direction(); dir != "" && dir != t.Direction && ctx.Signal.Confidence >= m.cfg.MinConfidence {
		m.against++
	} else {
		m.against = 0
	}
	if m.cfg.ReversalCycles > 0 && m.against >= m.cfg.ReversalCycles {
		return domain.ExitDecision{Reason: domain.ReasonReversal, Stage: -1}, true
	}

	return checkTimeExit(m.cfg, ctx)
}
